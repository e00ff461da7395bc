package ports

import (
	"context"
	"errors"
	"fmt"
)

// ErrDirectoryNotFound indicates the archive has no directory for the
// requested instrument-day.
var ErrDirectoryNotFound = errors.New("archive directory not found")

// StatusError carries a non-success response from the archive.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("archive returned status %d for %s", e.StatusCode, e.URL)
}

func (e StatusError) Is(target error) bool {
	return target == ErrDirectoryNotFound && e.StatusCode == 404
}

// ArchiveLister enumerates the file URLs under an archive directory.
type ArchiveLister interface {
	List(ctx context.Context, dirURL string) ([]string, error)
}

// Fetcher retrieves the raw bytes of one archive file.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// Archive is a lister that can also fetch.
type Archive interface {
	ArchiveLister
	Fetcher
}
