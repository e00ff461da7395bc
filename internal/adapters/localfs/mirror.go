// Package localfs serves a local mirror of the raw data archive laid out like
// the remote server.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// Mirror implements ports.Archive over the local filesystem. Locations may
// be plain paths or file:// URLs; listed entries keep the caller's form.
type Mirror struct{}

var _ ports.Archive = Mirror{}

// IsLocal reports whether root names a local mirror rather than a server.
func IsLocal(root string) bool {
	u, err := url.Parse(root)
	if err != nil {
		return true
	}
	return u.Scheme == "" || u.Scheme == "file" || len(u.Scheme) == 1 // windows drive letters
}

// List returns the regular files directly under dir.
func (Mirror) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := Path(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("localfs: %s: %w", path, ports.ErrDirectoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("localfs: list %s: %w", path, err)
	}

	prefix := dir
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, prefix+e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Fetch reads one file.
func (Mirror) Fetch(ctx context.Context, file string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := Path(file)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("localfs: read %s: %w", path, err)
	}
	return raw, nil
}

// Path converts a mirror location, a plain path or a file:// URL, to a
// filesystem path.
func Path(loc string) (string, error) {
	if !strings.HasPrefix(loc, "file://") {
		return filepath.FromSlash(loc), nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("localfs: %w", err)
	}
	return filepath.FromSlash(u.Path), nil
}
