package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// DefaultExtension is the suffix of interval files in the raw data archive.
const DefaultExtension = ".mseed"

// IndexOptions configures an IntervalIndex.
type IndexOptions struct {
	Root       string // archive root URL or directory
	Extension  string
	Duration   time.Duration
	SampleRate float64
}

// IntervalIndex enumerates the interval files of an instrument-day.
type IntervalIndex struct {
	lister ports.ArchiveLister
	opts   IndexOptions
}

// NewIntervalIndex constructs an IntervalIndex. Zero options take the OOI
// hydrophone defaults.
func NewIntervalIndex(lister ports.ArchiveLister, opts IndexOptions) *IntervalIndex {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Duration <= 0 {
		opts.Duration = domain.DefaultDuration
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = domain.DefaultSampleRate
	}
	opts.Root = strings.TrimRight(opts.Root, "/")
	return &IntervalIndex{lister: lister, opts: opts}
}

// DayURL is the archive directory holding one instrument-day.
func (x *IntervalIndex) DayURL(refdes domain.RefDes, day time.Time) string {
	return x.opts.Root + "/" + refdes.ArchivePath(day) + "/"
}

// Discover lists the day's interval files in lexicographic order. A day with
// no directory or no matching files yields an empty list and no error.
func (x *IntervalIndex) Discover(ctx context.Context, refdes domain.RefDes, day time.Time) ([]domain.Interval, error) {
	dir := x.DayURL(refdes, day)
	urls, err := x.lister.List(ctx, dir)
	if errors.Is(err, ports.ErrDirectoryNotFound) {
		log.Printf("INFO index: no data available refdes=%s day=%s", refdes, day.Format(domain.DayLayout))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service: list %s: %w", dir, err)
	}

	files := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if !strings.HasSuffix(u, x.opts.Extension) || seen[u] {
			continue
		}
		seen[u] = true
		files = append(files, u)
	}
	if len(files) == 0 {
		log.Printf("INFO index: no data available refdes=%s day=%s", refdes, day.Format(domain.DayLayout))
		return nil, nil
	}
	sort.Strings(files)

	intervals := make([]domain.Interval, len(files))
	for i, u := range files {
		intervals[i] = domain.NewInterval(i, u, day, x.opts.Duration, x.opts.SampleRate)
	}
	return intervals, nil
}
