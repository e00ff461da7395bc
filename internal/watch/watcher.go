// Package watch follows a local archive mirror and schedules the
// reconstruction of instrument-days once their directories go quiet.
package watch

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/localfs"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// DayFunc is called once per quiet instrument-day.
type DayFunc func(ctx context.Context, refdes domain.RefDes, day time.Time)

// Options configures a Watcher.
type Options struct {
	Root      string
	Extension string
	Quiet     time.Duration
}

type dayKey struct {
	refdes domain.RefDes
	day    string
}

type pendingDay struct {
	day  time.Time
	last time.Time
}

// Watcher monitors a mirror laid out as
// {site}/{node}/{port-instrument}/{YYYY}/{MM}/{DD}/ for new interval files.
type Watcher struct {
	opts    Options
	fn      DayFunc
	pending map[dayKey]pendingDay
	now     func() time.Time
}

func New(opts Options, fn DayFunc) *Watcher {
	if opts.Extension == "" {
		opts.Extension = ".mseed"
	}
	if opts.Quiet <= 0 {
		opts.Quiet = 2 * time.Minute
	}
	return &Watcher{opts: opts, fn: fn, pending: make(map[dayKey]pendingDay), now: time.Now}
}

// Start registers the mirror tree and processes events until ctx is done.
// It returns once the initial tree is being watched.
func (w *Watcher) Start(ctx context.Context) error {
	root, err := localfs.Path(w.opts.Root)
	if err != nil {
		return err
	}
	w.opts.Root = root
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.addTree(watcher, w.opts.Root, false); err != nil {
		watcher.Close()
		return err
	}
	log.Printf("INFO watch: watching %s quiet=%s", w.opts.Root, w.opts.Quiet)

	go func() {
		defer watcher.Close()
		ticker := time.NewTicker(max(w.opts.Quiet/4, 10*time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				w.handle(watcher, evt)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WARN watch: %v", err)
			case <-ticker.C:
				w.flush(ctx)
			}
		}
	}()
	return nil
}

func (w *Watcher) handle(watcher *fsnotify.Watcher, evt fsnotify.Event) {
	if evt.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
		return
	}
	// nested directories can appear before the watch on their parent lands
	if evt.Op&fsnotify.Create != 0 {
		if err := w.addTree(watcher, evt.Name, true); err == nil {
			return
		}
	}
	w.touch(evt.Name)
}

// addTree watches dir and every directory below it. With schedule set,
// interval files already present are scheduled too.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string, schedule bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if schedule {
			w.touch(path)
		}
		return nil
	})
}

func (w *Watcher) touch(path string) {
	if !strings.EqualFold(filepath.Ext(path), w.opts.Extension) {
		return
	}
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil {
		return
	}
	refdes, day, err := domain.ParseArchivePath(filepath.ToSlash(rel))
	if err != nil {
		log.Printf("WARN watch: ignoring %s: %v", rel, err)
		return
	}
	key := dayKey{refdes: refdes, day: day.Format(domain.DayLayout)}
	w.pending[key] = pendingDay{day: day, last: w.now()}
}

// flush runs every day that has seen no new files for the quiet period.
func (w *Watcher) flush(ctx context.Context) {
	now := w.now()
	for key, p := range w.pending {
		if now.Sub(p.last) < w.opts.Quiet {
			continue
		}
		delete(w.pending, key)
		log.Printf("INFO watch: refdes=%s day=%s quiet, scheduling", key.refdes, key.day)
		w.fn(ctx, key.refdes, p.day)
	}
}
