// Package worker runs the per-interval fetch, decode and repair tasks of a
// day on a bounded set of goroutines.
package worker

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// Task processes one interval. It must not retain the interval after
// returning.
type Task func(ctx context.Context, iv domain.Interval) domain.Outcome

// Job is one queued interval.
type Job struct {
	Interval domain.Interval
}

// Pool runs tasks on a fixed number of workers.
type Pool struct {
	workers int
}

// DefaultWidth is twice the number of CPUs; the tasks spend most of their
// time waiting on the archive.
func DefaultWidth() int {
	return 2 * runtime.NumCPU()
}

// NewPool creates a pool of the given width. Widths below one fall back to
// DefaultWidth.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = DefaultWidth()
	}
	return &Pool{workers: workers}
}

// Width returns the number of workers.
func (p *Pool) Width() int {
	return p.workers
}

// Run executes task once per interval and returns one entry per interval in
// completion order. A failing or panicking task never stops its siblings;
// Run returns only after every task has finished. Intervals not yet started
// when ctx is cancelled are reported as failed with the context error.
func (p *Pool) Run(ctx context.Context, intervals []domain.Interval, task Task) []domain.DayEntry {
	if len(intervals) == 0 {
		return nil
	}

	jobs := make(chan Job, len(intervals))
	for _, iv := range intervals {
		jobs <- Job{Interval: iv}
	}
	close(jobs)

	var (
		mu      sync.Mutex
		entries = make([]domain.DayEntry, 0, len(intervals))
		wg      sync.WaitGroup
	)
	collect := func(e domain.DayEntry) {
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
	}

	workers := min(p.workers, len(intervals))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				collect(domain.DayEntry{Interval: job.Interval, Outcome: p.process(ctx, job, task)})
			}
		}()
	}
	wg.Wait()
	return entries
}

func (p *Pool) process(ctx context.Context, job Job, task Task) (out domain.Outcome) {
	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Errorf("worker: %s not started: %w", job.Interval.Name, err))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR worker: panic processing %s: %v\n%s", job.Interval.Name, r, debug.Stack())
			out = domain.Failed(fmt.Errorf("worker: panic processing %s: %v", job.Interval.Name, r))
		}
		log.Printf("INFO worker: interval=%s duration_ms=%d status=%s", job.Interval.Name, time.Since(start).Milliseconds(), out.Status)
	}()
	return task(ctx, job.Interval)
}
