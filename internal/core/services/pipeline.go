package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
	"github.com/ooi-data/ooi-hyd-tools/internal/metrics"
)

const (
	DefaultDayAttempts   = 3
	DefaultDayRetryDelay = 60 * time.Second
	DefaultSanityClock   = 5 * time.Minute
)

// DayReconstructor is the part of Reconstructor the pipeline drives.
type DayReconstructor interface {
	Reconstruct(ctx context.Context, refdes domain.RefDes, day time.Time, params domain.ReconstructParams) (domain.DayResult, error)
}

// PipelineOptions configures retries and the sanity-check pick.
type PipelineOptions struct {
	Attempts    int
	RetryDelay  time.Duration
	SanityClock time.Duration
}

// DayReport is everything one day run produced.
type DayReport struct {
	Run    domain.RunRecord
	Result domain.DayResult
	// Sanity is the segment picked for manual inspection, nil when nothing
	// was repaired.
	Sanity *domain.DayEntry
}

// Pipeline runs reconstructions with retries, hands repaired segments to the
// sink and records a manifest of every run.
type Pipeline struct {
	recon   DayReconstructor
	sink    ports.SegmentSink
	repo    ports.RunRepository
	metrics *metrics.Metrics
	opts    PipelineOptions

	newID func() string
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline constructs a Pipeline. sink, repo and m may be nil.
func NewPipeline(recon DayReconstructor, sink ports.SegmentSink, repo ports.RunRepository, m *metrics.Metrics, opts PipelineOptions) *Pipeline {
	if opts.Attempts < 1 {
		opts.Attempts = DefaultDayAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultDayRetryDelay
	}
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{
		recon:   recon,
		sink:    sink,
		repo:    repo,
		metrics: m,
		opts:    opts,
		newID:   uuid.NewString,
		now:     time.Now,
		sleep:   sleepWithContext,
	}
}

// RunDay reconstructs one day, retrying the whole day with a fixed delay
// while it fails for reasons other than configuration, then emits every
// repaired segment in order and saves the run manifest.
func (p *Pipeline) RunDay(ctx context.Context, refdes domain.RefDes, day time.Time, params domain.ReconstructParams) (DayReport, error) {
	run := domain.RunRecord{
		ID:          p.newID(),
		RefDes:      refdes.String(),
		Day:         day,
		Encoding:    params.Encoding,
		Params:      params.Repair,
		Concurrency: params.Concurrency,
		StartedAt:   p.now().UTC(),
	}

	var (
		result domain.DayResult
		err    error
	)
	for attempt := 1; attempt <= p.opts.Attempts; attempt++ {
		run.Attempts = attempt
		result, err = p.recon.Reconstruct(ctx, refdes, day, params)
		if err == nil || !retryable(ctx, err) || attempt == p.opts.Attempts {
			break
		}
		p.metrics.DayRetried()
		log.Printf("WARN pipeline: refdes=%s day=%s attempt %d/%d failed: %v; retrying in %s",
			refdes, day.Format(domain.DayLayout), attempt, p.opts.Attempts, err, p.opts.RetryDelay)
		if serr := p.sleep(ctx, p.opts.RetryDelay); serr != nil {
			err = errors.Join(err, serr)
			break
		}
	}

	p.metrics.RecordIntervals(len(result.Repaired()), len(result.Discarded()), len(result.Failures()), result.TotalSamples())

	report := DayReport{Result: result}
	run.Entries = domain.ManifestEntries(result)

	switch {
	case err != nil:
		run.Status = domain.RunFailed
		run.Error = err.Error()
		p.metrics.DayFailed()
	case result.Empty():
		run.Status = domain.RunNoData
		p.metrics.DayNoData()
	default:
		if emitErr := p.emit(ctx, refdes, result, run.Entries); emitErr != nil {
			err = emitErr
			run.Status = domain.RunFailed
			run.Error = emitErr.Error()
			p.metrics.DayFailed()
			break
		}
		run.Status = domain.RunSucceeded
		p.metrics.DaySucceeded()
		if entry, ok := result.SegmentAt(p.opts.SanityClock); ok {
			report.Sanity = &entry
		}
	}

	run.FinishedAt = p.now().UTC()
	report.Run = run
	log.Printf("INFO pipeline: refdes=%s day=%s run=%s attempts=%d duration_ms=%d status=%s",
		refdes, day.Format(domain.DayLayout), run.ID, run.Attempts, run.FinishedAt.Sub(run.StartedAt).Milliseconds(), run.Status)

	if p.repo != nil {
		if saveErr := p.repo.SaveRun(ctx, run); saveErr != nil {
			log.Printf("ERROR pipeline: save run %s: %v", run.ID, saveErr)
			err = errors.Join(err, fmt.Errorf("service: save run: %w", saveErr))
		}
	}
	return report, err
}

// emit hands every repaired segment to the sink in chronological order and
// records the artifact location on its manifest line.
func (p *Pipeline) emit(ctx context.Context, refdes domain.RefDes, result domain.DayResult, lines []domain.RunEntry) error {
	if p.sink == nil {
		return nil
	}
	for i, e := range result.Entries {
		if e.Outcome.Status != domain.StatusRepaired {
			continue
		}
		loc, err := p.sink.Emit(ctx, refdes, *e.Outcome.Segment)
		if err != nil {
			return fmt.Errorf("service: emit %s: %w", e.Interval.Name, err)
		}
		lines[i].Artifact = loc
	}
	return nil
}

// RunRange runs every day from from to to inclusive. Days without data are
// skipped; failed days are logged and reported together once the range is
// done.
func (p *Pipeline) RunRange(ctx context.Context, refdes domain.RefDes, from, to time.Time, params domain.ReconstructParams) ([]DayReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s before start %s", domain.ErrInvalidConfiguration, to.Format(domain.DayLayout), from.Format(domain.DayLayout))
	}

	var (
		reports []DayReport
		errs    []error
	)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := p.RunDay(ctx, refdes, day, params)
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			return reports, err
		}
		if err != nil {
			log.Printf("ERROR pipeline: refdes=%s day=%s: %v", refdes, day.Format(domain.DayLayout), err)
			errs = append(errs, err)
		}
		if report.Run.Status == domain.RunNoData {
			log.Printf("INFO pipeline: no data available for %s, moving to next day", day.Format(domain.DayLayout))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, domain.ErrInvalidConfiguration)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
