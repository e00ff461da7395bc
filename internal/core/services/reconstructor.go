package services

import (
	"context"
	"log"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/metrics"
	"github.com/ooi-data/ooi-hyd-tools/internal/worker"
)

// Reconstructor turns an instrument-day of interval files into an ordered
// DayResult.
type Reconstructor struct {
	index   *IntervalIndex
	source  worker.TraceSource
	metrics *metrics.Metrics
}

// NewReconstructor constructs a Reconstructor. m may be nil.
func NewReconstructor(index *IntervalIndex, source worker.TraceSource, m *metrics.Metrics) *Reconstructor {
	if m == nil {
		m = metrics.New()
	}
	return &Reconstructor{index: index, source: source, metrics: m}
}

// Discover lists the intervals of a day.
func (r *Reconstructor) Discover(ctx context.Context, refdes domain.RefDes, day time.Time) ([]domain.Interval, error) {
	return r.index.Discover(ctx, refdes, day)
}

// Reconstruct validates params, discovers the day, repairs every interval on
// a worker pool and assembles the entries in chronological order.
//
// A day without files returns an empty result and no error. When any interval
// failed, the complete result is returned together with a
// *domain.DayFailedError, after every worker has finished.
func (r *Reconstructor) Reconstruct(ctx context.Context, refdes domain.RefDes, day time.Time, params domain.ReconstructParams) (domain.DayResult, error) {
	empty := domain.DayResult{RefDes: refdes, Day: day}
	if err := params.Validate(); err != nil {
		return empty, err
	}

	intervals, err := r.index.Discover(ctx, refdes, day)
	if err != nil {
		return empty, err
	}
	if len(intervals) == 0 {
		return empty, nil
	}

	started := time.Now()
	pool := worker.NewPool(params.Concurrency)
	r.metrics.SetPoolWidth(pool.Width())
	analyzer := worker.NewAnalyzer(r.source, params.Encoding, params.Repair)
	result := domain.AssembleDay(refdes, day, pool.Run(ctx, intervals, analyzer.Analyze))

	repaired, discarded, failed := len(result.Repaired()), len(result.Discarded()), len(result.Failures())
	log.Printf("INFO reconstruct: refdes=%s day=%s intervals=%d repaired=%d discarded=%d failed=%d duration_ms=%d",
		refdes, day.Format(domain.DayLayout), len(intervals), repaired, discarded, failed, time.Since(started).Milliseconds())

	if failed > 0 {
		return result, &domain.DayFailedError{RefDes: refdes.String(), Day: day, Failed: result.Failures()}
	}
	return result, nil
}
