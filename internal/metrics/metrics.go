// Package metrics keeps process-wide reconstruction counters.
package metrics

import "sync/atomic"

// Metrics captures interval and day outcomes across runs.
type Metrics struct {
	intervalsRepaired  int64
	intervalsDiscarded int64
	intervalsFailed    int64
	samplesRepaired    int64

	daysSucceeded int64
	daysFailed    int64
	daysNoData    int64
	dayRetries    int64

	poolWidth int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	IntervalsRepaired  int64 `json:"intervals_repaired"`
	IntervalsDiscarded int64 `json:"intervals_discarded"`
	IntervalsFailed    int64 `json:"intervals_failed"`
	SamplesRepaired    int64 `json:"samples_repaired"`
	DaysSucceeded      int64 `json:"days_succeeded"`
	DaysFailed         int64 `json:"days_failed"`
	DaysNoData         int64 `json:"days_no_data"`
	DayRetries         int64 `json:"day_retries"`
	PoolWidth          int   `json:"pool_width"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordIntervals adds the outcome counts of one reconstructed day.
func (m *Metrics) RecordIntervals(repaired, discarded, failed int, samples int) {
	atomic.AddInt64(&m.intervalsRepaired, int64(repaired))
	atomic.AddInt64(&m.intervalsDiscarded, int64(discarded))
	atomic.AddInt64(&m.intervalsFailed, int64(failed))
	atomic.AddInt64(&m.samplesRepaired, int64(samples))
}

func (m *Metrics) DaySucceeded() { atomic.AddInt64(&m.daysSucceeded, 1) }
func (m *Metrics) DayFailed()    { atomic.AddInt64(&m.daysFailed, 1) }
func (m *Metrics) DayNoData()    { atomic.AddInt64(&m.daysNoData, 1) }
func (m *Metrics) DayRetried()   { atomic.AddInt64(&m.dayRetries, 1) }

// SetPoolWidth records the width of the most recent worker pool.
func (m *Metrics) SetPoolWidth(n int) {
	atomic.StoreInt64(&m.poolWidth, int64(n))
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		IntervalsRepaired:  atomic.LoadInt64(&m.intervalsRepaired),
		IntervalsDiscarded: atomic.LoadInt64(&m.intervalsDiscarded),
		IntervalsFailed:    atomic.LoadInt64(&m.intervalsFailed),
		SamplesRepaired:    atomic.LoadInt64(&m.samplesRepaired),
		DaysSucceeded:      atomic.LoadInt64(&m.daysSucceeded),
		DaysFailed:         atomic.LoadInt64(&m.daysFailed),
		DaysNoData:         atomic.LoadInt64(&m.daysNoData),
		DayRetries:         atomic.LoadInt64(&m.dayRetries),
		PoolWidth:          int(atomic.LoadInt64(&m.poolWidth)),
	}
}
