package worker

import (
	"context"
	"log"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// TraceSource fetches and decodes the raw traces of one interval.
type TraceSource interface {
	Decode(ctx context.Context, url string, encoding domain.Encoding) ([]domain.RawTrace, error)
}

// Analyzer is the per-interval task: decode the interval's traces, then run
// the repair policy over them.
type Analyzer struct {
	source   TraceSource
	encoding domain.Encoding
	params   domain.RepairParams
}

func NewAnalyzer(source TraceSource, encoding domain.Encoding, params domain.RepairParams) *Analyzer {
	return &Analyzer{source: source, encoding: encoding, params: params}
}

// Analyze implements Task.
func (a *Analyzer) Analyze(ctx context.Context, iv domain.Interval) domain.Outcome {
	traces, err := a.source.Decode(ctx, iv.URL, a.encoding)
	if err != nil {
		log.Printf("WARN worker: %v", err)
		return domain.Failed(err)
	}
	out := domain.Repair(traces, a.params)
	if out.Status == domain.StatusDiscarded {
		log.Printf("WARN worker: discarding %s: %s (%d traces)", iv.Name, out.Reason, len(traces))
	}
	return out
}
