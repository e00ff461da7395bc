package ports

import (
	"context"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// SegmentSink receives every repaired segment of a day, in order, and returns
// the location of the artifact it wrote.
type SegmentSink interface {
	Emit(ctx context.Context, refdes domain.RefDes, seg domain.RepairedSegment) (string, error)
}

// Decoder parses a raw interval container into its traces.
type Decoder interface {
	Decode(raw []byte, sampleType domain.SampleType) ([]domain.RawTrace, error)
}
