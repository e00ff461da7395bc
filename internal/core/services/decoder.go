package services

import (
	"context"
	"fmt"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// TraceDecoder fetches one interval file and decodes it into raw traces.
type TraceDecoder struct {
	fetcher ports.Fetcher
	codec   ports.Decoder
}

func NewTraceDecoder(fetcher ports.Fetcher, codec ports.Decoder) *TraceDecoder {
	return &TraceDecoder{fetcher: fetcher, codec: codec}
}

// Decode rejects an unsupported encoding before touching the archive. Fetch
// and parse failures come back as *domain.IntervalError matching
// domain.ErrFetch and domain.ErrDecode respectively.
func (d *TraceDecoder) Decode(ctx context.Context, url string, encoding domain.Encoding) ([]domain.RawTrace, error) {
	if !encoding.Valid() {
		return nil, fmt.Errorf("%w: unsupported encoding %q", domain.ErrInvalidConfiguration, encoding)
	}
	raw, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &domain.IntervalError{URL: url, Kind: domain.ErrFetch, Err: err}
	}
	traces, err := d.codec.Decode(raw, encoding.SampleType())
	if err != nil {
		return nil, &domain.IntervalError{URL: url, Kind: domain.ErrDecode, Err: err}
	}
	return traces, nil
}
