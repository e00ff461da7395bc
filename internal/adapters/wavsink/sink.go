// Package wavsink writes repaired segments as mono WAV files for listening
// and spot checks.
package wavsink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// DefaultFullScale maps hydrophone counts onto [-1, 1]: the recorder's ADC
// is 24-bit.
const DefaultFullScale = 1 << 23

// Options configures a Sink.
type Options struct {
	// Dir is the output root; files land under Dir/wav/YYYY_MM_DD/INSTRUMENT/.
	Dir string
	// Normalize scales every segment by its own peak.
	Normalize bool
	// FullScale is the count that maps to 1.0 when not normalizing.
	FullScale float64
}

// Sink implements ports.SegmentSink.
type Sink struct {
	opts Options
}

var _ ports.SegmentSink = (*Sink)(nil)

// New constructs a Sink.
func New(opts Options) *Sink {
	if opts.FullScale <= 0 {
		opts.FullScale = DefaultFullScale
	}
	return &Sink{opts: opts}
}

// Path returns where the segment starting at start is written.
func (s *Sink) Path(refdes domain.RefDes, start time.Time) string {
	code := refdes.ShortCode()
	return filepath.Join(s.opts.Dir, "wav", start.UTC().Format("2006_01_02"), code, domain.ArtifactName(code, start)+".wav")
}

// Emit writes seg as a 24-bit mono WAV at the segment's sample rate and
// returns the file path.
func (s *Sink) Emit(ctx context.Context, refdes domain.RefDes, seg domain.RepairedSegment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if seg.SampleRate <= 0 || seg.Samples.Len() == 0 {
		return "", fmt.Errorf("wavsink: empty segment at %s", seg.Start.Format(time.RFC3339))
	}

	path := s.Path(refdes, seg.Start)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("wavsink: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("wavsink: %w", err)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(int(math.Round(seg.SampleRate))),
		NumChannels: 1,
		Precision:   3,
	}
	encErr := wav.Encode(f, s.streamer(seg.Samples), format)
	if err := errors.Join(encErr, f.Close()); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("wavsink: write %s: %w", path, err)
	}

	log.Printf("INFO wavsink: wrote %s samples=%d", path, seg.Samples.Len())
	return path, nil
}

// streamer plays the samples once, scaled into [-1, 1].
func (s *Sink) streamer(samples domain.Samples) beep.Streamer {
	scale := 1 / s.opts.FullScale
	if s.opts.Normalize {
		if peak := samples.PeakAbs(); peak > 0 {
			scale = 1 / peak
		}
	}

	pos, n := 0, samples.Len()
	return beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= n {
			return 0, false
		}
		count := min(len(buf), n-pos)
		for i := range count {
			v := samples.At(pos+i) * scale
			buf[i][0], buf[i][1] = v, v
		}
		pos += count
		return count, true
	})
}
