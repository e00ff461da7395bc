package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// dayParams scales a hydrophone day down to 10 Hz; the interval layout and
// the tolerances are unchanged.
func dayParams() domain.RepairParams {
	return domain.RepairParams{SampleRate: 10, Duration: 5 * time.Minute, JitterTolerance: 10, GapTolerance: 0.02}
}

func reconstructParams(p domain.RepairParams, concurrency int) domain.ReconstructParams {
	return domain.ReconstructParams{Encoding: domain.EncodingPCM32, Repair: p, Concurrency: concurrency}
}

func assertChronological(t *testing.T, res domain.DayResult) {
	t.Helper()
	for i := 1; i < len(res.Entries); i++ {
		if !res.Entries[i-1].Start().Before(res.Entries[i].Start()) {
			t.Fatalf("entry %d (%v) does not start after entry %d (%v)", i, res.Entries[i].Start(), i-1, res.Entries[i-1].Start())
		}
	}
}

func TestReconstruct_CleanDay(t *testing.T) {
	p := dayParams()
	archive := newMemArchive()
	seedDay(t, archive, 288, p, nil)
	r := newTestReconstructor(archive, p)

	res, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 8))
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(res.Entries) != 288 || len(res.Repaired()) != 288 {
		t.Fatalf("entries: got %d (%d repaired), want 288", len(res.Entries), len(res.Repaired()))
	}
	assertChronological(t, res)
	for i, e := range res.Entries {
		seg := e.Outcome.Segment
		if seg.SampleCount != 3000 || seg.Path != domain.PathJitterOnly {
			t.Fatalf("entry %d: count %d path %s", i, seg.SampleCount, seg.Path)
		}
		if want := testDay.Add(time.Duration(i) * 5 * time.Minute); !seg.Start.Equal(want) {
			t.Fatalf("entry %d: start %v, want %v", i, seg.Start, want)
		}
	}
	if res.TotalSamples() != 288*3000 {
		t.Fatalf("total samples: got %d", res.TotalSamples())
	}
	if got := domain.ArtifactName(testRefDes.ShortCode(), res.Entries[1].Outcome.Segment.Start); got != "HYDBBA105_20250116_000500" {
		t.Fatalf("artifact name: got %q", got)
	}
}

// Interval 100 is 50 samples short with a 5 s hole between its two traces.
func gappyDay(i int, start time.Time) []domain.RawTrace {
	if i != 100 {
		return nil
	}
	a := cleanTrace(start, 10, 1500)
	b := cleanTrace(next(a, 5), 10, 1450)
	return []domain.RawTrace{a, b}
}

func TestReconstruct_OneUnrepairableGap(t *testing.T) {
	p := dayParams()
	archive := newMemArchive()
	seedDay(t, archive, 288, p, gappyDay)
	r := newTestReconstructor(archive, p)

	res, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 4))
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(res.Entries) != 288 || len(res.Repaired()) != 287 {
		t.Fatalf("entries: got %d, repaired %d", len(res.Entries), len(res.Repaired()))
	}
	e := res.Entries[100]
	if e.Outcome.Status != domain.StatusDiscarded || e.Outcome.Reason != domain.ReasonUnrepairableGap {
		t.Fatalf("entry 100: got %s %q", e.Outcome.Status, e.Outcome.Reason)
	}
	if e.Interval.Index != 100 {
		t.Fatalf("discarded entry moved to position of interval %d", e.Interval.Index)
	}
	assertChronological(t, res)
}

func TestReconstruct_ShortIntervalWithinJitter(t *testing.T) {
	p := domain.RepairParams{SampleRate: 100, Duration: 5 * time.Minute, JitterTolerance: 640, GapTolerance: 0.02}
	archive := newMemArchive()
	// 300 samples short, and the hole would fail a gap check
	seedDay(t, archive, 3, p, func(i int, start time.Time) []domain.RawTrace {
		if i != 0 {
			return nil
		}
		a := cleanTrace(start, 100, 10000)
		return []domain.RawTrace{a, cleanTrace(next(a, 3), 100, 19700)}
	})
	r := newTestReconstructor(archive, p)

	res, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 2))
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	seg := res.Entries[0].Outcome.Segment
	if seg == nil || seg.SampleCount != 29700 || seg.Path != domain.PathJitterOnly || seg.TraceCount != 2 {
		t.Fatalf("entry 0: got %+v", res.Entries[0].Outcome)
	}
}

func TestReconstruct_CorruptIntervalFailsAfterDrain(t *testing.T) {
	p := dayParams()
	archive := newMemArchive()
	seedDay(t, archive, 288, p, nil)
	corrupt := dayDir(testRefDes, testDay) + fileName(testDay.Add(150*5*time.Minute))
	archive.files[corrupt] = []byte("000001D HYEA2  YDHOO garbage that is not a record")
	r := newTestReconstructor(archive, p)

	res, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 6))

	var dayErr *domain.DayFailedError
	if !errors.As(err, &dayErr) || !errors.Is(err, domain.ErrDayFailed) {
		t.Fatalf("expected DayFailedError, got %v", err)
	}
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected the decode failure to be reachable, got %v", err)
	}
	if len(dayErr.Failed) != 1 || dayErr.Failed[0].Interval.URL != corrupt {
		t.Fatalf("failed intervals: %+v", dayErr.Failed)
	}
	if got := archive.fetches.Load(); got != 288 {
		t.Fatalf("fetches: got %d, want every interval attempted", got)
	}
	if len(res.Entries) != 288 || len(res.Repaired()) != 287 {
		t.Fatalf("entries: got %d, repaired %d", len(res.Entries), len(res.Repaired()))
	}
	if res.Entries[150].Outcome.Status != domain.StatusFailed {
		t.Fatalf("entry 150: got %s", res.Entries[150].Outcome.Status)
	}
}

func TestReconstruct_Idempotent(t *testing.T) {
	p := dayParams()
	archive := newMemArchive()
	seedDay(t, archive, 48, p, gappyDay)
	r := newTestReconstructor(archive, p)

	first, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 1))
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	for _, width := range []int{1, 3, 16} {
		again, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, width))
		if err != nil {
			t.Fatalf("reconstruct: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("width %d: result differs from the first run", width)
		}
	}
}

func TestReconstruct_NoData(t *testing.T) {
	p := dayParams()
	r := newTestReconstructor(newMemArchive(), p)

	res, err := r.Reconstruct(context.Background(), testRefDes, testDay, reconstructParams(p, 2))
	if err != nil {
		t.Fatalf("expected no error for a missing day, got %v", err)
	}
	if !res.Empty() || res.RefDes != testRefDes || !res.Day.Equal(testDay) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReconstruct_InvalidConfiguration(t *testing.T) {
	p := dayParams()
	archive := newMemArchive()
	seedDay(t, archive, 5, p, nil)
	r := newTestReconstructor(archive, p)

	tests := []struct {
		name   string
		params domain.ReconstructParams
	}{
		{name: "encoding", params: domain.ReconstructParams{Encoding: "MP3", Repair: p, Concurrency: 2}},
		{name: "jitter", params: reconstructParams(domain.RepairParams{SampleRate: 10, Duration: 5 * time.Minute, JitterTolerance: 0, GapTolerance: 0.02}, 2)},
		{name: "gap tolerance", params: reconstructParams(domain.RepairParams{SampleRate: 10, Duration: 5 * time.Minute, JitterTolerance: 10, GapTolerance: -1}, 2)},
		{name: "concurrency", params: reconstructParams(p, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Reconstruct(context.Background(), testRefDes, testDay, tc.params)
			if !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
	if archive.fetches.Load() != 0 {
		t.Fatalf("invalid configuration reached the archive")
	}
}
