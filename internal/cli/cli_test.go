package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/mseed"
	"github.com/ooi-data/ooi-hyd-tools/internal/config"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/services"
)

const testRefDes = "CE04OSBP-LJ01C-11-HYDBBA105"

var testDay = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)

// seedMirror writes n clean 10 Hz intervals of testDay into a mirror and
// points the config environment at it.
func seedMirror(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	refdes, _ := domain.ParseRefDes(testRefDes)
	dir := filepath.Join(root, filepath.FromSlash(refdes.ArchivePath(testDay)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		start := testDay.Add(time.Duration(i) * 5 * time.Minute)
		data := make([]int32, 3000)
		for j := range data {
			data[j] = int32(j % 100)
		}
		raw, err := mseed.Encode(domain.RawTrace{Network: "OO", Station: "HYEA2", Channel: "YDH", Start: start, SampleRate: 10, Samples: domain.IntSamples(data)}, mseed.EncodeOptions{})
		if err != nil {
			t.Fatal(err)
		}
		name := "OO-HYEA2--YDH-" + start.Format("2006-01-02T15:04:05.000000") + ".mseed"
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("HYD_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("HYD_ARCHIVE_ROOT", root)
	t.Setenv("HYD_SAMPLE_RATE", "10")
	t.Setenv("HYD_JITTER_TOLERANCE", "10")
	t.Setenv("HYD_DB_PATH", filepath.Join(t.TempDir(), "runs.db"))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDiscoverCmd(t *testing.T) {
	seedMirror(t, 3)

	out, err := execute(t, "discover", testRefDes, "2025/01/16")
	if err != nil {
		t.Fatalf("discover: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 intervals") || !strings.Contains(out, "00:10:00") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "discover", testRefDes, "2025/01/17")
	if err != nil {
		t.Fatalf("discover empty day: %v", err)
	}
	if !strings.Contains(out, "No data available") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestReconstructCmd(t *testing.T) {
	seedMirror(t, 3)
	outDir := t.TempDir()

	out, err := execute(t, "reconstruct", testRefDes, "2025/01/16", "--wav", "--out", outDir)
	if err != nil {
		t.Fatalf("reconstruct: %v\n%s", err, out)
	}
	if !strings.Contains(out, "repaired=3 discarded=0 failed=0") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "sanity check: 00:05:00") {
		t.Fatalf("missing sanity check line:\n%s", out)
	}
	wav := filepath.Join(outDir, "wav", "2025_01_16", "HYDBBA105", "HYDBBA105_20250116_000500.wav")
	if _, err := os.Stat(wav); err != nil {
		t.Fatalf("expected %s: %v", wav, err)
	}

	out, err = execute(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, testRefDes) || !strings.Contains(out, "3/0/0") {
		t.Fatalf("unexpected runs output:\n%s", out)
	}
}

func TestReconstructCmd_InvalidEncoding(t *testing.T) {
	seedMirror(t, 1)
	if _, err := execute(t, "reconstruct", testRefDes, "2025/01/16", "--encoding", "PCM_16"); err == nil {
		t.Fatalf("expected an error for an unsupported encoding")
	}
}

func TestRangeCmd_SkipsDaysWithoutData(t *testing.T) {
	seedMirror(t, 2)

	out, err := execute(t, "range", testRefDes, "2025/01/15", "2025/01/17")
	if err != nil {
		t.Fatalf("range: %v\n%s", err, out)
	}
	if strings.Count(out, "run=") != 1 {
		t.Fatalf("expected one reported day:\n%s", out)
	}
	if !strings.Contains(out, "no_data=2") {
		t.Fatalf("expected two no-data days:\n%s", out)
	}
}

func TestApplyOverrides(t *testing.T) {
	root := RootCmd()
	cmd, _, err := root.Find([]string{"reconstruct"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags([]string{"--encoding", "FLOAT", "--concurrency", "3", "--gap-tolerance", "0.5"}); err != nil {
		t.Fatal(err)
	}

	var o overrides
	o.encoding, _ = cmd.Flags().GetString("encoding")
	o.concurrency, _ = cmd.Flags().GetInt("concurrency")
	o.gapTolerance, _ = cmd.Flags().GetFloat64("gap-tolerance")

	cfg := config.Defaults()
	cfg.Repair.JitterTolerance = 99
	applyOverrides(cmd, &o, &cfg)

	if cfg.Repair.Encoding != "FLOAT" || cfg.Repair.Concurrency != 3 || cfg.Repair.GapTolerance != 0.5 {
		t.Fatalf("overrides not applied: %+v", cfg.Repair)
	}
	if cfg.Repair.JitterTolerance != 99 {
		t.Fatalf("unset flag overrode config: %d", cfg.Repair.JitterTolerance)
	}
}

func TestPrintReport(t *testing.T) {
	run := domain.RunRecord{
		ID: "run-1", RefDes: testRefDes, Day: testDay, Status: domain.RunFailed, Attempts: 3, Error: "boom",
		Entries: []domain.RunEntry{
			{NominalStart: testDay, Status: domain.StatusRepaired, SampleCount: 3000, Path: domain.PathJitterOnly},
			{NominalStart: testDay.Add(5 * time.Minute), Status: domain.StatusDiscarded, Reason: domain.ReasonUnrepairableGap},
			{NominalStart: testDay.Add(10 * time.Minute), Status: domain.StatusFailed, Error: "domain: fetch failed"},
		},
	}
	var out bytes.Buffer
	printReport(&out, services.DayReport{Run: run}, true)

	for _, want := range []string{"run=run-1", "3000 samples  jitter-only", "unrepairable gap", "domain: fetch failed", "repaired=1 discarded=1 failed=1", "boom"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
