// Package cli implements the hydday commands.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/config"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/version"
	"github.com/ooi-data/ooi-hyd-tools/internal/wire"
)

// overrides are the persistent flags that take precedence over the config
// file and the environment.
type overrides struct {
	configPath      string
	archiveRoot     string
	encoding        string
	jitterTolerance int
	gapTolerance    float64
	concurrency     int
	wav             bool
	normalize       bool
	outputDir       string
}

// RootCmd returns the hydday command tree.
func RootCmd() *cobra.Command {
	var o overrides

	root := &cobra.Command{
		Use:     "hydday",
		Short:   "Reconstruct daily OOI broadband hydrophone records",
		Version: version.String(),
		Long: `hydday lists the 5 minute miniSEED files of an instrument-day in the OOI
raw data archive, repairs each one into a continuous segment and reports what
was repaired, discarded or failed.

Reference designators look like CE04OSBP-LJ01C-11-HYDBBA105 and dates like
2025/01/16.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "config file (default $HYD_CONFIG or config/hydday.yaml)")
	pf.StringVar(&o.archiveRoot, "archive-root", "", "archive root URL or local mirror directory")
	pf.StringVar(&o.encoding, "encoding", "", "sample encoding: PCM_32, PCM_24 or FLOAT")
	pf.IntVar(&o.jitterTolerance, "jitter-tolerance", 0, "samples an interval may deviate from nominal and still be joined blindly")
	pf.Float64Var(&o.gapTolerance, "gap-tolerance", 0, "largest gap or overlap in seconds absorbed when joining traces")
	pf.IntVar(&o.concurrency, "concurrency", 0, "intervals processed at once (0 = 2 x CPUs)")
	pf.BoolVar(&o.wav, "wav", false, "write repaired segments as WAV files")
	pf.BoolVar(&o.normalize, "normalize", false, "peak-normalize WAV output")
	pf.StringVar(&o.outputDir, "out", "", "output directory for WAV files")

	root.AddCommand(discoverCmd(&o))
	root.AddCommand(reconstructCmd(&o))
	root.AddCommand(rangeCmd(&o))
	root.AddCommand(watchCmd(&o))
	root.AddCommand(runsCmd(&o))
	return root
}

// loadConfig reads the config and applies the flags the user actually set.
func loadConfig(cmd *cobra.Command, o *overrides) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	applyOverrides(cmd, o, &cfg)
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, o *overrides, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("archive-root") {
		cfg.Archive.Root = o.archiveRoot
	}
	if changed("encoding") {
		cfg.Repair.Encoding = o.encoding
	}
	if changed("jitter-tolerance") {
		cfg.Repair.JitterTolerance = o.jitterTolerance
	}
	if changed("gap-tolerance") {
		cfg.Repair.GapTolerance = o.gapTolerance
	}
	if changed("concurrency") {
		cfg.Repair.Concurrency = o.concurrency
	}
	if changed("wav") {
		cfg.WriteWAV = o.wav
	}
	if changed("normalize") {
		cfg.Normalize = o.normalize
	}
	if changed("out") {
		cfg.OutputDir = o.outputDir
	}
}

// setup loads the config, validates the reconstruction parameters and
// wires the application.
func setup(cmd *cobra.Command, o *overrides) (*wire.App, domain.ReconstructParams, error) {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return nil, domain.ReconstructParams{}, err
	}
	params, err := cfg.ReconstructParams()
	if err != nil {
		return nil, domain.ReconstructParams{}, err
	}
	return wire.New(cfg), params, nil
}

func parseDayArgs(refArg, dayArg string) (domain.RefDes, time.Time, error) {
	refdes, err := domain.ParseRefDes(refArg)
	if err != nil {
		return domain.RefDes{}, time.Time{}, err
	}
	day, err := domain.ParseDay(dayArg)
	if err != nil {
		return domain.RefDes{}, time.Time{}, err
	}
	return refdes, day, nil
}
