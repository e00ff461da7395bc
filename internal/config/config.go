// Package config loads hydday settings from a YAML file overlaid by HYD_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/worker"
)

const (
	defaultConfigPath   = "config/hydday.yaml"
	defaultArchiveRoot  = "https://rawdata.oceanobservatories.org/files"
	defaultExtension    = ".mseed"
	defaultHTTPTimeout  = 2 * time.Minute
	defaultMaxRetries   = 3
	defaultBackoff      = 500 * time.Millisecond
	defaultDayAttempts  = 3
	defaultRetryDelay   = 60 * time.Second
	defaultSanityClock  = 5 * time.Minute
	defaultWatchQuiet   = 2 * time.Minute
	defaultDBPath       = "runtime/hydday.db"
	defaultHTTPAddr     = ":8080"
	defaultOutputDir    = "data"
	defaultEncodingName = string(domain.EncodingPCM32)
)

// Config holds every tunable of the reconstruction tools.
type Config struct {
	Archive  ArchiveConfig
	Repair   RepairConfig
	Pipeline PipelineConfig

	DBPath    string
	HTTPAddr  string
	OutputDir string
	WriteWAV  bool
	Normalize bool

	WatchQuiet time.Duration

	ConfigPath   string
	StrictConfig bool
}

// ArchiveConfig describes where interval files come from.
type ArchiveConfig struct {
	Root        string
	Extension   string
	HTTPTimeout time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	OAuth       OAuthConfig
}

// OAuthConfig enables client-credentials authentication against the archive
// when ClientID and TokenURL are set.
type OAuthConfig struct {
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// Enabled reports whether credentials are configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.TokenURL != ""
}

// RepairConfig are the per-day reconstruction knobs.
type RepairConfig struct {
	SampleRate      float64
	IntervalSeconds int
	JitterTolerance int
	GapTolerance    float64
	Encoding        string
	Concurrency     int // 0 selects the pool default
}

// PipelineConfig controls whole-day retries and the sanity-check pick.
type PipelineConfig struct {
	Attempts    int
	RetryDelay  time.Duration
	SanityClock time.Duration
}

type fileConfig struct {
	Archive struct {
		Root        string         `yaml:"root"`
		Extension   string         `yaml:"extension"`
		HTTPTimeout *time.Duration `yaml:"http_timeout"`
		MaxRetries  *int           `yaml:"max_retries"`
		BaseBackoff *time.Duration `yaml:"base_backoff"`
		OAuth       OAuthConfig    `yaml:"oauth"`
	} `yaml:"archive"`
	Repair struct {
		SampleRate      *float64 `yaml:"sample_rate"`
		IntervalSeconds *int     `yaml:"interval_seconds"`
		JitterTolerance *int     `yaml:"jitter_tolerance"`
		GapTolerance    *float64 `yaml:"gap_tolerance"`
		Encoding        string   `yaml:"encoding"`
		Concurrency     *int     `yaml:"concurrency"`
	} `yaml:"repair"`
	Pipeline struct {
		Attempts    *int           `yaml:"attempts"`
		RetryDelay  *time.Duration `yaml:"retry_delay"`
		SanityClock *time.Duration `yaml:"sanity_clock"`
	} `yaml:"pipeline"`
	DBPath     string         `yaml:"db_path"`
	HTTPAddr   string         `yaml:"http_addr"`
	OutputDir  string         `yaml:"output_dir"`
	WriteWAV   *bool          `yaml:"write_wav"`
	Normalize  *bool          `yaml:"normalize"`
	WatchQuiet *time.Duration `yaml:"watch_quiet"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Archive: ArchiveConfig{
			Root:        defaultArchiveRoot,
			Extension:   defaultExtension,
			HTTPTimeout: defaultHTTPTimeout,
			MaxRetries:  defaultMaxRetries,
			BaseBackoff: defaultBackoff,
		},
		Repair: RepairConfig{
			SampleRate:      domain.DefaultSampleRate,
			IntervalSeconds: int(domain.DefaultDuration / time.Second),
			JitterTolerance: domain.DefaultJitterTolerance,
			GapTolerance:    domain.DefaultGapTolerance,
			Encoding:        defaultEncodingName,
		},
		Pipeline: PipelineConfig{
			Attempts:    defaultDayAttempts,
			RetryDelay:  defaultRetryDelay,
			SanityClock: defaultSanityClock,
		},
		DBPath:     defaultDBPath,
		HTTPAddr:   defaultHTTPAddr,
		OutputDir:  defaultOutputDir,
		WatchQuiet: defaultWatchQuiet,
	}
}

// Load reads the YAML file at path (HYD_CONFIG or config/hydday.yaml when
// empty) and applies HYD_* environment overrides. A missing or unreadable
// file falls back to defaults unless HYD_STRICT_CONFIG is set.
func Load(path string) (Config, error) {
	cfg := Defaults()
	cfg.StrictConfig = parseBoolEnv("HYD_STRICT_CONFIG")
	cfg.ConfigPath = firstNonEmpty(path, os.Getenv("HYD_CONFIG"), defaultConfigPath)

	fileCfg, err := loadFileConfig(cfg.ConfigPath)
	if err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, err)
		}
		log.Printf("WARN config: load failed (%s): %v (using defaults)", cfg.ConfigPath, err)
	}
	applyFile(&cfg, fileCfg)

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if _, err := cfg.ReconstructParams(); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("WARN config: validation failed: %v (continuing)", err)
	}
	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f fileConfig) {
	a := &cfg.Archive
	a.Root = firstNonEmpty(f.Archive.Root, a.Root)
	a.Extension = firstNonEmpty(f.Archive.Extension, a.Extension)
	setPositive(&a.HTTPTimeout, f.Archive.HTTPTimeout)
	if f.Archive.MaxRetries != nil && *f.Archive.MaxRetries >= 0 {
		a.MaxRetries = *f.Archive.MaxRetries
	}
	setPositive(&a.BaseBackoff, f.Archive.BaseBackoff)
	a.OAuth = f.Archive.OAuth

	r := &cfg.Repair
	setPositive(&r.SampleRate, f.Repair.SampleRate)
	setPositive(&r.IntervalSeconds, f.Repair.IntervalSeconds)
	if f.Repair.JitterTolerance != nil {
		r.JitterTolerance = *f.Repair.JitterTolerance
	}
	setPositive(&r.GapTolerance, f.Repair.GapTolerance)
	r.Encoding = firstNonEmpty(f.Repair.Encoding, r.Encoding)
	if f.Repair.Concurrency != nil {
		r.Concurrency = *f.Repair.Concurrency
	}

	p := &cfg.Pipeline
	setPositive(&p.Attempts, f.Pipeline.Attempts)
	setPositive(&p.RetryDelay, f.Pipeline.RetryDelay)
	if f.Pipeline.SanityClock != nil && *f.Pipeline.SanityClock >= 0 {
		p.SanityClock = *f.Pipeline.SanityClock
	}

	cfg.DBPath = firstNonEmpty(f.DBPath, cfg.DBPath)
	cfg.HTTPAddr = firstNonEmpty(f.HTTPAddr, cfg.HTTPAddr)
	cfg.OutputDir = firstNonEmpty(f.OutputDir, cfg.OutputDir)
	if f.WriteWAV != nil {
		cfg.WriteWAV = *f.WriteWAV
	}
	if f.Normalize != nil {
		cfg.Normalize = *f.Normalize
	}
	setPositive(&cfg.WatchQuiet, f.WatchQuiet)
}

// applyEnv overlays HYD_* variables. Malformed numbers are logged and
// ignored, or rejected in strict mode.
func applyEnv(cfg *Config) error {
	var errs []error
	bad := func(key string, err error) {
		if cfg.StrictConfig {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		log.Printf("WARN config: invalid %s: %v (ignored)", key, err)
	}

	cfg.Archive.Root = firstNonEmpty(os.Getenv("HYD_ARCHIVE_ROOT"), cfg.Archive.Root)
	cfg.Archive.Extension = firstNonEmpty(os.Getenv("HYD_EXTENSION"), cfg.Archive.Extension)
	cfg.Archive.OAuth.TokenURL = firstNonEmpty(os.Getenv("HYD_OAUTH_TOKEN_URL"), cfg.Archive.OAuth.TokenURL)
	cfg.Archive.OAuth.ClientID = firstNonEmpty(os.Getenv("HYD_OAUTH_CLIENT_ID"), cfg.Archive.OAuth.ClientID)
	cfg.Archive.OAuth.ClientSecret = firstNonEmpty(os.Getenv("HYD_OAUTH_CLIENT_SECRET"), cfg.Archive.OAuth.ClientSecret)
	cfg.Repair.Encoding = firstNonEmpty(os.Getenv("HYD_ENCODING"), cfg.Repair.Encoding)
	cfg.DBPath = firstNonEmpty(os.Getenv("HYD_DB_PATH"), cfg.DBPath)
	cfg.HTTPAddr = firstNonEmpty(os.Getenv("HYD_HTTP_ADDR"), cfg.HTTPAddr)
	cfg.OutputDir = firstNonEmpty(os.Getenv("HYD_OUTPUT_DIR"), cfg.OutputDir)
	if v := strings.TrimSpace(os.Getenv("HYD_WRITE_WAV")); v != "" {
		cfg.WriteWAV = parseBoolEnv("HYD_WRITE_WAV")
	}
	if v := strings.TrimSpace(os.Getenv("HYD_NORMALIZE")); v != "" {
		cfg.Normalize = parseBoolEnv("HYD_NORMALIZE")
	}

	for key, dst := range map[string]*int{
		"HYD_MAX_RETRIES":      &cfg.Archive.MaxRetries,
		"HYD_INTERVAL_SECONDS": &cfg.Repair.IntervalSeconds,
		"HYD_JITTER_TOLERANCE": &cfg.Repair.JitterTolerance,
		"HYD_CONCURRENCY":      &cfg.Repair.Concurrency,
		"HYD_DAY_ATTEMPTS":     &cfg.Pipeline.Attempts,
	} {
		if v, ok, err := parseIntEnv(key); err != nil {
			bad(key, err)
		} else if ok && v < 0 {
			bad(key, fmt.Errorf("must not be negative, got %d", v))
		} else if ok {
			*dst = v
		}
	}

	for key, dst := range map[string]*float64{
		"HYD_SAMPLE_RATE":   &cfg.Repair.SampleRate,
		"HYD_GAP_TOLERANCE": &cfg.Repair.GapTolerance,
	} {
		if v, ok, err := parseFloatEnv(key); err != nil {
			bad(key, err)
		} else if ok && v <= 0 {
			bad(key, fmt.Errorf("must be positive, got %v", v))
		} else if ok {
			*dst = v
		}
	}

	for key, dst := range map[string]*time.Duration{
		"HYD_HTTP_TIMEOUT":    &cfg.Archive.HTTPTimeout,
		"HYD_BACKOFF":         &cfg.Archive.BaseBackoff,
		"HYD_DAY_RETRY_DELAY": &cfg.Pipeline.RetryDelay,
		"HYD_SANITY_CLOCK":    &cfg.Pipeline.SanityClock,
		"HYD_WATCH_QUIET":     &cfg.WatchQuiet,
	} {
		if v, ok, err := parseDurationEnv(key); err != nil {
			bad(key, err)
		} else if ok && v < 0 {
			bad(key, fmt.Errorf("must not be negative, got %s", v))
		} else if ok {
			*dst = v
		}
	}

	return errors.Join(errs...)
}

// Concurrency resolves the configured pool width. Zero selects the pool
// default; negative widths are rejected by ReconstructParams.
func (c Config) Concurrency() int {
	if c.Repair.Concurrency == 0 {
		return worker.DefaultWidth()
	}
	return c.Repair.Concurrency
}

// ReconstructParams converts the repair settings into validated domain
// parameters.
func (c Config) ReconstructParams() (domain.ReconstructParams, error) {
	if c.Repair.Concurrency < 0 {
		return domain.ReconstructParams{}, fmt.Errorf("%w: concurrency must not be negative, got %d", domain.ErrInvalidConfiguration, c.Repair.Concurrency)
	}
	enc, err := domain.ParseEncoding(c.Repair.Encoding)
	if err != nil {
		return domain.ReconstructParams{}, err
	}
	p := domain.ReconstructParams{
		Encoding: enc,
		Repair: domain.RepairParams{
			SampleRate:      c.Repair.SampleRate,
			Duration:        time.Duration(c.Repair.IntervalSeconds) * time.Second,
			JitterTolerance: c.Repair.JitterTolerance,
			GapTolerance:    c.Repair.GapTolerance,
		},
		Concurrency: c.Concurrency(),
	}
	if err := p.Validate(); err != nil {
		return domain.ReconstructParams{}, err
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

type positive interface {
	~int | ~int64 | ~float64
}

func setPositive[T positive](dst *T, v *T) {
	if v != nil && *v > 0 {
		*dst = *v
	}
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}

func parseDurationEnv(key string) (time.Duration, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := time.ParseDuration(raw)
	return val, true, err
}
