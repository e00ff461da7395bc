// Package wire assembles adapters and services from a config.Config.
// Expensive dependencies are created lazily, once.
package wire

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/archive"
	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/localfs"
	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/mseed"
	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/sqlite"
	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/wavsink"
	"github.com/ooi-data/ooi-hyd-tools/internal/config"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/services"
	"github.com/ooi-data/ooi-hyd-tools/internal/metrics"
)

// App holds the wired services for one process.
type App struct {
	Config        config.Config
	Metrics       *metrics.Metrics
	Archive       ports.Archive
	Index         *services.IntervalIndex
	Reconstructor *services.Reconstructor

	dbOnce sync.Once
	db     *sqlite.Adapter
	dbErr  error
}

// New builds the archive side of the application. Nothing touches the
// network or the database until it is used.
func New(cfg config.Config) *App {
	m := metrics.New()
	arc := Archive(cfg)
	index := services.NewIntervalIndex(arc, services.IndexOptions{
		Root:       cfg.Archive.Root,
		Extension:  cfg.Archive.Extension,
		Duration:   time.Duration(cfg.Repair.IntervalSeconds) * time.Second,
		SampleRate: cfg.Repair.SampleRate,
	})
	decoder := services.NewTraceDecoder(arc, mseed.Codec{})
	return &App{
		Config:        cfg,
		Metrics:       m,
		Archive:       arc,
		Index:         index,
		Reconstructor: services.NewReconstructor(index, decoder, m),
	}
}

// Archive picks the local mirror or the HTTP client from the root's scheme.
func Archive(cfg config.Config) ports.Archive {
	if localfs.IsLocal(cfg.Archive.Root) {
		return localfs.Mirror{}
	}
	return archive.NewClient(HTTPClient(cfg), archive.Options{
		MaxRetries:  cfg.Archive.MaxRetries,
		BaseBackoff: cfg.Archive.BaseBackoff,
	})
}

// HTTPClient returns the client used for the archive, authenticated with
// OAuth2 client credentials when they are configured.
func HTTPClient(cfg config.Config) *http.Client {
	base := &http.Client{Timeout: cfg.Archive.HTTPTimeout}
	oc := cfg.Archive.OAuth
	if !oc.Enabled() {
		return base
	}
	cc := clientcredentials.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		TokenURL:     oc.TokenURL,
		Scopes:       oc.Scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = cfg.Archive.HTTPTimeout
	return client
}

// Runs opens the run repository on first use.
func (a *App) Runs() (*sqlite.Adapter, error) {
	a.dbOnce.Do(func() {
		if dir := filepath.Dir(a.Config.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				a.dbErr = fmt.Errorf("wire: %w", err)
				return
			}
		}
		a.db, a.dbErr = sqlite.NewAdapter(a.Config.DBPath)
	})
	return a.db, a.dbErr
}

// Sink returns the WAV sink when WAV output is enabled, nil otherwise.
func (a *App) Sink() ports.SegmentSink {
	if !a.Config.WriteWAV {
		return nil
	}
	return wavsink.New(wavsink.Options{Dir: a.Config.OutputDir, Normalize: a.Config.Normalize})
}

// Pipeline wires the day pipeline with the repository and the sink.
func (a *App) Pipeline() (*services.Pipeline, error) {
	runs, err := a.Runs()
	if err != nil {
		return nil, err
	}
	return services.NewPipeline(a.Reconstructor, a.Sink(), runs, a.Metrics, services.PipelineOptions{
		Attempts:    a.Config.Pipeline.Attempts,
		RetryDelay:  a.Config.Pipeline.RetryDelay,
		SanityClock: a.Config.Pipeline.SanityClock,
	}), nil
}

// Close releases the database if it was opened.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
