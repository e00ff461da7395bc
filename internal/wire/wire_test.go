package wire

import (
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/archive"
	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/localfs"
	"github.com/ooi-data/ooi-hyd-tools/internal/config"
)

func TestArchive_PicksAdapterFromRoot(t *testing.T) {
	tests := []struct {
		name  string
		root  string
		local bool
	}{
		{name: "remote server", root: "https://rawdata.oceanobservatories.org/files", local: false},
		{name: "mirror path", root: "/data/mirror", local: true},
		{name: "mirror url", root: "file:///data/mirror", local: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Archive.Root = tc.root
			switch Archive(cfg).(type) {
			case localfs.Mirror:
				if !tc.local {
					t.Fatalf("expected the HTTP client for %s", tc.root)
				}
			case *archive.Client:
				if tc.local {
					t.Fatalf("expected the local mirror for %s", tc.root)
				}
			default:
				t.Fatalf("unexpected archive type")
			}
		})
	}
}

func TestHTTPClient_OAuth(t *testing.T) {
	cfg := config.Defaults()
	if _, ok := HTTPClient(cfg).Transport.(*oauth2.Transport); ok {
		t.Fatalf("plain client should not authenticate")
	}

	cfg.Archive.OAuth = config.OAuthConfig{TokenURL: "https://auth.example/token", ClientID: "hyd", ClientSecret: "s"}
	client := HTTPClient(cfg)
	if _, ok := client.Transport.(*oauth2.Transport); !ok {
		t.Fatalf("expected an oauth2 transport, got %T", client.Transport)
	}
	if client.Timeout != cfg.Archive.HTTPTimeout {
		t.Fatalf("timeout: got %s", client.Timeout)
	}
}

func TestApp_Pipeline(t *testing.T) {
	cfg := config.Defaults()
	cfg.Archive.Root = t.TempDir()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "runs.db")

	app := New(cfg)
	defer app.Close()

	if app.Sink() != nil {
		t.Fatalf("sink enabled without WriteWAV")
	}
	if _, err := app.Pipeline(); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	first, _ := app.Runs()
	second, _ := app.Runs()
	if first != second {
		t.Fatalf("repository opened twice")
	}

	app.Config.WriteWAV = true
	if app.Sink() == nil {
		t.Fatalf("expected a sink with WriteWAV")
	}
}
