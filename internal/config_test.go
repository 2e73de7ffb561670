package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgconfig "github.com/starford/loaderd/pkg/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Uploads.MaxBytes() != 100<<20 {
		t.Errorf("max upload = %d", cfg.Uploads.MaxBytes())
	}
	if cfg.Uploads.TTL() != 72*time.Hour {
		t.Errorf("upload ttl = %v", cfg.Uploads.TTL())
	}
	if cfg.Tracker.SweepInterval() != 15*time.Minute {
		t.Errorf("sweep interval = %v", cfg.Tracker.SweepInterval())
	}
}

func TestConfigDataDirs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Data.Dir = "/srv/loaderd"
	if got := cfg.Data.SnapshotsDir(); got != filepath.Join("/srv/loaderd", "snapshots") {
		t.Errorf("snapshots dir = %q", got)
	}
	if got := cfg.Data.UploadsDir(); got != filepath.Join("/srv/loaderd", "uploads") {
		t.Errorf("uploads dir = %q", got)
	}
}

func TestConfigLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_TAVILY_KEY", "tvly-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  http:
    port: 9090
providers:
  tavily_api_key: ${TEST_TAVILY_KEY}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Providers.TavilyAPIKey != "tvly-secret" {
		t.Errorf("tavily key = %q", cfg.Providers.TavilyAPIKey)
	}
	// Untouched sections keep their defaults.
	if cfg.SQLite.Path != "./loaderd.db" {
		t.Errorf("sqlite path = %q", cfg.SQLite.Path)
	}
}

func TestConfigValidationRejectsBadPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 must fail validation")
	}
}

func TestLoadIfExistsMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("missing optional file must not error: %v", err)
	}
}
