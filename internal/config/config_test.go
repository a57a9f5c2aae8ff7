package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	content := `
server:
  listen_addr: ":8090"
  session_ttl: 12h

tracker:
  base_url: "https://tracker.test.com"
  timezone: "Europe/Berlin"
  campaigns_per_page: 50
  report_per_page: 500
  timeout: 15s

storage:
  backend: "remote"
  remote:
    base_url: "https://docs.test.com"
    owner: "ops"
    api_key: "store-key"
  purge_on_logout: true

database:
  path: "/tmp/test.db"

logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %v, want :8090", cfg.Server.ListenAddr)
	}
	if cfg.Server.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.Server.SessionTTL)
	}
	if cfg.Tracker.BaseURL != "https://tracker.test.com" {
		t.Errorf("Tracker.BaseURL = %v", cfg.Tracker.BaseURL)
	}
	if cfg.Tracker.Timezone != "Europe/Berlin" {
		t.Errorf("Tracker.Timezone = %v", cfg.Tracker.Timezone)
	}
	if cfg.Tracker.CampaignsPerPage != 50 {
		t.Errorf("CampaignsPerPage = %v, want 50", cfg.Tracker.CampaignsPerPage)
	}
	if cfg.Storage.Backend != "remote" {
		t.Errorf("Storage.Backend = %v, want remote", cfg.Storage.Backend)
	}
	if cfg.Storage.Remote.Owner != "ops" {
		t.Errorf("Storage.Remote.Owner = %v, want ops", cfg.Storage.Remote.Owner)
	}
	if !cfg.Storage.PurgeOnLogout {
		t.Error("PurgeOnLogout = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.SessionTTL != 24*time.Hour {
		t.Errorf("default SessionTTL = %v, want 24h", cfg.Server.SessionTTL)
	}
	if cfg.Tracker.BaseURL != "https://app.redtrack.io" {
		t.Errorf("default Tracker.BaseURL = %v", cfg.Tracker.BaseURL)
	}
	if cfg.Tracker.Timezone != "America/New_York" {
		t.Errorf("default Tracker.Timezone = %v", cfg.Tracker.Timezone)
	}
	if cfg.Tracker.CampaignsPerPage != 100 {
		t.Errorf("default CampaignsPerPage = %v, want 100", cfg.Tracker.CampaignsPerPage)
	}
	if cfg.Tracker.ReportPerPage != 1000 {
		t.Errorf("default ReportPerPage = %v, want 1000", cfg.Tracker.ReportPerPage)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("default Storage.Backend = %v, want local", cfg.Storage.Backend)
	}
	if cfg.Storage.Remote.Owner != "default-user" {
		t.Errorf("default Storage.Remote.Owner = %v", cfg.Storage.Remote.Owner)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %v/%v, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Metrics.ListenAddr != ":9090" || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default metrics = %v %v", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateBackend(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage:\n  backend: \"s3\"\n")); err == nil {
		t.Error("expected error for unknown storage backend")
	}
}

func TestValidateRemoteRequiresBaseURL(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage:\n  backend: \"remote\"\n")); err == nil {
		t.Error("expected error when remote backend has no base_url")
	}
}

func TestValidateTLSRequiresCertAndKey(t *testing.T) {
	content := `
server:
  tls:
    enabled: true
    cert_file: "/etc/trackboard/cert.pem"
`
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Error("expected error when TLS is enabled without a key file")
	}
}
