package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig contains dashboard HTTP server settings
type ServerConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	TLS        TLSConfig     `yaml:"tls"`
}

// TLSConfig contains TLS settings for the dashboard server
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TrackerConfig contains settings for the upstream reporting service
type TrackerConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timezone         string        `yaml:"timezone"`
	CampaignsPerPage int           `yaml:"campaigns_per_page"`
	ReportPerPage    int           `yaml:"report_per_page"`
	Timeout          time.Duration `yaml:"timeout"`
}

// StorageConfig selects and configures the status store backend
type StorageConfig struct {
	// Backend is "local" (embedded bolt database) or "remote" (document store)
	Backend       string        `yaml:"backend"`
	Local         LocalStorage  `yaml:"local"`
	Remote        RemoteStorage `yaml:"remote"`
	PurgeOnLogout bool          `yaml:"purge_on_logout"`
}

// LocalStorage contains settings for the bolt-backed status store
type LocalStorage struct {
	Path string `yaml:"path"`
}

// RemoteStorage contains settings for the remote document store
type RemoteStorage struct {
	BaseURL string        `yaml:"base_url"`
	Owner   string        `yaml:"owner"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig contains the session database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 24 * time.Hour
	}
	if cfg.Tracker.BaseURL == "" {
		cfg.Tracker.BaseURL = "https://app.redtrack.io"
	}
	if cfg.Tracker.Timezone == "" {
		cfg.Tracker.Timezone = "America/New_York"
	}
	if cfg.Tracker.CampaignsPerPage == 0 {
		cfg.Tracker.CampaignsPerPage = 100
	}
	if cfg.Tracker.ReportPerPage == 0 {
		cfg.Tracker.ReportPerPage = 1000
	}
	if cfg.Tracker.Timeout == 0 {
		cfg.Tracker.Timeout = 30 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.Local.Path == "" {
		cfg.Storage.Local.Path = "/var/lib/trackboard/status.db"
	}
	if cfg.Storage.Remote.Owner == "" {
		cfg.Storage.Remote.Owner = "default-user"
	}
	if cfg.Storage.Remote.Timeout == 0 {
		cfg.Storage.Remote.Timeout = 10 * time.Second
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/trackboard/app.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "local", "remote":
	default:
		return fmt.Errorf("storage.backend must be \"local\" or \"remote\", got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "remote" {
		if cfg.Storage.Remote.BaseURL == "" {
			return fmt.Errorf("storage.remote.base_url is required when backend is remote")
		}
		if cfg.Storage.Remote.Owner == "" {
			return fmt.Errorf("storage.remote.owner is required when backend is remote")
		}
	}
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}
	return nil
}
