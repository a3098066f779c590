package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jandubois/clinicprobe/internal/clinic"
	"github.com/jandubois/clinicprobe/internal/store"
)

// Environment variables consulted by Load.
const (
	EnvConfig   = "CLINICPROBE_CONFIG"
	EnvBaseURL  = "CLINICPROBE_BASE_URL"
	EnvStore    = "CLINICPROBE_STORE"
	EnvStoreKey = "CLINICPROBE_STORE_KEY"
	EnvLogLevel = "CLINICPROBE_LOG_LEVEL"
)

// ProbeConfig holds configuration shared by all probes.
type ProbeConfig struct {
	BaseURL   string           `yaml:"base_url"`
	StorePath string           `yaml:"store_path"`
	StoreKey  string           `yaml:"store_key"`
	Endpoints clinic.Endpoints `yaml:"endpoints"`
	// Timeout bounds each HTTP request; zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// Delay is how long the run command waits after the store is ready.
	Delay         time.Duration `yaml:"delay"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	LogLevel      string        `yaml:"log_level"`
	NoColor       bool          `yaml:"no_color"`
}

// StubConfig holds configuration for the stub server.
type StubConfig struct {
	Port      int
	Unhealthy bool
	Endpoints clinic.Endpoints
}

// Default returns the built-in configuration.
func Default() *ProbeConfig {
	return &ProbeConfig{
		BaseURL:       "http://localhost:8080",
		StorePath:     defaultStorePath(),
		StoreKey:      store.DefaultKey,
		Endpoints:     clinic.DefaultEndpoints(),
		MaxConcurrent: 3,
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $CLINICPROBE_CONFIG) and environment overrides, in that order. A missing
// file is only an error when path was given explicitly.
func Load(path string) (*ProbeConfig, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.fillDefaults()
	return cfg, nil
}

func applyEnv(cfg *ProbeConfig) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv(EnvStoreKey); v != "" {
		cfg.StoreKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *ProbeConfig) fillDefaults() {
	def := Default()
	if c.StoreKey == "" {
		c.StoreKey = def.StoreKey
	}
	if c.StorePath == "" {
		c.StorePath = def.StorePath
	}
	if c.Endpoints.Health == "" {
		c.Endpoints.Health = def.Endpoints.Health
	}
	if c.Endpoints.Upload == "" {
		c.Endpoints.Upload = def.Endpoints.Upload
	}
	if c.Endpoints.Relocate == "" {
		c.Endpoints.Relocate = def.Endpoints.Relocate
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks that the configuration is usable.
func (c *ProbeConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "clinicprobe.db"
	}
	return filepath.Join(dir, "clinicprobe", "cache.db")
}
