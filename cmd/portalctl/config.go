package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
	"github.com/goliatone/go-portal-metrics/pkg/storage/sqlstore"
)

// Config is the portalctl configuration file. Flags and PORTAL_* environment
// variables override the values it carries.
type Config struct {
	Addr            string          `yaml:"addr"`
	BasePath        string          `yaml:"base_path"`
	Title           string          `yaml:"title"`
	Manifest        string          `yaml:"manifest"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes"`
	SecureCookies   bool            `yaml:"secure_cookies"`
	TopFeatures     int             `yaml:"top_features"`
	ChartCacheTTL   time.Duration   `yaml:"chart_cache_ttl"`
	// ShutdownTimeout bounds draining in-flight requests on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Catalog         metrics.Catalog `yaml:"catalog"`
	Database        sqlstore.Config `yaml:"database"`
	REST            RESTConfig      `yaml:"rest"`
	Auth            AuthConfig      `yaml:"auth"`
}

// RESTConfig points the metrics repository at a hosted PostgREST endpoint.
// When BaseURL is empty the SQL store serves metrics too.
type RESTConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// AuthConfig configures sign-in.
type AuthConfig struct {
	Domain      string        `yaml:"domain"`
	Secret      string        `yaml:"secret"`
	RecoveryURL string        `yaml:"recovery_url"`
	AccessTTL   time.Duration `yaml:"access_ttl"`
	RefreshTTL  time.Duration `yaml:"refresh_ttl"`
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8080",
		BasePath:        "/portal",
		Title:           "Product Metrics",
		ChartCacheTTL:   10 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		Catalog:         metrics.DefaultCatalog(),
		Database: sqlstore.Config{
			Driver: sqlstore.DriverSQLite,
			DSN:    "file:portal.db",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults;
// a missing file is an error only when explicitly requested.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("portalctl: config file %s not found", path)
		}
		return cfg, fmt.Errorf("portalctl: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("portalctl: parse config %s: %w", path, err)
	}
	if len(cfg.Catalog.Products) == 0 && len(cfg.Catalog.Quarters) == 0 {
		cfg.Catalog = metrics.DefaultCatalog()
	}
	return cfg, nil
}
