package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/goliatone/go-portal-metrics/pkg/telemetry"
)

// Globals are shared by every command.
type Globals struct {
	Config   string `short:"c" type:"path" env:"PORTAL_CONFIG" help:"YAML config file (catalog, database, auth)."`
	LogLevel string `default:"info" env:"PORTAL_LOG_LEVEL" help:"Log level (debug, info, warn, error)."`
	Dev      bool   `env:"PORTAL_DEV" help:"Human-readable development logging."`

	DBDriver      string `name:"db-driver" env:"PORTAL_DB_DRIVER" help:"Database driver (sqlite, postgres)."`
	DBDSN         string `name:"db-dsn" env:"PORTAL_DB_DSN" help:"Database connection string."`
	RestURL       string `name:"rest-url" env:"PORTAL_REST_URL" help:"Hosted PostgREST endpoint serving the metric tables."`
	RestKey       string `name:"rest-key" env:"PORTAL_REST_KEY" help:"API key sent to the REST endpoint."`
	AllowedDomain string `name:"allowed-domain" env:"PORTAL_ALLOWED_DOMAIN" help:"Email domain allowed to sign in."`
	AuthSecret    string `name:"auth-secret" env:"PORTAL_AUTH_SECRET" help:"Token signing secret (32+ bytes)."`
}

type cli struct {
	Globals

	Serve    serveCmd    `cmd:"" help:"Run the portal HTTP server."`
	Import   importCmd   `cmd:"" help:"Load a CSV or XLSX file into the store."`
	Template templateCmd `cmd:"" help:"Write the upload template for a dataset."`
	Migrate  migrateCmd  `cmd:"" help:"Apply the database schema."`
	User     userCmd     `cmd:"" help:"Manage portal users."`
	Scaffold scaffoldCmd `cmd:"" help:"Scaffold a widget definition, provider stub, and manifest entry."`
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("portalctl"),
		kong.Description("Product metrics portal: server, data imports and widget tooling."),
		kong.UsageOnError(),
		kong.Bind(&c.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run()
	stop()
	kctx.FatalIfErrorf(err)
}

// loadDotEnv populates the environment from path when it exists. Variables
// already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("portalctl: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("portalctl: load %s: %w", path, err)
	}
	return nil
}

// Load reads the config file and applies flag and environment overrides.
func (g *Globals) Load() (Config, error) {
	cfg, err := LoadConfig(g.Config)
	if err != nil {
		return cfg, err
	}
	g.apply(&cfg)
	return cfg, nil
}

func (g *Globals) apply(cfg *Config) {
	if g.DBDriver != "" {
		cfg.Database.Driver = g.DBDriver
	}
	if g.DBDSN != "" {
		cfg.Database.DSN = g.DBDSN
	}
	if g.RestURL != "" {
		cfg.REST.BaseURL = g.RestURL
	}
	if g.RestKey != "" {
		cfg.REST.APIKey = g.RestKey
	}
	if g.AllowedDomain != "" {
		cfg.Auth.Domain = g.AllowedDomain
	}
	if g.AuthSecret != "" {
		cfg.Auth.Secret = g.AuthSecret
	}
}

// Logger builds the process logger.
func (g *Globals) Logger() (*zap.Logger, error) {
	logger, err := telemetry.NewLogger(g.LogLevel, g.Dev)
	if err != nil {
		return nil, fmt.Errorf("portalctl: logger: %w", err)
	}
	return logger, nil
}
