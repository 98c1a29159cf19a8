package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	"github.com/goliatone/go-portal-metrics/components/dashboard/gorouter"
)

type serveCmd struct {
	Addr     string `env:"PORTAL_ADDR" help:"Listen address (defaults to the config file value or :8080)."`
	BasePath string `env:"PORTAL_BASE_PATH" help:"Mount path for portal routes."`
	Manifest string `type:"path" env:"PORTAL_MANIFEST" help:"Widget manifest YAML with extra KPI widgets."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	cmd.apply(&cfg)

	logger, err := g.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := openData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	authService, err := newAuthService(cfg, data, true)
	if err != nil {
		return err
	}
	app, err := buildPortal(ctx, cfg, data)
	if err != nil {
		return err
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:         server.Router(),
		Controller:     app.controller,
		API:            app.executor,
		Queries:        app.queries,
		Auth:           authService,
		Broadcast:      app.broadcast,
		BasePath:       cfg.BasePath,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookies:  cfg.SecureCookies,
	}); err != nil {
		return fmt.Errorf("portalctl: register routes: %w", err)
	}

	logger.Info("portal ready",
		zap.String("addr", cfg.Addr),
		zap.String("base_path", cfg.BasePath),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("allowed_domain", authService.Gate().Domain()),
	)
	return listen(ctx, server, cfg.Addr, cfg.ShutdownTimeout, logger)
}

type listener interface {
	Serve(address string) error
	Shutdown(ctx context.Context) error
}

// listen serves until ctx is cancelled, then shuts the server down within timeout.
func listen(ctx context.Context, server listener, addr string, timeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("portalctl: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("portalctl: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("portalctl: serve: %w", err)
	}
	return nil
}

func (cmd *serveCmd) apply(cfg *Config) {
	if cmd.Addr != "" {
		cfg.Addr = cmd.Addr
	}
	if cmd.BasePath != "" {
		cfg.BasePath = cmd.BasePath
	}
	if cmd.Manifest != "" {
		cfg.Manifest = cmd.Manifest
	}
}
