package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
	"github.com/goliatone/go-portal-metrics/components/dashboard/gorouter"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
	"github.com/goliatone/go-portal-metrics/components/dashboard/queries"
	"github.com/goliatone/go-portal-metrics/pkg/auth"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
	"github.com/goliatone/go-portal-metrics/pkg/reststore"
	"github.com/goliatone/go-portal-metrics/pkg/storage/sqlstore"
	"github.com/goliatone/go-portal-metrics/pkg/telemetry"
)

// dataLayer holds the stores and domain services every command needs.
type dataLayer struct {
	logger   *zap.Logger
	recorder *telemetry.Recorder
	store    *sqlstore.Store
	repo     metrics.Repository
	metrics  *metrics.Service
	importer *csvimport.Importer
}

// openData opens the SQL store and layers the metrics service and importer on
// top of it. Metric tables come from the REST endpoint when one is configured;
// users, sessions and upload history always live in SQL.
func openData(ctx context.Context, cfg Config, logger *zap.Logger) (*dataLayer, error) {
	store, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	var repo metrics.Repository = store
	if cfg.REST.BaseURL != "" {
		client, err := reststore.NewClient(reststore.Config{
			BaseURL: cfg.REST.BaseURL,
			APIKey:  cfg.REST.APIKey,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		repo = client
		logger.Info("metrics served by rest store", zap.String("base_url", cfg.REST.BaseURL))
	}
	svc, err := metrics.NewService(metrics.Options{
		Repository:  repo,
		Catalog:     cfg.Catalog,
		TopFeatures: cfg.TopFeatures,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	importer, err := csvimport.NewImporter(csvimport.Options{
		Store:   repo,
		History: store,
		Catalog: svc.Catalog(),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &dataLayer{
		logger:   logger,
		recorder: telemetry.New(logger),
		store:    store,
		repo:     repo,
		metrics:  svc,
		importer: importer,
	}, nil
}

func (d *dataLayer) Close() error {
	if d == nil || d.store == nil {
		return nil
	}
	return d.store.Close()
}

// newAuthService builds the auth service over the SQL store. Commands that
// never issue tokens pass issueTokens=false and get a throwaway secret when
// none is configured.
func newAuthService(cfg Config, d *dataLayer, issueTokens bool) (*auth.Service, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		if issueTokens {
			return nil, errors.New("portalctl: auth secret is required (set PORTAL_AUTH_SECRET)")
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("portalctl: generate secret: %w", err)
		}
	}
	return auth.NewService(auth.Options{
		Store:       d.store,
		Domain:      cfg.Auth.Domain,
		Secret:      secret,
		AccessTTL:   cfg.Auth.AccessTTL,
		RefreshTTL:  cfg.Auth.RefreshTTL,
		RecoveryURL: cfg.Auth.RecoveryURL,
		Mailer:      auth.LogMailer{Logger: d.logger.Named("mailer")},
	})
}

// portal is the assembled dashboard stack served over HTTP.
type portal struct {
	service    *dashboard.Service
	controller *dashboard.Controller
	broadcast  *dashboard.BroadcastHook
	executor   *httpapi.CommandExecutor
	queries    gorouter.Queries
}

// buildPortal wires the registry, dashboard service, commands and queries, and
// seeds the default layout.
func buildPortal(ctx context.Context, cfg Config, d *dataLayer) (*portal, error) {
	chartCache := dashboard.NewChartCache(cfg.ChartCacheTTL)
	registry := dashboard.NewRegistry(
		dashboard.WithChartRenderer(dashboard.NewChartRenderer(dashboard.WithChartCache(chartCache))),
		dashboard.WithUploadHistory(d.importer),
	)
	if cfg.Manifest != "" {
		doc, err := registry.LoadManifestFile(cfg.Manifest)
		if err != nil {
			return nil, err
		}
		d.logger.Info("widget manifest loaded",
			zap.String("path", cfg.Manifest),
			zap.Int("widgets", len(doc.Widgets)),
		)
	}

	broadcast := dashboard.NewBroadcastHook()
	widgets := dashboard.NewMemoryWidgetStore()
	service := dashboard.NewService(dashboard.Options{
		WidgetStore:     widgets,
		PreferenceStore: dashboard.NewSettingsPreferenceStore(d.metrics),
		Providers:       registry,
		RefreshHook:     dashboard.NewCacheInvalidationHook(chartCache, broadcast),
		Telemetry:       d.recorder,
		Metrics:         d.metrics,
	})

	seed := commands.NewSeedDashboardCommand(widgets, registry, service, d.recorder)
	if err := seed.Execute(ctx, commands.SeedDashboardInput{SeedLayout: true}); err != nil {
		return nil, fmt.Errorf("portalctl: seed dashboard: %w", err)
	}

	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:  service,
		Renderer: renderer,
		Title:    cfg.Title,
	})

	executor := &httpapi.CommandExecutor{
		AssignCommander:           commands.NewAssignWidgetCommand(service, d.recorder),
		RemoveCommander:           commands.NewRemoveWidgetCommand(service, d.recorder),
		ReorderCommander:          commands.NewReorderWidgetsCommand(service, d.recorder),
		UpdateCommander:           commands.NewUpdateWidgetCommand(service, d.recorder),
		RefreshCommander:          commands.NewRefreshWidgetCommand(service, d.recorder),
		PreferencesCommander:      commands.NewSaveLayoutPreferencesCommand(service, d.recorder),
		ImportCommander:           commands.NewImportDatasetCommand(d.importer, service, d.recorder),
		ScopeCommander:            commands.NewSelectScopeCommand(d.metrics, service, d.recorder),
		SaveActionItemCommander:   commands.NewSaveActionItemCommand(d.metrics, service, d.recorder),
		DeleteActionItemCommander: commands.NewDeleteActionItemCommand(d.metrics, service, d.recorder),
	}

	return &portal{
		service:    service,
		controller: controller,
		broadcast:  broadcast,
		executor:   executor,
		queries: gorouter.Queries{
			Layout:      queries.NewLayoutQuery(service),
			View:        queries.NewViewModelQuery(d.metrics),
			Detail:      queries.NewWidgetDetailQuery(service),
			History:     queries.NewUploadHistoryQuery(d.importer),
			ActionItems: queries.NewActionItemsQuery(d.metrics, d.repo),
		},
	}, nil
}
