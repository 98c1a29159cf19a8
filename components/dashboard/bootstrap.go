package dashboard

import (
	"context"
	"errors"
	"fmt"
)

// RegisterAreas ensures the portal dashboard areas exist in the store.
func RegisterAreas(ctx context.Context, store WidgetStore) error {
	if store == nil {
		return errMissingWidgetStore
	}
	for _, area := range DefaultAreaDefinitions() {
		if _, err := store.EnsureArea(ctx, area); err != nil {
			return fmt.Errorf("register area %s: %w", area.Code, err)
		}
	}
	return nil
}

// RegisterDefinitions stores every definition known to the registry,
// built-ins and manifest widgets alike.
func RegisterDefinitions(ctx context.Context, store WidgetStore, registry ProviderRegistry) error {
	if store == nil {
		return errMissingWidgetStore
	}
	defs := DefaultWidgetDefinitions()
	if registry != nil {
		defs = registry.Definitions()
	}
	for _, def := range defs {
		if _, err := store.EnsureDefinition(ctx, def); err != nil {
			return fmt.Errorf("register definition %s: %w", def.Code, err)
		}
	}
	return nil
}

// SeedLayout creates the starter widget assignments. Widgets that already
// exist are left alone so the call is safe on every boot.
func SeedLayout(ctx context.Context, service *Service) (int, error) {
	if service == nil {
		return 0, errors.New("dashboard: service is required to seed layout")
	}
	store, err := service.widgetStore()
	if err != nil {
		return 0, err
	}
	var (
		seeded  int
		seedErr error
	)
	for _, req := range DefaultSeedWidgets() {
		if _, err := store.Instance(ctx, req.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrWidgetNotFound) {
			seedErr = errors.Join(seedErr, err)
			continue
		}
		if _, err := service.AddWidget(ctx, req); err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("seed %s: %w", req.ID, err))
			continue
		}
		seeded++
	}
	return seeded, seedErr
}
