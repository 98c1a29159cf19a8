package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLayoutIsIdempotent(t *testing.T) {
	store := NewMemoryWidgetStore()
	registry := newTestRegistry(nil)
	ctx := context.Background()
	require.NoError(t, RegisterAreas(ctx, store))
	require.NoError(t, RegisterDefinitions(ctx, store, registry))
	service := NewService(Options{WidgetStore: store, Providers: registry})

	seeded, err := SeedLayout(ctx, service)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultSeedWidgets()), seeded)

	seeded, err = SeedLayout(ctx, service)
	require.NoError(t, err)
	assert.Equal(t, 0, seeded)

	resolved, err := service.ResolveArea(ctx, ViewerContext{}, AreaMain)
	require.NoError(t, err)
	assert.Equal(t, []string{"responsiveness", "commitment", "engagement", "collaboration", "top_features"}, ids(resolved.Widgets))
}

func TestSeedLayoutRecreatesMissingSeeds(t *testing.T) {
	service := newSeededService(t, Options{})
	ctx := context.Background()
	require.NoError(t, service.RemoveWidget(ctx, "forums"))

	seeded, err := SeedLayout(ctx, service)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
}

func TestSeedLayoutRequiresService(t *testing.T) {
	_, err := SeedLayout(context.Background(), nil)
	assert.Error(t, err)
	_, err = SeedLayout(context.Background(), NewService(Options{}))
	assert.ErrorIs(t, err, errMissingWidgetStore)
}

type failingAreaStore struct {
	*MemoryWidgetStore
}

func (failingAreaStore) EnsureArea(context.Context, WidgetAreaDefinition) (bool, error) {
	return false, errors.New("read only")
}

func TestRegisterAreasWrapsErrors(t *testing.T) {
	err := RegisterAreas(context.Background(), failingAreaStore{NewMemoryWidgetStore()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), AreaSummary)
	assert.ErrorIs(t, RegisterAreas(context.Background(), nil), errMissingWidgetStore)
}

func TestRegisterDefinitionsIncludesManifestWidgets(t *testing.T) {
	registry := newTestRegistry(nil)
	require.NoError(t, registry.LoadManifestDocument(&WidgetManifestDocument{
		Version: ManifestVersion,
		Widgets: []ManifestWidget{{
			Definition: WidgetDefinition{Code: "portal.widget.clients_card", Name: "Clients"},
			Provider:   ManifestProvider{Metric: "clients"},
		}},
	}))
	store := NewMemoryWidgetStore()
	require.NoError(t, RegisterDefinitions(context.Background(), store, registry))

	_, err := store.CreateInstance(context.Background(), CreateWidgetInstanceInput{DefinitionID: "portal.widget.clients_card"})
	assert.NoError(t, err)
}
