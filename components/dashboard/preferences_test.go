package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

func TestInMemoryPreferenceStore(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-1"}
	overrides := LayoutOverrides{
		AreaOrder:     map[string][]string{AreaMain: {"w2", "w1"}},
		HiddenWidgets: map[string]bool{"w3": true, "w4": false},
	}
	if err := store.SaveLayoutOverrides(context.Background(), viewer, overrides); err != nil {
		t.Fatalf("SaveLayoutOverrides returned error: %v", err)
	}
	overrides.AreaOrder[AreaMain][0] = "mutated"

	got, err := store.LayoutOverrides(context.Background(), viewer)
	if err != nil {
		t.Fatalf("LayoutOverrides returned error: %v", err)
	}
	if order := got.AreaOrder[AreaMain]; len(order) != 2 || order[0] != "w2" {
		t.Fatalf("expected order stored, got %v", order)
	}
	if !got.HiddenWidgets["w3"] || len(got.HiddenWidgets) != 1 {
		t.Fatalf("expected only w3 hidden, got %v", got.HiddenWidgets)
	}
}

func TestInMemoryPreferenceStoreRequiresUser(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	err := store.SaveLayoutOverrides(context.Background(), ViewerContext{}, LayoutOverrides{})
	if err == nil {
		t.Fatalf("expected error for anonymous viewer")
	}
	got, err := store.LayoutOverrides(context.Background(), ViewerContext{})
	require.NoError(t, err)
	assert.Empty(t, got.AreaOrder)
	assert.NotNil(t, got.HiddenWidgets)
}

type memorySettings struct {
	data map[string]metrics.WidgetSettings
}

func (m *memorySettings) WidgetSettings(_ context.Context, userID string) (metrics.WidgetSettings, error) {
	return m.data[userID], nil
}

func (m *memorySettings) SaveWidgetSettings(_ context.Context, userID string, settings metrics.WidgetSettings) error {
	m.data[userID] = settings
	return nil
}

func TestSettingsPreferenceStoreMapsWidgetSettings(t *testing.T) {
	settings := &memorySettings{data: map[string]metrics.WidgetSettings{}}
	store := NewSettingsPreferenceStore(settings)
	viewer := ViewerContext{UserID: "user-1"}

	err := store.SaveLayoutOverrides(context.Background(), viewer, LayoutOverrides{
		AreaOrder:     map[string][]string{AreaSidebar: {"forums", "clients"}},
		HiddenWidgets: map[string]bool{"uploads": true, "engagement": true, "clients": false},
	})
	require.NoError(t, err)

	saved := settings.data["user-1"]
	assert.Equal(t, []string{"engagement", "uploads"}, saved.Hidden)
	assert.Equal(t, []string{"forums", "clients"}, saved.Order[AreaSidebar])

	got, err := store.LayoutOverrides(context.Background(), viewer)
	require.NoError(t, err)
	assert.True(t, got.HiddenWidgets["uploads"])
	assert.False(t, got.HiddenWidgets["clients"])
	assert.Equal(t, []string{"forums", "clients"}, got.AreaOrder[AreaSidebar])
}

func TestSettingsPreferenceStoreWithMetricsService(t *testing.T) {
	svc, err := metrics.NewService(metrics.Options{
		Repository: metrics.NewMemoryRepository(),
		Catalog:    metrics.Catalog{Products: []string{testProduct}, Quarters: []string{"FY25 Q2"}},
	})
	require.NoError(t, err)
	store := NewSettingsPreferenceStore(svc)
	viewer := ViewerContext{UserID: "user-9"}

	require.NoError(t, store.SaveLayoutOverrides(context.Background(), viewer, LayoutOverrides{
		HiddenWidgets: map[string]bool{"forums": true},
	}))
	got, err := store.LayoutOverrides(context.Background(), viewer)
	require.NoError(t, err)
	assert.True(t, got.HiddenWidgets["forums"])
}
