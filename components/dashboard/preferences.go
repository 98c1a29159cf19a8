package dashboard

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

var errMissingViewer = errors.New("dashboard: viewer context missing user id")

// InMemoryPreferenceStore keeps overrides per user for tests and single-node demos.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]LayoutOverrides
}

var _ PreferenceStore = (*InMemoryPreferenceStore)(nil)

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]LayoutOverrides),
	}
}

// LayoutOverrides returns stored overrides or empty defaults.
func (s *InMemoryPreferenceStore) LayoutOverrides(_ context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overrides, ok := s.data[viewer.UserID]
	if !ok || viewer.UserID == "" {
		return emptyOverrides(), nil
	}
	return copyOverrides(overrides), nil
}

// SaveLayoutOverrides persists overrides for a viewer.
func (s *InMemoryPreferenceStore) SaveLayoutOverrides(_ context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return errMissingViewer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[viewer.UserID] = copyOverrides(overrides)
	return nil
}

// WidgetSettingsStore reads and writes the per-user widget settings kept in
// the dashboards table. *metrics.Service satisfies it.
type WidgetSettingsStore interface {
	WidgetSettings(ctx context.Context, userID string) (metrics.WidgetSettings, error)
	SaveWidgetSettings(ctx context.Context, userID string, settings metrics.WidgetSettings) error
}

// SettingsPreferenceStore maps LayoutOverrides onto metrics.WidgetSettings so
// visibility and order live next to the user's product/quarter selection.
type SettingsPreferenceStore struct {
	settings WidgetSettingsStore
}

var _ PreferenceStore = (*SettingsPreferenceStore)(nil)

// NewSettingsPreferenceStore wraps a settings store.
func NewSettingsPreferenceStore(settings WidgetSettingsStore) *SettingsPreferenceStore {
	return &SettingsPreferenceStore{settings: settings}
}

// LayoutOverrides loads the viewer's widget settings. Anonymous viewers get
// empty overrides.
func (s *SettingsPreferenceStore) LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	if viewer.UserID == "" {
		return emptyOverrides(), nil
	}
	settings, err := s.settings.WidgetSettings(ctx, viewer.UserID)
	if err != nil {
		return LayoutOverrides{}, err
	}
	overrides := emptyOverrides()
	for _, id := range settings.Hidden {
		overrides.HiddenWidgets[id] = true
	}
	for area, ids := range settings.Order {
		overrides.AreaOrder[area] = append([]string(nil), ids...)
	}
	return overrides, nil
}

// SaveLayoutOverrides stores overrides as widget settings.
func (s *SettingsPreferenceStore) SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return errMissingViewer
	}
	settings := metrics.WidgetSettings{Order: map[string][]string{}}
	for id, hidden := range overrides.HiddenWidgets {
		if hidden {
			settings.Hidden = append(settings.Hidden, id)
		}
	}
	sort.Strings(settings.Hidden)
	for area, ids := range overrides.AreaOrder {
		settings.Order[area] = append([]string(nil), ids...)
	}
	return s.settings.SaveWidgetSettings(ctx, viewer.UserID, settings)
}

func emptyOverrides() LayoutOverrides {
	return LayoutOverrides{
		AreaOrder:     map[string][]string{},
		HiddenWidgets: map[string]bool{},
	}
}

func copyOverrides(in LayoutOverrides) LayoutOverrides {
	out := emptyOverrides()
	for area, ids := range in.AreaOrder {
		out.AreaOrder[area] = append([]string(nil), ids...)
	}
	for id, hidden := range in.HiddenWidgets {
		if hidden {
			out.HiddenWidgets[id] = true
		}
	}
	return out
}
