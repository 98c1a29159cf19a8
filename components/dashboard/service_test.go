package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLayoutAttachesProviderData(t *testing.T) {
	source := newStubMetrics()
	telemetry := &recordingTelemetry{}
	service := newSeededService(t, Options{Metrics: source, Telemetry: telemetry})

	layout, err := service.ConfigureLayout(context.Background(), ViewerContext{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, testScope, layout.Scope)
	assert.Equal(t, 1, source.viewCalls, "view model should be loaded once per layout")
	assert.Equal(t, []string{"user-1"}, source.scopeUsers)
	require.Len(t, layout.Areas[AreaSummary], 1)
	require.Len(t, layout.Areas[AreaMain], 5)
	require.Len(t, layout.Areas[AreaSidebar], 4)

	summary := layout.Areas[AreaSummary][0]
	data, ok := summary.Metadata["data"].(WidgetData)
	require.True(t, ok, "summary widget should carry data")
	assert.Equal(t, testProduct, data["product"])

	for _, area := range defaultAreas {
		for _, w := range layout.Areas[area] {
			assert.Contains(t, w.Metadata, "data", "widget %s missing data", w.ID)
			assert.NotContains(t, w.Metadata, "error", "widget %s failed", w.ID)
		}
	}
	assert.Contains(t, telemetry.events, "dashboard.layout.resolve")
}

func TestConfigureLayoutFiltersByAuthorizer(t *testing.T) {
	service := newSeededService(t, Options{
		Metrics:    newStubMetrics(),
		Authorizer: allowListAuthorizer{allowed: map[string]bool{"forums": true}},
	})
	layout, err := service.ConfigureLayout(context.Background(), ViewerContext{UserID: "user-1"})
	require.NoError(t, err)

	assert.Empty(t, layout.Areas[AreaMain])
	require.Len(t, layout.Areas[AreaSidebar], 1)
	assert.Equal(t, "forums", layout.Areas[AreaSidebar][0].ID)
}

func TestConfigureLayoutAppliesWidgetSettings(t *testing.T) {
	prefs := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-3"}
	require.NoError(t, prefs.SaveLayoutOverrides(context.Background(), viewer, LayoutOverrides{
		AreaOrder:     map[string][]string{AreaSidebar: {"uploads", "forums"}},
		HiddenWidgets: map[string]bool{"clients": true, "engagement": true},
	}))
	service := newSeededService(t, Options{Metrics: newStubMetrics(), PreferenceStore: prefs})

	layout, err := service.ConfigureLayout(context.Background(), viewer)
	require.NoError(t, err)

	sidebar := ids(layout.Areas[AreaSidebar])
	assert.Equal(t, []string{"uploads", "forums", "action_items"}, sidebar)
	assert.NotContains(t, ids(layout.Areas[AreaMain]), "engagement")
	assert.Equal(t, []string{"clients", "engagement"}, layout.Hidden)
	for i, w := range layout.Areas[AreaSidebar] {
		assert.Equal(t, i, w.Position)
	}

	other, err := service.ConfigureLayout(context.Background(), ViewerContext{UserID: "user-4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"clients", "forums", "action_items", "uploads"}, ids(other.Areas[AreaSidebar]))
	assert.Empty(t, other.Hidden)
}

func TestConfigureLayoutWithoutMetricsRecordsProviderErrors(t *testing.T) {
	telemetry := &recordingTelemetry{}
	service := newSeededService(t, Options{Telemetry: telemetry})

	layout, err := service.ConfigureLayout(context.Background(), ViewerContext{UserID: "user-1"})
	require.NoError(t, err)

	summary := layout.Areas[AreaSummary][0]
	assert.Equal(t, errNoMetrics.Error(), summary.Metadata["error"])
	assert.Contains(t, telemetry.events, "dashboard.widget.provider_error")

	var uploads WidgetInstance
	for _, w := range layout.Areas[AreaSidebar] {
		if w.ID == "uploads" {
			uploads = w
		}
	}
	assert.Contains(t, uploads.Metadata, "data", "upload history does not depend on metrics")
}

func TestConfigureLayoutPropagatesMetricsErrors(t *testing.T) {
	source := newStubMetrics()
	source.viewErr = errors.New("store offline")
	service := newSeededService(t, Options{Metrics: source})

	_, err := service.ConfigureLayout(context.Background(), ViewerContext{UserID: "user-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, source.viewErr)
}

func TestConfigureLayoutRequiresStore(t *testing.T) {
	service := NewService(Options{})
	_, err := service.ConfigureLayout(context.Background(), ViewerContext{})
	assert.ErrorIs(t, err, errMissingWidgetStore)
}

func TestAddWidgetAppliesDefaultsAndEmitsEvent(t *testing.T) {
	hook := &collectingHook{}
	service := newSeededService(t, Options{RefreshHook: hook})
	hook.events = nil

	instance, err := service.AddWidget(context.Background(), AddWidgetRequest{
		DefinitionID: WidgetTopFeatures,
		AreaCode:     AreaSidebar,
		UserID:       "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "top_features-1", instance.ID)
	assert.Equal(t, AreaSidebar, instance.AreaCode)
	assert.Equal(t, 10, instance.Configuration["limit"])
	assert.Equal(t, "user-1", instance.Metadata["user_id"])
	assert.Equal(t, []string{ReasonAdd}, hook.reasons())
}

func TestAddWidgetRejectsInvalidConfiguration(t *testing.T) {
	service := newSeededService(t, Options{})
	_, err := service.AddWidget(context.Background(), AddWidgetRequest{
		DefinitionID:  WidgetTopFeatures,
		AreaCode:      AreaMain,
		Configuration: map[string]any{"limit": 500},
	})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, WidgetTopFeatures, cfgErr.Widget)
}

func TestAddWidgetValidatesRequest(t *testing.T) {
	service := newSeededService(t, Options{})
	_, err := service.AddWidget(context.Background(), AddWidgetRequest{DefinitionID: WidgetForums})
	assert.ErrorIs(t, err, errInvalidArea)
	_, err = service.AddWidget(context.Background(), AddWidgetRequest{AreaCode: AreaMain})
	assert.ErrorIs(t, err, errInvalidDefinition)
}

func TestUpdateWidgetValidatesAgainstDefinition(t *testing.T) {
	hook := &collectingHook{}
	service := newSeededService(t, Options{RefreshHook: hook})
	hook.events = nil

	updated, err := service.UpdateWidget(context.Background(), "action_items", map[string]any{"status": "open"})
	require.NoError(t, err)
	assert.Equal(t, "open", updated.Configuration["status"])
	assert.Equal(t, AreaSidebar, updated.AreaCode)
	assert.Equal(t, []string{ReasonUpdate}, hook.reasons())

	_, err = service.UpdateWidget(context.Background(), "action_items", map[string]any{"status": "archived"})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = service.UpdateWidget(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestRemoveAndReorderWidgets(t *testing.T) {
	hook := &collectingHook{}
	service := newSeededService(t, Options{RefreshHook: hook})
	hook.events = nil
	ctx := context.Background()

	require.NoError(t, service.RemoveWidget(ctx, "engagement"))
	require.NoError(t, service.ReorderWidgets(ctx, AreaMain, []string{"top_features", "responsiveness"}))

	resolved, err := service.ResolveArea(ctx, ViewerContext{}, AreaMain)
	require.NoError(t, err)
	assert.Equal(t, []string{"top_features", "responsiveness", "commitment", "collaboration"}, ids(resolved.Widgets))
	assert.Equal(t, []string{ReasonDelete, ReasonReorder}, hook.reasons())

	assert.ErrorIs(t, service.RemoveWidget(ctx, ""), errMissingWidgetID)
	assert.ErrorIs(t, service.ReorderWidgets(ctx, "", nil), errInvalidArea)
}

func TestWidgetDetailUsesViewerScope(t *testing.T) {
	source := newStubMetrics()
	service := newSeededService(t, Options{Metrics: source})

	detail, err := service.WidgetDetail(context.Background(), ViewerContext{UserID: "user-1"}, "top_features")
	require.NoError(t, err)

	assert.Equal(t, "top_features", detail.WidgetID)
	assert.Equal(t, testScope, detail.Scope)
	assert.Equal(t, []string{"rank", "feature_name", "votes", "status", "feature_description"}, detail.Columns)
	require.Len(t, detail.Rows, 3)
	assert.Equal(t, "Bulk export", detail.Rows[0][1])
}

func TestWidgetDetailErrors(t *testing.T) {
	service := newSeededService(t, Options{
		Metrics:    newStubMetrics(),
		Authorizer: allowListAuthorizer{allowed: map[string]bool{"uploads": true}},
	})
	ctx := context.Background()

	_, err := service.WidgetDetail(ctx, ViewerContext{}, "missing")
	assert.ErrorIs(t, err, ErrWidgetNotFound)

	_, err = service.WidgetDetail(ctx, ViewerContext{}, "forums")
	assert.ErrorIs(t, err, ErrWidgetNotFound, "unauthorized widgets look missing")

	_, err = service.WidgetDetail(ctx, ViewerContext{}, "uploads")
	assert.ErrorIs(t, err, ErrDetailUnsupported)
}

func TestSavePreferencesEmitsEvent(t *testing.T) {
	hook := &collectingHook{}
	service := newSeededService(t, Options{RefreshHook: hook})
	hook.events = nil
	viewer := ViewerContext{UserID: "user-1"}

	require.Error(t, service.SavePreferences(context.Background(), ViewerContext{}, LayoutOverrides{}))
	require.NoError(t, service.SavePreferences(context.Background(), viewer, LayoutOverrides{
		HiddenWidgets: map[string]bool{"forums": true},
	}))
	assert.Equal(t, []string{ReasonPreferences}, hook.reasons())

	prefs, err := service.Preferences(context.Background(), viewer)
	require.NoError(t, err)
	assert.True(t, prefs.HiddenWidgets["forums"])
	assert.NotNil(t, prefs.AreaOrder)
}

func TestNotifyWidgetUpdatedPropagatesHookErrors(t *testing.T) {
	hook := &collectingHook{err: errors.New("closed")}
	service := NewService(Options{WidgetStore: NewMemoryWidgetStore(), RefreshHook: hook})
	err := service.NotifyWidgetUpdated(context.Background(), WidgetEvent{Reason: ReasonUpload, Product: testProduct})
	assert.EqualError(t, err, "closed")
}

func ids(widgets []WidgetInstance) []string {
	out := make([]string, 0, len(widgets))
	for _, w := range widgets {
		out = append(out, w.ID)
	}
	return out
}
