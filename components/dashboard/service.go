package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

var (
	errMissingWidgetStore = errors.New("dashboard: widget store not configured")
	errInvalidArea        = errors.New("dashboard: area code is required")
	errInvalidDefinition  = errors.New("dashboard: definition id is required")
	errMissingWidgetID    = errors.New("dashboard: widget id is required")
)

// Options configures the dashboard Service. Collaborators are interfaces so
// the portal can swap the memory defaults for SQL backed ones.
type Options struct {
	WidgetStore     WidgetStore
	Authorizer      Authorizer
	PreferenceStore PreferenceStore
	Providers       ProviderRegistry
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	Metrics         MetricsSource
	Areas           []string
}

// Service resolves the portal dashboard grid for a viewer.
type Service struct {
	opts Options
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Authorizer == nil {
		opts.Authorizer = allowAllAuthorizer{}
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	return &Service{opts: opts}
}

// AddWidgetRequest captures the data required to create widget assignments.
// ID is optional and lets seeds keep stable instance ids.
type AddWidgetRequest struct {
	ID            string         `json:"id,omitempty"`
	DefinitionID  string         `json:"definition_id"`
	AreaCode      string         `json:"area_code"`
	Configuration map[string]any `json:"config,omitempty"`
	Position      *int           `json:"position,omitempty"`
	Roles         []string       `json:"roles,omitempty"`
	UserID        string         `json:"-"`
}

// AddWidget creates a widget instance and assigns it to an area.
func (s *Service) AddWidget(ctx context.Context, req AddWidgetRequest) (WidgetInstance, error) {
	store, err := s.widgetStore()
	if err != nil {
		return WidgetInstance{}, err
	}
	if req.AreaCode == "" {
		return WidgetInstance{}, errInvalidArea
	}
	if req.DefinitionID == "" {
		return WidgetInstance{}, errInvalidDefinition
	}
	config, err := s.prepareConfiguration(req.DefinitionID, req.Configuration)
	if err != nil {
		return WidgetInstance{}, err
	}
	metadata := map[string]any{}
	if req.UserID != "" {
		metadata["user_id"] = req.UserID
	}
	instance, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{
		ID:            req.ID,
		DefinitionID:  req.DefinitionID,
		Configuration: config,
		Roles:         req.Roles,
		Metadata:      metadata,
	})
	if err != nil {
		return WidgetInstance{}, err
	}
	if err := store.AssignInstance(ctx, AssignWidgetInput{
		AreaCode:   req.AreaCode,
		InstanceID: instance.ID,
		Position:   req.Position,
	}); err != nil {
		return WidgetInstance{}, err
	}
	instance.AreaCode = req.AreaCode
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: req.AreaCode,
		Instance: instance,
		Reason:   ReasonAdd,
	}); err != nil {
		return WidgetInstance{}, err
	}
	s.recordTelemetry(ctx, "dashboard.widget.add", map[string]any{
		"area_code":     req.AreaCode,
		"definition_id": req.DefinitionID,
		"widget_id":     instance.ID,
	})
	return instance, nil
}

// UpdateWidget replaces a widget's configuration after schema validation.
func (s *Service) UpdateWidget(ctx context.Context, widgetID string, configuration map[string]any) (WidgetInstance, error) {
	store, err := s.widgetStore()
	if err != nil {
		return WidgetInstance{}, err
	}
	if widgetID == "" {
		return WidgetInstance{}, errMissingWidgetID
	}
	current, err := store.Instance(ctx, widgetID)
	if err != nil {
		return WidgetInstance{}, err
	}
	config, err := s.prepareConfiguration(current.DefinitionID, configuration)
	if err != nil {
		return WidgetInstance{}, err
	}
	updated, err := store.UpdateInstance(ctx, widgetID, config)
	if err != nil {
		return WidgetInstance{}, err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: updated.AreaCode,
		Instance: updated,
		Reason:   ReasonUpdate,
	}); err != nil {
		return WidgetInstance{}, err
	}
	s.recordTelemetry(ctx, "dashboard.widget.update", map[string]any{"widget_id": widgetID})
	return updated, nil
}

// RemoveWidget deletes the widget instance.
func (s *Service) RemoveWidget(ctx context.Context, widgetID string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if widgetID == "" {
		return errMissingWidgetID
	}
	if err := store.DeleteInstance(ctx, widgetID); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		Instance: WidgetInstance{ID: widgetID},
		Reason:   ReasonDelete,
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.remove", map[string]any{"widget_id": widgetID})
	return nil
}

// ReorderWidgets changes the shared widget ordering within an area.
func (s *Service) ReorderWidgets(ctx context.Context, areaCode string, widgetIDs []string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if areaCode == "" {
		return errInvalidArea
	}
	if err := store.ReorderArea(ctx, ReorderAreaInput{
		AreaCode:  areaCode,
		WidgetIDs: widgetIDs,
	}); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: areaCode,
		Reason:   ReasonReorder,
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.reorder", map[string]any{
		"area_code": areaCode,
		"count":     len(widgetIDs),
	})
	return nil
}

// ConfigureLayout resolves widgets for each dashboard area respecting the
// viewer's widget settings. Provider data is computed from a single view
// model built for the viewer's selected product and quarter.
func (s *Service) ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	store, err := s.widgetStore()
	if err != nil {
		return Layout{}, err
	}
	overrides, err := s.opts.PreferenceStore.LayoutOverrides(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	scope, view, err := s.loadView(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	layout := Layout{Scope: scope, Areas: make(map[string][]WidgetInstance)}
	var hidden []string
	for _, area := range s.areaList() {
		resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
			AreaCode: area,
			Audience: viewer.Roles,
		})
		if err != nil {
			return Layout{}, err
		}
		for i := range resolved.Widgets {
			resolved.Widgets[i].AreaCode = area
		}
		authorized := s.filterAuthorized(ctx, viewer, resolved.Widgets)
		ordered := applyOrderOverride(authorized, overrides.AreaOrder[area])
		visible, removed := applyHiddenFilter(ordered, overrides.HiddenWidgets)
		hidden = append(hidden, removed...)
		layout.Areas[area] = s.attachProviderData(ctx, viewer, scope, view, visible)
	}
	layout.Hidden = sortedIDs(hidden)
	s.recordTelemetry(ctx, "dashboard.layout.resolve", map[string]any{
		"viewer":  viewer.UserID,
		"product": scope.Product,
		"quarter": scope.Quarter,
		"hidden":  len(hidden),
	})
	return layout, nil
}

// ResolveArea retrieves a single area for the viewer without provider data.
func (s *Service) ResolveArea(ctx context.Context, viewer ViewerContext, areaCode string) (ResolvedArea, error) {
	store, err := s.widgetStore()
	if err != nil {
		return ResolvedArea{}, err
	}
	if areaCode == "" {
		return ResolvedArea{}, errInvalidArea
	}
	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
		AreaCode: areaCode,
		Audience: viewer.Roles,
	})
	if err != nil {
		return ResolvedArea{}, err
	}
	resolved.Widgets = s.filterAuthorized(ctx, viewer, resolved.Widgets)
	s.recordTelemetry(ctx, "dashboard.area.resolve", map[string]any{
		"viewer":    viewer.UserID,
		"area_code": areaCode,
	})
	return resolved, nil
}

// WidgetDetail expands a widget into its breakdown table for the viewer's
// current scope.
func (s *Service) WidgetDetail(ctx context.Context, viewer ViewerContext, widgetID string) (WidgetDetail, error) {
	store, err := s.widgetStore()
	if err != nil {
		return WidgetDetail{}, err
	}
	if widgetID == "" {
		return WidgetDetail{}, errMissingWidgetID
	}
	instance, err := store.Instance(ctx, widgetID)
	if err != nil {
		return WidgetDetail{}, err
	}
	if !s.opts.Authorizer.CanViewWidget(ctx, viewer, instance) {
		return WidgetDetail{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	provider, ok := s.opts.Providers.Provider(instance.DefinitionID)
	if !ok {
		return WidgetDetail{}, ErrDetailUnsupported
	}
	detailer, ok := provider.(DetailProvider)
	if !ok {
		return WidgetDetail{}, ErrDetailUnsupported
	}
	scope, view, err := s.loadView(ctx, viewer)
	if err != nil {
		return WidgetDetail{}, err
	}
	detail, err := detailer.Detail(ctx, WidgetContext{
		Instance: instance,
		Viewer:   viewer,
		Scope:    scope,
		View:     view,
	})
	if err != nil {
		return WidgetDetail{}, err
	}
	s.recordTelemetry(ctx, "dashboard.widget.detail", map[string]any{
		"widget_id": widgetID,
		"rows":      len(detail.Rows),
	})
	return detail, nil
}

// Preferences returns the viewer's stored widget settings.
func (s *Service) Preferences(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	overrides, err := s.opts.PreferenceStore.LayoutOverrides(ctx, viewer)
	if err != nil {
		return LayoutOverrides{}, err
	}
	s.normalizeOverrides(&overrides)
	return overrides, nil
}

// SavePreferences persists per-viewer layout overrides and notifies
// subscribers so open dashboards for the same user re-render.
func (s *Service) SavePreferences(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return errMissingViewer
	}
	s.normalizeOverrides(&overrides)
	if err := s.opts.PreferenceStore.SaveLayoutOverrides(ctx, viewer, overrides); err != nil {
		return err
	}
	return s.NotifyWidgetUpdated(ctx, WidgetEvent{Reason: ReasonPreferences})
}

// NotifyWidgetUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyWidgetUpdated(ctx context.Context, event WidgetEvent) error {
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.event", map[string]any{
		"area_code": event.AreaCode,
		"widget_id": event.Instance.ID,
		"reason":    event.Reason,
		"product":   event.Product,
		"dataset":   event.Dataset,
	})
	return nil
}

// Definitions lists the registered widget definitions.
func (s *Service) Definitions() []WidgetDefinition {
	return s.opts.Providers.Definitions()
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func (s *Service) widgetStore() (WidgetStore, error) {
	if s.opts.WidgetStore == nil {
		return nil, errMissingWidgetStore
	}
	return s.opts.WidgetStore, nil
}

func (s *Service) loadView(ctx context.Context, viewer ViewerContext) (metrics.Scope, *metrics.ViewModel, error) {
	if s.opts.Metrics == nil {
		return metrics.Scope{}, nil, nil
	}
	scope, err := s.opts.Metrics.Scope(ctx, viewer.UserID)
	if err != nil {
		return metrics.Scope{}, nil, fmt.Errorf("dashboard: resolve scope: %w", err)
	}
	view, err := s.opts.Metrics.ViewModel(ctx, scope)
	if err != nil {
		return metrics.Scope{}, nil, fmt.Errorf("dashboard: load view model: %w", err)
	}
	return scope, &view, nil
}

// prepareConfiguration fills schema defaults and validates the result.
func (s *Service) prepareConfiguration(definitionID string, config map[string]any) (map[string]any, error) {
	def, ok := s.opts.Providers.Definition(definitionID)
	if !ok {
		return config, nil
	}
	config = ApplyDefaults(def, config)
	if err := s.opts.ConfigValidator.Validate(def, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *Service) areaList() []string {
	if len(s.opts.Areas) > 0 {
		return s.opts.Areas
	}
	return defaultAreas
}

func (s *Service) filterAuthorized(ctx context.Context, viewer ViewerContext, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 {
		return widgets
	}
	filtered := make([]WidgetInstance, 0, len(widgets))
	for _, w := range widgets {
		if s.opts.Authorizer.CanViewWidget(ctx, viewer, w) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

func (s *Service) attachProviderData(ctx context.Context, viewer ViewerContext, scope metrics.Scope, view *metrics.ViewModel, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 {
		return widgets
	}
	enriched := make([]WidgetInstance, len(widgets))
	copy(enriched, widgets)
	for i, inst := range enriched {
		provider, ok := s.opts.Providers.Provider(inst.DefinitionID)
		if !ok || provider == nil {
			continue
		}
		data, err := provider.Fetch(ctx, WidgetContext{
			Instance: inst,
			Viewer:   viewer,
			Scope:    scope,
			View:     view,
		})
		metadata := cloneMap(enriched[i].Metadata)
		if metadata == nil {
			metadata = map[string]any{}
		}
		if err != nil {
			s.recordTelemetry(ctx, "dashboard.widget.provider_error", map[string]any{
				"definition_id": inst.DefinitionID,
				"widget_id":     inst.ID,
				"error":         err.Error(),
			})
			metadata["error"] = err.Error()
			enriched[i].Metadata = metadata
			continue
		}
		metadata["data"] = data
		enriched[i].Metadata = metadata
	}
	return enriched
}

func (s *Service) normalizeOverrides(overrides *LayoutOverrides) {
	if overrides.AreaOrder == nil {
		overrides.AreaOrder = map[string][]string{}
	}
	if overrides.HiddenWidgets == nil {
		overrides.HiddenWidgets = map[string]bool{}
	}
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanViewWidget(context.Context, ViewerContext, WidgetInstance) bool {
	return true
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error {
	return nil
}
