package dashboard

import (
	"context"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// WidgetStore persists areas, definitions and the widget instances assigned to
// each area. Implementations must be safe for concurrent use and idempotent on
// the Ensure* calls.
type WidgetStore interface {
	EnsureArea(ctx context.Context, def WidgetAreaDefinition) (bool, error)
	EnsureDefinition(ctx context.Context, def WidgetDefinition) (bool, error)
	CreateInstance(ctx context.Context, input CreateWidgetInstanceInput) (WidgetInstance, error)
	UpdateInstance(ctx context.Context, instanceID string, configuration map[string]any) (WidgetInstance, error)
	DeleteInstance(ctx context.Context, instanceID string) error
	AssignInstance(ctx context.Context, input AssignWidgetInput) error
	ReorderArea(ctx context.Context, input ReorderAreaInput) error
	ResolveArea(ctx context.Context, input ResolveAreaInput) (ResolvedArea, error)
	Instance(ctx context.Context, instanceID string) (WidgetInstance, error)
}

// Authorizer determines if a viewer can see a widget instance.
type Authorizer interface {
	CanViewWidget(ctx context.Context, viewer ViewerContext, instance WidgetInstance) bool
}

// PreferenceStore returns layout overrides per viewer.
type PreferenceStore interface {
	LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error)
	SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error
}

// ProviderRegistry stores widget definitions/providers discoverable via hooks or manifests.
type ProviderRegistry interface {
	RegisterDefinition(def WidgetDefinition) error
	RegisterProvider(code string, provider Provider) error
	Definition(code string) (WidgetDefinition, bool)
	Provider(code string) (Provider, bool)
	Definitions() []WidgetDefinition
}

// RefreshHook notifies transports (REST/WebSocket) about widget changes.
type RefreshHook interface {
	WidgetUpdated(ctx context.Context, event WidgetEvent) error
}

// MetricsSource resolves the viewer's product/quarter selection and the view
// model rendered for it. *metrics.Service satisfies it.
type MetricsSource interface {
	Scope(ctx context.Context, userID string) (metrics.Scope, error)
	ViewModel(ctx context.Context, scope metrics.Scope) (metrics.ViewModel, error)
}

// WidgetAreaDefinition models a dashboard widget area (summary/main/sidebar).
type WidgetAreaDefinition struct {
	Code        string `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WidgetDefinition describes a widget type and its configuration schema.
type WidgetDefinition struct {
	Code        string         `json:"code" yaml:"code"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Category    string         `json:"category,omitempty" yaml:"category,omitempty"`
}

// WidgetInstance is a configured widget placed in an area.
type WidgetInstance struct {
	ID            string         `json:"id"`
	DefinitionID  string         `json:"definition"`
	AreaCode      string         `json:"area,omitempty"`
	Position      int            `json:"position"`
	Configuration map[string]any `json:"config,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CreateWidgetInstanceInput configures new instances. ID is optional; stores
// derive one from the definition when empty.
type CreateWidgetInstanceInput struct {
	ID            string
	DefinitionID  string
	Configuration map[string]any
	Roles         []string
	Metadata      map[string]any
}

// AssignWidgetInput associates a widget instance with an area.
type AssignWidgetInput struct {
	AreaCode   string
	InstanceID string
	Position   *int
}

// ReorderAreaInput represents a new ordering for widgets within an area.
type ReorderAreaInput struct {
	AreaCode  string   `json:"area_code"`
	WidgetIDs []string `json:"widget_ids"`
}

// ResolveAreaInput requests widget instances for a given area and audience.
type ResolveAreaInput struct {
	AreaCode string
	Audience []string
}

// ResolvedArea is a container for widgets returned by the store.
type ResolvedArea struct {
	AreaCode string           `json:"area_code"`
	Widgets  []WidgetInstance `json:"widgets"`
}

// LayoutOverrides captures per-user adjustments: widget order per area and
// the widgets the viewer has hidden.
type LayoutOverrides struct {
	AreaOrder     map[string][]string `json:"area_order"`
	HiddenWidgets map[string]bool     `json:"hidden_widgets"`
}

// ViewerContext captures the signed-in user needed to render dashboards.
type ViewerContext struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// Layout describes the resolved widget instances per dashboard area.
type Layout struct {
	Scope  metrics.Scope               `json:"scope"`
	Areas  map[string][]WidgetInstance `json:"areas"`
	Hidden []string                    `json:"hidden,omitempty"`
}

// WidgetEvent describes changes that transports might care about.
type WidgetEvent struct {
	AreaCode string         `json:"area_code,omitempty"`
	Instance WidgetInstance `json:"instance"`
	Reason   string         `json:"reason"`
	Product  string         `json:"product,omitempty"`
	Dataset  string         `json:"dataset,omitempty"`
}

// Event reasons emitted by the service and the upload pipeline.
const (
	ReasonAdd         = "add"
	ReasonDelete      = "delete"
	ReasonReorder     = "reorder"
	ReasonUpdate      = "update"
	ReasonUpload      = "upload"
	ReasonPreferences = "preferences"
	ReasonScope       = "scope"
	ReasonRefresh     = "refresh"
)

// WidgetDetail is the breakdown table shown when a chart is expanded.
type WidgetDetail struct {
	WidgetID string        `json:"widget_id"`
	Title    string        `json:"title"`
	Scope    metrics.Scope `json:"scope"`
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Notes    []string      `json:"notes,omitempty"`
}
