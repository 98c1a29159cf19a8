package dashboard

import (
	"context"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// Provider fetches data required to render a widget instance.
type Provider interface {
	Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error)
}

// DetailProvider is implemented by providers that can expand a widget into a
// breakdown table.
type DetailProvider interface {
	Detail(ctx context.Context, meta WidgetContext) (WidgetDetail, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, meta WidgetContext) (WidgetData, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return f(ctx, meta)
}

// WidgetContext contains the metadata needed by providers. View is nil when
// the service has no MetricsSource.
type WidgetContext struct {
	Instance WidgetInstance
	Viewer   ViewerContext
	Scope    metrics.Scope
	View     *metrics.ViewModel
}

// WidgetData is an opaque payload passed to templates.
type WidgetData map[string]any
