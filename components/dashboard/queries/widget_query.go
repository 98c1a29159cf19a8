package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
)

var errMissingService = errors.New("queries: service not configured")

// WidgetAreaInput identifies an area request for a viewer.
type WidgetAreaInput struct {
	Viewer   dashboard.ViewerContext
	AreaCode string
}

type areaService interface {
	ResolveArea(ctx context.Context, viewer dashboard.ViewerContext, areaCode string) (dashboard.ResolvedArea, error)
}

// WidgetAreaQuery fetches widgets for a specific area.
type WidgetAreaQuery struct {
	service areaService
}

// NewWidgetAreaQuery builds the query.
func NewWidgetAreaQuery(service areaService) *WidgetAreaQuery {
	return &WidgetAreaQuery{service: service}
}

var _ gocommand.Querier[WidgetAreaInput, dashboard.ResolvedArea] = (*WidgetAreaQuery)(nil)

// Query resolves an individual area for the viewer.
func (q *WidgetAreaQuery) Query(ctx context.Context, input WidgetAreaInput) (dashboard.ResolvedArea, error) {
	if q.service == nil {
		return dashboard.ResolvedArea{}, errMissingService
	}
	return q.service.ResolveArea(ctx, input.Viewer, input.AreaCode)
}

// WidgetDetailInput identifies the widget whose breakdown is requested.
type WidgetDetailInput struct {
	Viewer   dashboard.ViewerContext
	WidgetID string
}

type detailService interface {
	WidgetDetail(ctx context.Context, viewer dashboard.ViewerContext, widgetID string) (dashboard.WidgetDetail, error)
}

// WidgetDetailQuery returns the flyout table of a chart widget.
type WidgetDetailQuery struct {
	service detailService
}

// NewWidgetDetailQuery builds the query.
func NewWidgetDetailQuery(service detailService) *WidgetDetailQuery {
	return &WidgetDetailQuery{service: service}
}

var _ gocommand.Querier[WidgetDetailInput, dashboard.WidgetDetail] = (*WidgetDetailQuery)(nil)

// Query loads the detail for the viewer.
func (q *WidgetDetailQuery) Query(ctx context.Context, input WidgetDetailInput) (dashboard.WidgetDetail, error) {
	if q.service == nil {
		return dashboard.WidgetDetail{}, errMissingService
	}
	return q.service.WidgetDetail(ctx, input.Viewer, input.WidgetID)
}
