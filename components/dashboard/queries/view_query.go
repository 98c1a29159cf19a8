package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

type viewService interface {
	Scope(ctx context.Context, userID string) (metrics.Scope, error)
	ViewModel(ctx context.Context, scope metrics.Scope) (metrics.ViewModel, error)
}

// ViewModelQuery loads the reshaped metrics for the viewer's selected scope.
type ViewModelQuery struct {
	service viewService
}

// NewViewModelQuery builds the query.
func NewViewModelQuery(service viewService) *ViewModelQuery {
	return &ViewModelQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, metrics.ViewModel] = (*ViewModelQuery)(nil)

// Query resolves the viewer scope and builds its view model.
func (q *ViewModelQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (metrics.ViewModel, error) {
	if q.service == nil {
		return metrics.ViewModel{}, errMissingService
	}
	scope, err := q.service.Scope(ctx, viewer.UserID)
	if err != nil {
		return metrics.ViewModel{}, err
	}
	return q.service.ViewModel(ctx, scope)
}

// ActionItemsInput selects the action items of a scope. Empty fields fall
// back to the viewer's selection.
type ActionItemsInput struct {
	Viewer  dashboard.ViewerContext
	Product string
	Quarter string
}

type actionItemLister interface {
	ActionItems(ctx context.Context, product, quarter string) ([]metrics.ActionItem, error)
}

// ActionItemsQuery lists action items for a product quarter.
type ActionItemsQuery struct {
	scopes viewService
	items  actionItemLister
}

// NewActionItemsQuery builds the query. scopes resolves defaults, items reads
// the rows (a metrics.Repository satisfies it).
func NewActionItemsQuery(scopes viewService, items actionItemLister) *ActionItemsQuery {
	return &ActionItemsQuery{scopes: scopes, items: items}
}

var _ gocommand.Querier[ActionItemsInput, []metrics.ActionItem] = (*ActionItemsQuery)(nil)

// Query lists the items.
func (q *ActionItemsQuery) Query(ctx context.Context, input ActionItemsInput) ([]metrics.ActionItem, error) {
	if q.items == nil {
		return nil, errMissingService
	}
	product, quarter := input.Product, input.Quarter
	if (product == "" || quarter == "") && q.scopes != nil {
		scope, err := q.scopes.Scope(ctx, input.Viewer.UserID)
		if err != nil {
			return nil, err
		}
		if product == "" {
			product = scope.Product
		}
		if quarter == "" {
			quarter = scope.Quarter
		}
	}
	return q.items.ActionItems(ctx, product, quarter)
}
