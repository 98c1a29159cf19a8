package metrics

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("metrics: not found")

// Reader loads the denormalized metric rows for a product.
type Reader interface {
	Features(ctx context.Context, product string) ([]Feature, error)
	Responsiveness(ctx context.Context, product string) ([]ResponsivenessTrend, error)
	Commitments(ctx context.Context, product string) ([]CommitmentTrend, error)
	Engagement(ctx context.Context, product string) ([]ContinuedEngagement, error)
	ClientSubmissions(ctx context.Context, product string) ([]ClientSubmission, error)
	Collaboration(ctx context.Context, product string) ([]CrossClientCollaboration, error)
	Forums(ctx context.Context, product string) ([]ForumEntry, error)
}

// Writer bulk-replaces all rows of a dataset for a product.
type Writer interface {
	ReplaceBatch(ctx context.Context, batch Batch) error
}

// ActionItemStore persists action items.
type ActionItemStore interface {
	ActionItems(ctx context.Context, product, quarter string) ([]ActionItem, error)
	ActionItem(ctx context.Context, id string) (ActionItem, error)
	SaveActionItem(ctx context.Context, item ActionItem) error
	DeleteActionItem(ctx context.Context, id string) error
}

// DashboardStore persists the per-user dashboard state.
type DashboardStore interface {
	DashboardState(ctx context.Context, userID string) (DashboardState, error)
	SaveDashboardState(ctx context.Context, state DashboardState) error
}

// Repository is the full backing store contract.
type Repository interface {
	Reader
	Writer
	ActionItemStore
	DashboardStore
}
