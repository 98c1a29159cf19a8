package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidActionItem is returned when an action item fails validation.
var ErrInvalidActionItem = errors.New("metrics: invalid action item")

var (
	errMissingRepository = errors.New("metrics: repository not configured")
	errMissingUser       = errors.New("metrics: user id is required")
	errMissingTitle      = fmt.Errorf("%w: title is required", ErrInvalidActionItem)
	errInvalidStatus     = fmt.Errorf("%w: unknown status", ErrInvalidActionItem)
)

const defaultTopFeatures = 10

// Options configures the metrics Service.
type Options struct {
	Repository  Repository
	Catalog     Catalog
	TopFeatures int
	Now         func() time.Time
}

// Service is the dashboard data context: it owns the per-user selection and
// reshapes stored rows into view models.
type Service struct {
	repo    Repository
	catalog Catalog
	topN    int
	now     func() time.Time
}

// NewService builds a Service with catalog defaults applied.
func NewService(opts Options) (*Service, error) {
	if opts.Repository == nil {
		return nil, errMissingRepository
	}
	catalog, err := opts.Catalog.Normalize()
	if err != nil {
		return nil, err
	}
	if opts.TopFeatures <= 0 {
		opts.TopFeatures = defaultTopFeatures
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    opts.Repository,
		catalog: catalog,
		topN:    opts.TopFeatures,
		now:     opts.Now,
	}, nil
}

// Catalog returns the normalized product catalog.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// Repository exposes the backing store.
func (s *Service) Repository() Repository {
	return s.repo
}

// Scope returns the stored selection for the user or the catalog default.
func (s *Service) Scope(ctx context.Context, userID string) (Scope, error) {
	state, err := s.state(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	scope, err := s.catalog.Resolve(Scope{Product: state.Product, Quarter: state.Quarter})
	if err != nil {
		return s.catalog.DefaultScope(), nil
	}
	return scope, nil
}

// SelectScope validates and persists the user's product/quarter selection.
func (s *Service) SelectScope(ctx context.Context, userID string, scope Scope) (Scope, error) {
	if userID == "" {
		return Scope{}, errMissingUser
	}
	resolved, err := s.catalog.Resolve(scope)
	if err != nil {
		return Scope{}, err
	}
	state, err := s.state(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	state.Product = resolved.Product
	state.Quarter = resolved.Quarter
	state.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveDashboardState(ctx, state); err != nil {
		return Scope{}, fmt.Errorf("metrics: save scope: %w", err)
	}
	return resolved, nil
}

// WidgetSettings returns the stored widget visibility and order for the user.
func (s *Service) WidgetSettings(ctx context.Context, userID string) (WidgetSettings, error) {
	state, err := s.state(ctx, userID)
	if err != nil {
		return WidgetSettings{}, err
	}
	return state.Settings, nil
}

// SaveWidgetSettings replaces the user's widget settings and keeps the scope.
func (s *Service) SaveWidgetSettings(ctx context.Context, userID string, settings WidgetSettings) error {
	if userID == "" {
		return errMissingUser
	}
	state, err := s.state(ctx, userID)
	if err != nil {
		return err
	}
	if settings.Order == nil {
		settings.Order = map[string][]string{}
	}
	state.Settings = settings
	state.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveDashboardState(ctx, state); err != nil {
		return fmt.Errorf("metrics: save widget settings: %w", err)
	}
	return nil
}

func (s *Service) state(ctx context.Context, userID string) (DashboardState, error) {
	if userID == "" {
		scope := s.catalog.DefaultScope()
		return DashboardState{Product: scope.Product, Quarter: scope.Quarter}, nil
	}
	state, err := s.repo.DashboardState(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		scope := s.catalog.DefaultScope()
		return DashboardState{UserID: userID, Product: scope.Product, Quarter: scope.Quarter}, nil
	}
	if err != nil {
		return DashboardState{}, fmt.Errorf("metrics: load dashboard state: %w", err)
	}
	state.UserID = userID
	return state, nil
}

// ViewModel loads every table for the scope product concurrently and reshapes it.
func (s *Service) ViewModel(ctx context.Context, scope Scope) (ViewModel, error) {
	resolved, err := s.catalog.Resolve(scope)
	if err != nil {
		return ViewModel{}, err
	}
	rows, err := s.LoadRows(ctx, resolved)
	if err != nil {
		return ViewModel{}, err
	}
	return BuildViewModel(resolved, rows, s.topN), nil
}

// LoadRows fetches the raw rows backing a scope.
func (s *Service) LoadRows(ctx context.Context, scope Scope) (Rows, error) {
	var rows Rows
	product := scope.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows.Features, err = s.repo.Features(gctx, product)
		return wrapLoad("features", err)
	})
	g.Go(func() (err error) {
		rows.Responsiveness, err = s.repo.Responsiveness(gctx, product)
		return wrapLoad("responsiveness", err)
	})
	g.Go(func() (err error) {
		rows.Commitments, err = s.repo.Commitments(gctx, product)
		return wrapLoad("commitments", err)
	})
	g.Go(func() (err error) {
		rows.Engagement, err = s.repo.Engagement(gctx, product)
		return wrapLoad("engagement", err)
	})
	g.Go(func() (err error) {
		rows.Clients, err = s.repo.ClientSubmissions(gctx, product)
		return wrapLoad("client submissions", err)
	})
	g.Go(func() (err error) {
		rows.Collaboration, err = s.repo.Collaboration(gctx, product)
		return wrapLoad("collaboration", err)
	})
	g.Go(func() (err error) {
		rows.Forums, err = s.repo.Forums(gctx, product)
		return wrapLoad("forums", err)
	})
	g.Go(func() (err error) {
		rows.ActionItems, err = s.repo.ActionItems(gctx, product, scope.Quarter)
		return wrapLoad("action items", err)
	})
	if err := g.Wait(); err != nil {
		return Rows{}, err
	}
	return rows, nil
}

func wrapLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("metrics: load %s: %w", what, err)
}

// ActionItemInput creates or updates an action item.
type ActionItemInput struct {
	ID      string     `json:"id"`
	Product string     `json:"product"`
	Quarter string     `json:"quarter"`
	Title   string     `json:"title"`
	Owner   string     `json:"owner"`
	Status  string     `json:"status"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// SaveActionItem validates the input and creates or updates the item.
func (s *Service) SaveActionItem(ctx context.Context, input ActionItemInput) (ActionItem, error) {
	scope, err := s.catalog.Resolve(Scope{Product: input.Product, Quarter: input.Quarter})
	if err != nil {
		return ActionItem{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ActionItem{}, errMissingTitle
	}
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = ActionOpen
	}
	switch status {
	case ActionOpen, ActionInProgress, ActionDone:
	default:
		return ActionItem{}, fmt.Errorf("%w: %q", errInvalidStatus, input.Status)
	}
	now := s.now().UTC()
	item := ActionItem{
		ID:        input.ID,
		Product:   scope.Product,
		Quarter:   scope.Quarter,
		Title:     title,
		Owner:     strings.TrimSpace(input.Owner),
		Status:    status,
		DueDate:   input.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	} else {
		existing, err := s.repo.ActionItem(ctx, item.ID)
		if err != nil {
			return ActionItem{}, err
		}
		item.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveActionItem(ctx, item); err != nil {
		return ActionItem{}, fmt.Errorf("metrics: save action item: %w", err)
	}
	return item, nil
}

// DeleteActionItem removes an action item.
func (s *Service) DeleteActionItem(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: action item id is required", ErrNotFound)
	}
	return s.repo.DeleteActionItem(ctx, id)
}
