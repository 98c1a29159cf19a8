package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository is a concurrency-safe in-process Repository for demos and tests.
type MemoryRepository struct {
	mu             sync.RWMutex
	features       []Feature
	responsiveness []ResponsivenessTrend
	commitments    []CommitmentTrend
	engagement     []ContinuedEngagement
	clients        []ClientSubmission
	collaboration  []CrossClientCollaboration
	forums         []ForumEntry
	actions        map[string]ActionItem
	states         map[string]DashboardState
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		actions: map[string]ActionItem{},
		states:  map[string]DashboardState{},
	}
}

func (m *MemoryRepository) Features(_ context.Context, product string) ([]Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.features, product, func(r Feature) string { return r.Product }), nil
}

func (m *MemoryRepository) Responsiveness(_ context.Context, product string) ([]ResponsivenessTrend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.responsiveness, product, func(r ResponsivenessTrend) string { return r.Product }), nil
}

func (m *MemoryRepository) Commitments(_ context.Context, product string) ([]CommitmentTrend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.commitments, product, func(r CommitmentTrend) string { return r.Product }), nil
}

func (m *MemoryRepository) Engagement(_ context.Context, product string) ([]ContinuedEngagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.engagement, product, func(r ContinuedEngagement) string { return r.Product }), nil
}

func (m *MemoryRepository) ClientSubmissions(_ context.Context, product string) ([]ClientSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.clients, product, func(r ClientSubmission) string { return r.Product }), nil
}

func (m *MemoryRepository) Collaboration(_ context.Context, product string) ([]CrossClientCollaboration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.collaboration, product, func(r CrossClientCollaboration) string { return r.Product }), nil
}

func (m *MemoryRepository) Forums(_ context.Context, product string) ([]ForumEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterProduct(m.forums, product, func(r ForumEntry) string { return r.Product }), nil
}

// ReplaceBatch deletes the product's rows for the dataset and inserts the batch.
func (m *MemoryRepository) ReplaceBatch(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product := batch.Product
	switch batch.Dataset {
	case DatasetTopFeatures:
		m.features = append(dropProduct(m.features, product, func(r Feature) string { return r.Product }), batch.Features...)
	case DatasetResponsiveness:
		m.responsiveness = append(dropProduct(m.responsiveness, product, func(r ResponsivenessTrend) string { return r.Product }), batch.Responsiveness...)
	case DatasetCommitment:
		m.commitments = append(dropProduct(m.commitments, product, func(r CommitmentTrend) string { return r.Product }), batch.Commitments...)
	case DatasetEngagement:
		m.engagement = append(dropProduct(m.engagement, product, func(r ContinuedEngagement) string { return r.Product }), batch.Engagement...)
	case DatasetClientSubmissions:
		m.clients = append(dropProduct(m.clients, product, func(r ClientSubmission) string { return r.Product }), batch.Clients...)
	case DatasetCollaboration:
		m.collaboration = append(dropProduct(m.collaboration, product, func(r CrossClientCollaboration) string { return r.Product }), batch.Collaboration...)
	case DatasetForums:
		m.forums = append(dropProduct(m.forums, product, func(r ForumEntry) string { return r.Product }), batch.Forums...)
	default:
		return fmt.Errorf("metrics: unsupported dataset %q", batch.Dataset)
	}
	return nil
}

func (m *MemoryRepository) ActionItems(_ context.Context, product, quarter string) ([]ActionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ActionItem
	for _, item := range m.actions {
		if strings.EqualFold(item.Product, product) && (quarter == "" || item.Quarter == quarter) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepository) ActionItem(_ context.Context, id string) (ActionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.actions[id]
	if !ok {
		return ActionItem{}, fmt.Errorf("%w: action item %s", ErrNotFound, id)
	}
	return item, nil
}

func (m *MemoryRepository) SaveActionItem(_ context.Context, item ActionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[item.ID] = item
	return nil
}

func (m *MemoryRepository) DeleteActionItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[id]; !ok {
		return fmt.Errorf("%w: action item %s", ErrNotFound, id)
	}
	delete(m.actions, id)
	return nil
}

func (m *MemoryRepository) DashboardState(_ context.Context, userID string) (DashboardState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[userID]
	if !ok {
		return DashboardState{}, ErrNotFound
	}
	return state, nil
}

func (m *MemoryRepository) SaveDashboardState(_ context.Context, state DashboardState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.UserID] = state
	return nil
}

func filterProduct[T any](rows []T, product string, key func(T) string) []T {
	var out []T
	for _, r := range rows {
		if strings.EqualFold(key(r), product) {
			out = append(out, r)
		}
	}
	return out
}

func dropProduct[T any](rows []T, product string, key func(T) string) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if !strings.EqualFold(key(r), product) {
			out = append(out, r)
		}
	}
	return out
}

var _ Repository = (*MemoryRepository)(nil)
