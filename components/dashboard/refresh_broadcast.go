package dashboard

import (
	"context"
	"errors"
	"sync"
)

// BroadcastHook fans out widget events to in-process subscribers. Slow
// subscribers miss events rather than block the publisher.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]chan WidgetEvent
	next int
}

var _ RefreshHook = (*BroadcastHook)(nil)

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{
		subs: make(map[int]chan WidgetEvent),
	}
}

// WidgetUpdated satisfies the RefreshHook interface and broadcasts events.
func (h *BroadcastHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of widget events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan WidgetEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan WidgetEvent, 8)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ProductInvalidator drops cached renders for a product. *ChartCache satisfies it.
type ProductInvalidator interface {
	InvalidateProduct(product string) int
}

// CacheInvalidationHook clears cached charts of a product when new data is
// uploaded for it, then forwards the event.
type CacheInvalidationHook struct {
	cache ProductInvalidator
	next  RefreshHook
}

// NewCacheInvalidationHook wraps next. A nil next only invalidates.
func NewCacheInvalidationHook(cache ProductInvalidator, next RefreshHook) *CacheInvalidationHook {
	if next == nil {
		next = noopRefreshHook{}
	}
	return &CacheInvalidationHook{cache: cache, next: next}
}

// WidgetUpdated invalidates on uploads and refreshes.
func (h *CacheInvalidationHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	if h.cache != nil && (event.Reason == ReasonUpload || event.Reason == ReasonRefresh) {
		h.cache.InvalidateProduct(event.Product)
	}
	return h.next.WidgetUpdated(ctx, event)
}

// MultiHook calls every hook in order and joins their errors.
type MultiHook []RefreshHook

// WidgetUpdated dispatches to all hooks.
func (m MultiHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	var errs error
	for _, hook := range m {
		if hook == nil {
			continue
		}
		errs = errors.Join(errs, hook.WidgetUpdated(ctx, event))
	}
	return errs
}
