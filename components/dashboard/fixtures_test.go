package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

const testProduct = "Atlas"

var testScope = metrics.Scope{Product: testProduct, Quarter: "FY25 Q2"}

func sampleRows() metrics.Rows {
	due := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	return metrics.Rows{
		Features: []metrics.Feature{
			{Product: testProduct, Quarter: "FY25 Q2", Name: "Bulk export", Votes: 42, Status: "planned"},
			{Product: testProduct, Quarter: "FY25 Q2", Name: "SSO", Votes: 17, Status: "shipped"},
			{Product: testProduct, Quarter: "FY25 Q2", Name: "Dark mode", Votes: 30, Status: "review"},
			{Product: testProduct, Quarter: "FY25 Q1", Name: "Audit log", Votes: 99, Status: "shipped"},
		},
		Responsiveness: []metrics.ResponsivenessTrend{
			{Product: testProduct, Quarter: "FY25 Q2", TotalIdeas: 20, MovedOutOfReview: 15, NoAction: 5},
			{Product: testProduct, Quarter: "FY25 Q1", TotalIdeas: 10, MovedOutOfReview: 5, NoAction: 5},
		},
		Commitments: []metrics.CommitmentTrend{
			{Product: testProduct, Year: 2025, Quarter: "FY25 Q1", Committed: 10, Delivered: 8},
			{Product: testProduct, Year: 2025, Quarter: "FY25 Q2", Committed: 6, Delivered: 6},
		},
		Engagement: []metrics.ContinuedEngagement{
			{Product: testProduct, Quarter: "FY25 Q2", TotalIdeas: 10, WithSubsequentAction: 4, IdeaIDs: metrics.StringList{"I-1", "I-2"}},
		},
		Clients: []metrics.ClientSubmission{
			{Product: testProduct, Quarter: "FY25 Q2", ClientName: "Acme", Submissions: 6},
			{Product: testProduct, Quarter: "FY25 Q2", ClientName: "Globex", Submissions: 2},
		},
		Collaboration: []metrics.CrossClientCollaboration{
			{Product: testProduct, Quarter: "FY25 Q2", CollaborativeIdeas: 3, TotalIdeas: 12},
		},
		Forums: []metrics.ForumEntry{
			{Product: testProduct, Quarter: "FY25 Q2", ForumName: "Quarterly roadmap review"},
		},
		ActionItems: []metrics.ActionItem{
			{ID: "a1", Product: testProduct, Quarter: "FY25 Q2", Title: "Publish roadmap", Owner: "pm", Status: metrics.ActionOpen, DueDate: &due},
			{ID: "a2", Product: testProduct, Quarter: "FY25 Q2", Title: "Close survey", Owner: "ux", Status: metrics.ActionDone},
		},
	}
}

func sampleView() metrics.ViewModel {
	return metrics.BuildViewModel(testScope, sampleRows(), 10)
}

type stubMetrics struct {
	mu         sync.Mutex
	scope      metrics.Scope
	view       metrics.ViewModel
	scopeErr   error
	viewErr    error
	viewCalls  int
	scopeUsers []string
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{scope: testScope, view: sampleView()}
}

func (s *stubMetrics) Scope(_ context.Context, userID string) (metrics.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopeUsers = append(s.scopeUsers, userID)
	return s.scope, s.scopeErr
}

func (s *stubMetrics) ViewModel(_ context.Context, _ metrics.Scope) (metrics.ViewModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewCalls++
	return s.view, s.viewErr
}

type stubHistory struct {
	uploads []csvimport.Upload
	err     error
	limit   int
}

func (s *stubHistory) History(_ context.Context, limit int) ([]csvimport.Upload, error) {
	s.limit = limit
	return s.uploads, s.err
}

type collectingHook struct {
	mu     sync.Mutex
	events []WidgetEvent
	err    error
}

func (h *collectingHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *collectingHook) reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Reason)
	}
	return out
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type allowListAuthorizer struct {
	allowed map[string]bool
}

func (a allowListAuthorizer) CanViewWidget(_ context.Context, _ ViewerContext, instance WidgetInstance) bool {
	return a.allowed[instance.ID]
}

// newTestRegistry uses a private cache so tests never share rendered charts.
func newTestRegistry(history UploadHistorySource) *Registry {
	return NewRegistry(
		WithChartRenderer(NewChartRenderer(WithChartCache(NewChartCache(time.Minute)))),
		WithUploadHistory(history),
	)
}

// newSeededService wires a memory store seeded with the starter layout.
func newSeededService(t interface {
	Fatalf(format string, args ...any)
}, opts Options) *Service {
	if opts.WidgetStore == nil {
		opts.WidgetStore = NewMemoryWidgetStore()
	}
	if opts.Providers == nil {
		opts.Providers = newTestRegistry(nil)
	}
	ctx := context.Background()
	if err := RegisterAreas(ctx, opts.WidgetStore); err != nil {
		t.Fatalf("register areas: %v", err)
	}
	if err := RegisterDefinitions(ctx, opts.WidgetStore, opts.Providers); err != nil {
		t.Fatalf("register definitions: %v", err)
	}
	service := NewService(opts)
	if _, err := SeedLayout(ctx, service); err != nil {
		t.Fatalf("seed layout: %v", err)
	}
	return service
}
