package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLayoutResolver struct {
	layout Layout
	err    error
}

func (s *stubLayoutResolver) ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	return s.layout, s.err
}

type stubRenderer struct {
	lastTemplate string
	lastPayload  map[string]any
	err          error
}

func (r *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	r.lastTemplate = name
	if payload, ok := data.(map[string]any); ok {
		r.lastPayload = payload
	}
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("<html></html>"))
	}
	return "<html></html>", r.err
}

func sampleLayout() Layout {
	return Layout{
		Scope: testScope,
		Areas: map[string][]WidgetInstance{
			AreaSidebar: {
				{ID: "forums", DefinitionID: WidgetForums, Metadata: map[string]any{"data": WidgetData{"count": 1}}},
			},
			AreaMain: {
				{ID: "engagement", DefinitionID: WidgetEngagement, Metadata: map[string]any{"data": WidgetData{"chart_type": ChartLine}}},
				{ID: "broken", DefinitionID: WidgetCollaboration, Metadata: map[string]any{"error": "boom"}},
			},
			"portal.dashboard.extra": {},
		},
		Hidden: []string{"clients"},
	}
}

func TestControllerRenderTemplate(t *testing.T) {
	renderer := &stubRenderer{}
	controller := NewController(ControllerOptions{
		Service:  &stubLayoutResolver{layout: sampleLayout()},
		Renderer: renderer,
	})

	var buf bytes.Buffer
	if err := controller.RenderTemplate(context.Background(), ViewerContext{UserID: "user", Email: "pm@example.com"}, &buf); err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if renderer.lastTemplate != "dashboard.html" {
		t.Fatalf("expected dashboard template to render, got %s", renderer.lastTemplate)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected rendered output")
	}
	assert.Equal(t, "Portal Metrics", renderer.lastPayload["title"])
	assert.Equal(t, testScope, renderer.lastPayload["scope"])
}

func TestControllerLayoutPayloadOrdersAreas(t *testing.T) {
	controller := NewController(ControllerOptions{Service: &stubLayoutResolver{layout: sampleLayout()}})
	payload, err := controller.LayoutPayload(context.Background(), ViewerContext{})
	require.NoError(t, err)

	areas := payload["areas"].([]map[string]any)
	require.Len(t, areas, 3)
	assert.Equal(t, AreaMain, areas[0]["code"])
	assert.Equal(t, "main", areas[0]["slot"])
	assert.Equal(t, AreaSidebar, areas[1]["code"])
	assert.Equal(t, "portal.dashboard.extra", areas[2]["code"])

	main := areas[0]["widgets"].([]map[string]any)
	assert.Equal(t, "widgets/chart.html", main[0]["template"])
	assert.Equal(t, "boom", main[1]["error"])
	assert.Equal(t, "widgets/generic.html", main[1]["template"])
	sidebar := areas[1]["widgets"].([]map[string]any)
	assert.Equal(t, "widgets/forums.html", sidebar[0]["template"])
	assert.Equal(t, []string{"clients"}, payload["hidden"])
}

func TestControllerPropagatesErrors(t *testing.T) {
	controller := NewController(ControllerOptions{
		Service:  &stubLayoutResolver{err: errors.New("no layout")},
		Renderer: &stubRenderer{},
	})
	err := controller.RenderTemplate(context.Background(), ViewerContext{}, io.Discard)
	assert.EqualError(t, err, "no layout")

	assert.Error(t, NewController(ControllerOptions{}).RenderTemplate(context.Background(), ViewerContext{}, io.Discard))
	_, err = NewController(ControllerOptions{}).Render(context.Background(), ViewerContext{})
	assert.Error(t, err)
}

func TestEmbeddedTemplatesCoverWidgetPartials(t *testing.T) {
	service := newSeededService(t, Options{Metrics: newStubMetrics()})
	controller := NewController(ControllerOptions{Service: service})
	payload, err := controller.LayoutPayload(context.Background(), ViewerContext{UserID: "user-1"})
	require.NoError(t, err)

	_, err = fs.Stat(embeddedTemplates, "templates/"+defaultDashboardTemplate)
	require.NoError(t, err)
	for _, area := range payload["areas"].([]map[string]any) {
		for _, widget := range area["widgets"].([]map[string]any) {
			name := widget["template"].(string)
			_, err := fs.Stat(embeddedTemplates, "templates/"+name)
			assert.NoError(t, err, "widget %s uses missing template %s", widget["id"], name)
		}
	}
}
