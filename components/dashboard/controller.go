package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
)

const defaultDashboardTemplate = "dashboard.html"

type layoutResolver interface {
	ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error)
}

// ControllerOptions wires the controller collaborators.
type ControllerOptions struct {
	Service  layoutResolver
	Renderer Renderer
	Template string
	Title    string
}

// Controller renders the portal dashboard as HTML or JSON.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = defaultDashboardTemplate
	}
	if opts.Title == "" {
		opts.Title = "Portal Metrics"
	}
	return &Controller{opts: opts}
}

// Render resolves the layout for a viewer and returns it to the caller.
func (c *Controller) Render(ctx context.Context, viewer ViewerContext) (Layout, error) {
	if c.opts.Service == nil {
		return Layout{}, errors.New("dashboard: controller has no layout service")
	}
	return c.opts.Service.ConfigureLayout(ctx, viewer)
}

// RenderTemplate renders the dashboard page into out.
func (c *Controller) RenderTemplate(ctx context.Context, viewer ViewerContext, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: controller has no renderer")
	}
	payload, err := c.LayoutPayload(ctx, viewer)
	if err != nil {
		return err
	}
	payload["title"] = c.opts.Title
	payload["viewer"] = viewer
	_, err = c.opts.Renderer.Render(c.opts.Template, payload, out)
	return err
}

// LayoutPayload returns the layout as ordered areas ready for templates and
// JSON clients.
func (c *Controller) LayoutPayload(ctx context.Context, viewer ViewerContext) (map[string]any, error) {
	layout, err := c.Render(ctx, viewer)
	if err != nil {
		return nil, err
	}
	areas := make([]map[string]any, 0, len(layout.Areas))
	for _, code := range orderedAreaCodes(layout) {
		widgets := make([]map[string]any, 0, len(layout.Areas[code]))
		for _, w := range layout.Areas[code] {
			widgets = append(widgets, widgetPayload(w))
		}
		areas = append(areas, map[string]any{
			"code":    code,
			"slot":    areaSlot(code),
			"widgets": widgets,
		})
	}
	hidden := layout.Hidden
	if hidden == nil {
		hidden = []string{}
	}
	return map[string]any{
		"scope":  layout.Scope,
		"areas":  areas,
		"hidden": hidden,
	}, nil
}

func widgetPayload(w WidgetInstance) map[string]any {
	payload := map[string]any{
		"id":         w.ID,
		"definition": w.DefinitionID,
		"area":       w.AreaCode,
		"position":   w.Position,
		"config":     w.Configuration,
		"template":   widgetTemplate(w),
	}
	if data, ok := w.Metadata["data"]; ok {
		payload["data"] = data
	}
	if msg, ok := w.Metadata["error"]; ok {
		payload["error"] = msg
	}
	return payload
}

func widgetTemplate(w WidgetInstance) string {
	if data, ok := w.Metadata["data"].(WidgetData); ok {
		if _, chart := data["chart_type"]; chart {
			return "widgets/chart.html"
		}
	}
	switch w.DefinitionID {
	case WidgetSummaryCards, WidgetForums, WidgetActionItems, WidgetUploadHistory:
		return "widgets/" + areaSlot(w.DefinitionID) + ".html"
	}
	return "widgets/generic.html"
}

// areaSlot returns the last dotted segment of a code.
func areaSlot(code string) string {
	return code[strings.LastIndex(code, ".")+1:]
}

func orderedAreaCodes(layout Layout) []string {
	codes := make([]string, 0, len(layout.Areas))
	seen := map[string]bool{}
	for _, code := range defaultAreas {
		if _, ok := layout.Areas[code]; ok {
			codes = append(codes, code)
			seen[code] = true
		}
	}
	var extra []string
	for code := range layout.Areas {
		if !seen[code] {
			extra = append(extra, code)
		}
	}
	return append(codes, sortedIDs(extra)...)
}
