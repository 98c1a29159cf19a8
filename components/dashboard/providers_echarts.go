package dashboard

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

const defaultChartHeight = "360px"

// Chart kinds understood by ChartRenderer.
const (
	ChartBar   = "bar"
	ChartLine  = "line"
	ChartPie   = "pie"
	ChartGauge = "gauge"
)

var sharedChartCache = NewChartCache(5 * time.Minute)

// SharedChartCache returns the process-wide render cache used when a renderer
// is built without WithChartCache.
func SharedChartCache() *ChartCache {
	return sharedChartCache
}

// ThemeResolver selects a chart theme per viewer.
type ThemeResolver func(ViewerContext) string

// ChartSeries represents a set of values plotted for a given legend entry.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint represents an individual value (optionally labeled).
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSpec is everything needed to draw one chart.
type ChartSpec struct {
	Kind     string        `json:"kind"`
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle,omitempty"`
	XAxis    []string      `json:"x_axis,omitempty"`
	Series   []ChartSeries `json:"series"`
	Theme    string        `json:"theme,omitempty"`
	Height   string        `json:"height,omitempty"`
}

// ChartRenderer renders server-side chart HTML with go-echarts.
type ChartRenderer struct {
	cache         RenderCache
	theme         string
	themeResolver ThemeResolver
	assetsHost    string
}

// ChartOption customizes renderer behavior.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache. A nil cache disables caching.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets a static theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartThemeResolver resolves themes dynamically per viewer.
func WithChartThemeResolver(resolver ThemeResolver) ChartOption {
	return func(r *ChartRenderer) {
		r.themeResolver = resolver
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer backed by the shared cache.
func NewChartRenderer(opts ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{
		cache: sharedChartCache,
		theme: types.ThemeWesteros,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws spec for the viewer. Results are cached under a key that starts
// with the scope product, so uploads can invalidate a single product.
func (r *ChartRenderer) Render(spec ChartSpec, viewer ViewerContext, scope metrics.Scope, widgetID string) (string, error) {
	if len(spec.Series) == 0 {
		return "", fmt.Errorf("dashboard: chart %q has no series", spec.Title)
	}
	if spec.Theme == "" {
		spec.Theme = r.resolveTheme(viewer)
	}
	if spec.Height == "" {
		spec.Height = defaultChartHeight
	}
	render := func() (string, error) {
		return r.render(spec)
	}
	if r.cache == nil {
		return render()
	}
	return r.cache.GetOrRender(chartCacheKey(scope, widgetID, spec), render)
}

func chartCacheKey(scope metrics.Scope, widgetID string, spec ChartSpec) string {
	return strings.Join([]string{scope.Product, scope.Quarter, widgetID, specHash(spec)}, "|")
}

func (r *ChartRenderer) render(spec ChartSpec) (string, error) {
	switch spec.Kind {
	case ChartBar:
		return r.renderBar(spec)
	case ChartLine:
		return r.renderLine(spec)
	case ChartPie:
		return r.renderPie(spec)
	case ChartGauge:
		return r.renderGauge(spec)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart type: %s", spec.Kind)
	}
}

func (r *ChartRenderer) renderBar(spec ChartSpec) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(spec)...)
	bar.SetXAxis(axisLabels(spec))
	for _, s := range spec.Series {
		bar.AddSeries(s.Name, toBarData(s.Points))
	}
	return renderChart(bar)
}

func (r *ChartRenderer) renderLine(spec ChartSpec) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalOptions(spec)...)
	line.SetXAxis(axisLabels(spec))
	for _, s := range spec.Series {
		line.AddSeries(s.Name, toLineData(s.Points))
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderChart(line)
}

func (r *ChartRenderer) renderPie(spec ChartSpec) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalOptions(spec)...)
	for _, s := range spec.Series {
		pie.AddSeries(s.Name, toPieData(s.Points))
	}
	return renderChart(pie)
}

func (r *ChartRenderer) renderGauge(spec ChartSpec) (string, error) {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(r.globalOptions(spec)...)
	for _, s := range spec.Series {
		if len(s.Points) == 0 {
			continue
		}
		gauge.AddSeries(s.Name, []opts.GaugeData{
			{Name: s.Points[0].Label, Value: s.Points[0].Value},
		})
	}
	return renderChart(gauge)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalOptions(spec ChartSpec) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  spec.Theme,
		Width:  "100%",
		Height: spec.Height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: spec.Title, Subtitle: spec.Subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(spec.Kind != ChartGauge)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func (r *ChartRenderer) resolveTheme(viewer ViewerContext) string {
	if r.themeResolver != nil {
		if theme := r.themeResolver(viewer); theme != "" {
			return theme
		}
	}
	if r.theme != "" {
		return r.theme
	}
	return types.ThemeWesteros
}

func toBarData(points []ChartPoint) []opts.BarData {
	data := make([]opts.BarData, len(points))
	for i, point := range points {
		data[i] = opts.BarData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toLineData(points []ChartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toPieData(points []ChartPoint) []opts.PieData {
	data := make([]opts.PieData, len(points))
	for i, point := range points {
		name := point.Label
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{Name: name, Value: point.Value}
	}
	return data
}

// axisLabels returns the explicit axis or the labels of the longest series.
func axisLabels(spec ChartSpec) []string {
	if len(spec.XAxis) > 0 {
		return spec.XAxis
	}
	var candidate []string
	longest := 0
	for _, s := range spec.Series {
		if len(s.Points) <= longest {
			continue
		}
		longest = len(s.Points)
		candidate = make([]string, len(s.Points))
		for i, point := range s.Points {
			if point.Label != "" {
				candidate[i] = point.Label
			} else {
				candidate[i] = fmt.Sprintf("Item %d", i+1)
			}
		}
	}
	return candidate
}

func seriesFromMetrics(s metrics.Series) ChartSeries {
	points := make([]ChartPoint, len(s.Points))
	for i, p := range s.Points {
		points[i] = ChartPoint{Label: p.Label, Value: p.Value}
	}
	return ChartSeries{Name: s.Name, Points: points}
}

func specHash(spec ChartSpec) string {
	b, err := json.Marshal(spec)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
