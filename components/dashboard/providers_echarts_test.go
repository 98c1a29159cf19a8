package dashboard

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

func sampleSpec(kind string) ChartSpec {
	return ChartSpec{
		Kind:  kind,
		Title: "Test Chart",
		Series: []ChartSeries{{
			Name:   "Series 1",
			Points: []ChartPoint{{Label: "A", Value: 10}, {Label: "B", Value: 20}, {Label: "C", Value: 30}},
		}},
	}
}

func TestChartRendererKinds(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(WithChartCache(nil))
	for _, kind := range []string{ChartBar, ChartLine, ChartPie, ChartGauge} {
		html, err := renderer.Render(sampleSpec(kind), ViewerContext{}, testScope, "w-"+kind)
		require.NoError(t, err, kind)
		assert.Contains(t, html, "echarts", kind)
		assert.Contains(t, html, "Test Chart", kind)
	}
}

func TestChartRendererRejectsBadSpecs(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(WithChartCache(nil))
	_, err := renderer.Render(ChartSpec{Kind: ChartBar, Title: "Empty"}, ViewerContext{}, testScope, "w")
	assert.Error(t, err)

	_, err = renderer.Render(sampleSpec("bubble"), ViewerContext{}, testScope, "w")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported chart type")
}

func TestChartRendererUsesCache(t *testing.T) {
	t.Parallel()
	cache := &countingCache{}
	renderer := NewChartRenderer(WithChartCache(cache))

	_, err := renderer.Render(sampleSpec(ChartBar), ViewerContext{}, testScope, "w1")
	require.NoError(t, err)
	_, err = renderer.Render(sampleSpec(ChartBar), ViewerContext{}, testScope, "w1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&cache.calls))
	require.Len(t, cache.keys, 2)
	assert.Equal(t, cache.keys[0], cache.keys[1])
	assert.True(t, strings.HasPrefix(cache.keys[0], testProduct+"|FY25 Q2|w1|"))
}

func TestChartRendererCacheKeyTracksSpec(t *testing.T) {
	t.Parallel()
	spec := sampleSpec(ChartBar)
	other := sampleSpec(ChartBar)
	other.Series[0].Points[0].Value = 11
	assert.NotEqual(t, chartCacheKey(testScope, "w", spec), chartCacheKey(testScope, "w", other))
	assert.NotEqual(t,
		chartCacheKey(testScope, "w", spec),
		chartCacheKey(metrics.Scope{Product: "Borealis", Quarter: "FY25 Q2"}, "w", spec))
}

func TestChartRendererThemeSelection(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(
		WithChartCache(nil),
		WithChartTheme(types.ThemeWalden),
		WithChartThemeResolver(func(viewer ViewerContext) string {
			if viewer.UserID == "night-owl" {
				return types.ThemeChalk
			}
			return ""
		}),
	)

	html, err := renderer.Render(sampleSpec(ChartLine), ViewerContext{UserID: "someone"}, testScope, "w")
	require.NoError(t, err)
	assert.Contains(t, html, types.ThemeWalden)

	html, err = renderer.Render(sampleSpec(ChartLine), ViewerContext{UserID: "night-owl"}, testScope, "w")
	require.NoError(t, err)
	assert.Contains(t, html, types.ThemeChalk)

	spec := sampleSpec(ChartLine)
	spec.Theme = types.ThemeRoma
	html, err = renderer.Render(spec, ViewerContext{UserID: "night-owl"}, testScope, "w")
	require.NoError(t, err)
	assert.Contains(t, html, types.ThemeRoma)
}

func TestAxisLabelsFallsBackToLongestSeries(t *testing.T) {
	spec := ChartSpec{Series: []ChartSeries{
		{Points: []ChartPoint{{Label: "FY25 Q1"}}},
		{Points: []ChartPoint{{Label: "FY25 Q1"}, {}}},
	}}
	assert.Equal(t, []string{"FY25 Q1", "Item 2"}, axisLabels(spec))
	spec.XAxis = []string{"Q1"}
	assert.Equal(t, []string{"Q1"}, axisLabels(spec))
}

type countingCache struct {
	calls int32
	keys  []string
	inner *ChartCache
}

func (c *countingCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	c.keys = append(c.keys, key)
	if c.inner == nil {
		c.inner = NewChartCache(time.Minute)
	}
	return c.inner.GetOrRender(key, render)
}

func BenchmarkChartRendererBar(b *testing.B) {
	renderer := NewChartRenderer(WithChartCache(nil))
	spec := sampleSpec(ChartBar)
	for i := 0; i < b.N; i++ {
		if _, err := renderer.Render(spec, ViewerContext{}, testScope, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChartRendererBarCached(b *testing.B) {
	renderer := NewChartRenderer(WithChartCache(NewChartCache(time.Minute)))
	spec := sampleSpec(ChartBar)
	for i := 0; i < b.N; i++ {
		if _, err := renderer.Render(spec, ViewerContext{}, testScope, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}
