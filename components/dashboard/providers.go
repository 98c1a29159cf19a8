package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

var (
	errNoMetrics = errors.New("dashboard: metrics view model unavailable")
	// ErrDetailUnsupported is returned for widgets without a breakdown table.
	ErrDetailUnsupported = errors.New("dashboard: widget has no detail view")
)

// UploadHistorySource lists recent uploads. *csvimport.Importer satisfies it.
type UploadHistorySource interface {
	History(ctx context.Context, limit int) ([]csvimport.Upload, error)
}

// metricWidget is a provider computed from the viewer's metrics view model.
type metricWidget struct {
	fetch  func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error)
	detail func(meta WidgetContext, view *metrics.ViewModel) WidgetDetail
}

var (
	_ Provider       = metricWidget{}
	_ DetailProvider = metricWidget{}
)

func (w metricWidget) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	if meta.View == nil {
		return nil, errNoMetrics
	}
	return w.fetch(ctx, meta, meta.View)
}

func (w metricWidget) Detail(_ context.Context, meta WidgetContext) (WidgetDetail, error) {
	if meta.View == nil {
		return WidgetDetail{}, errNoMetrics
	}
	if w.detail == nil {
		return WidgetDetail{}, ErrDetailUnsupported
	}
	detail := w.detail(meta, meta.View)
	detail.WidgetID = meta.Instance.ID
	detail.Scope = meta.View.Scope
	if detail.Rows == nil {
		detail.Rows = [][]any{}
	}
	return detail, nil
}

func defaultProviders(charts *ChartRenderer, history UploadHistorySource) map[string]Provider {
	return map[string]Provider{
		WidgetSummaryCards: metricWidget{fetch: fetchSummaryCards, detail: summaryDetail},
		WidgetResponsiveness: metricWidget{
			fetch:  func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) { return fetchResponsiveness(charts, meta, view) },
			detail: responsivenessDetail,
		},
		WidgetCommitment: metricWidget{
			fetch:  func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) { return fetchCommitment(charts, meta, view) },
			detail: commitmentDetail,
		},
		WidgetEngagement: metricWidget{
			fetch: func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
				return chartData(charts, meta, ChartSpec{
					Kind:   ChartLine,
					Title:  "Continued Engagement",
					Series: []ChartSeries{seriesFromMetrics(view.Engagement)},
				})
			},
			detail: engagementDetail,
		},
		WidgetClients: metricWidget{
			fetch: func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
				data, err := chartData(charts, meta, ChartSpec{
					Kind:     ChartPie,
					Title:    "Client Submissions",
					Subtitle: view.Scope.Quarter,
					Series:   []ChartSeries{seriesFromMetrics(view.ClientShare)},
				})
				if err != nil {
					return nil, err
				}
				data["clients"] = len(view.ClientShare.Points)
				data["submissions"] = view.Summary.Submissions
				return data, nil
			},
			detail: clientsDetail,
		},
		WidgetCollaboration: metricWidget{
			fetch: func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
				series := make([]ChartSeries, 0, len(view.Collaboration))
				for _, s := range view.Collaboration {
					series = append(series, seriesFromMetrics(s))
				}
				return chartData(charts, meta, ChartSpec{
					Kind:   ChartBar,
					Title:  "Cross-Client Collaboration",
					Series: series,
				})
			},
			detail: collaborationDetail,
		},
		WidgetTopFeatures: metricWidget{
			fetch:  func(ctx context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) { return fetchTopFeatures(charts, meta, view) },
			detail: topFeaturesDetail,
		},
		WidgetForums:        metricWidget{fetch: fetchForums, detail: forumsDetail},
		WidgetActionItems:   metricWidget{fetch: fetchActionItems, detail: actionItemsDetail},
		WidgetUploadHistory: newUploadHistoryProvider(history),
	}
}

// chartData applies instance overrides (title, theme, height) and renders spec.
func chartData(charts *ChartRenderer, meta WidgetContext, spec ChartSpec) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	spec.Title = stringValue(cfg["title"], spec.Title)
	spec.Theme = stringValue(cfg["theme"], spec.Theme)
	spec.Height = stringValue(cfg["height"], spec.Height)
	data := WidgetData{
		"title":      spec.Title,
		"subtitle":   spec.Subtitle,
		"chart_type": spec.Kind,
		"series":     spec.Series,
	}
	if seriesEmpty(spec.Series) {
		data["empty"] = true
		return data, nil
	}
	html, err := charts.Render(spec, meta.Viewer, meta.Scope, meta.Instance.ID)
	if err != nil {
		return nil, err
	}
	data["chart_html"] = html
	data["empty"] = false
	return data, nil
}

func seriesEmpty(series []ChartSeries) bool {
	for _, s := range series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

type summaryCard struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Value   any    `json:"value"`
	Display string `json:"display"`
	Hint    string `json:"hint,omitempty"`
}

func summaryCards(s metrics.Summary) []summaryCard {
	top := summaryCard{Key: "top_feature", Label: "Top feature", Value: s.TopFeature, Display: s.TopFeature}
	if s.TopFeature == "" {
		top.Display = "n/a"
	} else {
		top.Hint = fmt.Sprintf("%d votes", s.TopFeatureVotes)
	}
	return []summaryCard{
		{Key: "responsiveness", Label: "Responsiveness", Value: s.Responsiveness, Display: formatPercent(s.Responsiveness)},
		{Key: "commitment_delivery", Label: "Commitment delivery", Value: s.CommitmentDelivery, Display: formatPercent(s.CommitmentDelivery)},
		{Key: "engagement_rate", Label: "Continued engagement", Value: s.EngagementRate, Display: formatPercent(s.EngagementRate)},
		{Key: "collaboration", Label: "Collaborative ideas", Value: s.Collaboration, Display: strconv.Itoa(s.Collaboration)},
		{Key: "clients", Label: "Clients", Value: s.Clients, Display: strconv.Itoa(s.Clients)},
		{Key: "submissions", Label: "Submissions", Value: s.Submissions, Display: strconv.Itoa(s.Submissions)},
		{Key: "forums", Label: "Forums", Value: s.Forums, Display: strconv.Itoa(s.Forums)},
		top,
	}
}

// SummaryMetrics lists the summary keys a manifest provider may bind to.
func SummaryMetrics() []string {
	cards := summaryCards(metrics.Summary{})
	keys := make([]string, len(cards))
	for i, c := range cards {
		keys[i] = c.Key
	}
	return keys
}

func fetchSummaryCards(_ context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	cards := summaryCards(view.Summary)
	if wanted := stringSliceValue(meta.Instance.Configuration["cards"]); len(wanted) > 0 {
		byKey := make(map[string]summaryCard, len(cards))
		for _, c := range cards {
			byKey[c.Key] = c
		}
		selected := make([]summaryCard, 0, len(wanted))
		for _, key := range wanted {
			if c, ok := byKey[key]; ok {
				selected = append(selected, c)
			}
		}
		cards = selected
	}
	return WidgetData{
		"product": view.Scope.Product,
		"quarter": view.Scope.Quarter,
		"cards":   cards,
	}, nil
}

func fetchResponsiveness(charts *ChartRenderer, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	data, err := chartData(charts, meta, ChartSpec{
		Kind:   ChartLine,
		Title:  "Responsiveness",
		Series: []ChartSeries{seriesFromMetrics(view.Responsiveness)},
	})
	if err != nil {
		return nil, err
	}
	value := view.Summary.Responsiveness
	gauge, err := charts.Render(ChartSpec{
		Kind:   ChartGauge,
		Title:  view.Scope.Quarter,
		Series: []ChartSeries{{Name: "Responsiveness", Points: []ChartPoint{{Label: "%", Value: value}}}},
		Theme:  stringValue(meta.Instance.Configuration["theme"], ""),
		Height: "240px",
	}, meta.Viewer, meta.Scope, meta.Instance.ID+":gauge")
	if err != nil {
		return nil, err
	}
	data["gauge_html"] = gauge
	data["value"] = value
	data["display"] = formatPercent(value)
	return data, nil
}

var quarterAxis = []string{"Q1", "Q2", "Q3", "Q4"}

func fiscalLabel(year int) string {
	return fmt.Sprintf("FY%02d", year%100)
}

func fetchCommitment(charts *ChartRenderer, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	series := make([]ChartSeries, 0, len(view.Commitment)*2)
	rates := make([]map[string]any, 0, len(view.Commitment))
	for _, year := range view.Commitment {
		label := fiscalLabel(year.Year)
		committed := ChartSeries{Name: label + " committed"}
		delivered := ChartSeries{Name: label + " delivered"}
		for i, q := range quarterAxis {
			committed.Points = append(committed.Points, ChartPoint{Label: q, Value: float64(year.Committed[i])})
			delivered.Points = append(delivered.Points, ChartPoint{Label: q, Value: float64(year.Delivered[i])})
		}
		series = append(series, committed, delivered)
		rates = append(rates, map[string]any{
			"year":          label,
			"delivery_rate": year.DeliveryRate(),
			"display":       formatPercent(year.DeliveryRate()),
		})
	}
	if commitmentEmpty(view.Commitment) {
		series = nil
	}
	data, err := chartData(charts, meta, ChartSpec{
		Kind:   ChartBar,
		Title:  "Commitment Trends",
		XAxis:  quarterAxis,
		Series: series,
	})
	if err != nil {
		return nil, err
	}
	data["years"] = rates
	return data, nil
}

func commitmentEmpty(years []metrics.YearComparison) bool {
	for _, y := range years {
		for i := range y.Committed {
			if y.Committed[i] != 0 || y.Delivered[i] != 0 {
				return false
			}
		}
	}
	return true
}

func fetchTopFeatures(charts *ChartRenderer, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	limit := intValue(meta.Instance.Configuration["limit"], 10)
	features := metrics.TopFeatures(view.Rows.Features, view.Scope.Quarter, limit)
	votes := ChartSeries{Name: "Votes"}
	axis := make([]string, 0, len(features))
	items := make([]map[string]any, 0, len(features))
	for i, f := range features {
		axis = append(axis, f.Name)
		votes.Points = append(votes.Points, ChartPoint{Label: f.Name, Value: float64(f.Votes)})
		items = append(items, map[string]any{
			"rank":   i + 1,
			"name":   f.Name,
			"votes":  f.Votes,
			"status": f.Status,
		})
	}
	var series []ChartSeries
	if len(features) > 0 {
		series = []ChartSeries{votes}
	}
	data, err := chartData(charts, meta, ChartSpec{
		Kind:     ChartBar,
		Title:    "Top Features",
		Subtitle: view.Scope.Quarter,
		XAxis:    axis,
		Series:   series,
	})
	if err != nil {
		return nil, err
	}
	data["features"] = items
	data["limit"] = limit
	return data, nil
}

func fetchForums(_ context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	forums := view.Forums
	if forums == nil {
		forums = []string{}
	}
	return WidgetData{
		"title":   stringValue(meta.Instance.Configuration["title"], "Data Socialization Forums"),
		"quarter": view.Scope.Quarter,
		"forums":  forums,
		"count":   len(forums),
	}, nil
}

func fetchActionItems(_ context.Context, meta WidgetContext, view *metrics.ViewModel) (WidgetData, error) {
	status := stringValue(meta.Instance.Configuration["status"], "all")
	limit := intValue(meta.Instance.Configuration["limit"], 20)
	items := make([]map[string]any, 0, len(view.ActionItems))
	open := 0
	for _, item := range view.ActionItems {
		if item.Status != metrics.ActionDone {
			open++
		}
		if status != "all" && item.Status != status {
			continue
		}
		if len(items) >= limit {
			continue
		}
		items = append(items, actionItemView(item))
	}
	return WidgetData{
		"status": status,
		"items":  items,
		"open":   open,
		"total":  len(view.ActionItems),
	}, nil
}

func actionItemView(item metrics.ActionItem) map[string]any {
	view := map[string]any{
		"id":      item.ID,
		"title":   item.Title,
		"owner":   item.Owner,
		"status":  item.Status,
		"quarter": item.Quarter,
	}
	if item.DueDate != nil {
		view["due_date"] = item.DueDate.Format("2006-01-02")
	}
	return view
}

func newUploadHistoryProvider(source UploadHistorySource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		limit := intValue(meta.Instance.Configuration["limit"], 10)
		items := []map[string]any{}
		if source == nil {
			return WidgetData{"items": items}, nil
		}
		uploads, err := source.History(ctx, limit)
		if err != nil {
			return nil, err
		}
		for _, u := range uploads {
			items = append(items, map[string]any{
				"id":           u.ID,
				"dataset":      u.Dataset,
				"product":      u.Product,
				"filename":     u.Filename,
				"status":       u.Status,
				"rows_written": u.RowsWritten,
				"message":      u.Message,
				"uploaded_by":  u.UploadedBy,
				"created_at":   u.CreatedAt.UTC().Format("2006-01-02 15:04"),
			})
		}
		return WidgetData{"items": items}, nil
	})
}

func summaryDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{Title: "Summary", Columns: []string{"metric", "value"}}
	for _, c := range summaryCards(view.Summary) {
		detail.Rows = append(detail.Rows, []any{c.Label, c.Display})
	}
	return detail
}

func responsivenessDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Responsiveness by quarter",
		Columns: []string{"quarter", "total_ideas", "ideas_moved_out_of_review", "ideas_no_action", "percentage"},
	}
	rows := sortedByQuarter(view.Rows.Responsiveness, func(r metrics.ResponsivenessTrend) string { return r.Quarter })
	for _, r := range rows {
		detail.Rows = append(detail.Rows, []any{r.Quarter, r.TotalIdeas, r.MovedOutOfReview, r.NoAction, round1(metrics.ResponsivenessPercentage(r))})
	}
	return detail
}

func commitmentDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Committed vs delivered",
		Columns: []string{"year", "quarter", "committed", "delivered", "delivery_rate"},
	}
	for _, year := range view.Commitment {
		for i, q := range quarterAxis {
			rate := 0.0
			if year.Committed[i] > 0 {
				rate = math.Min(100, float64(year.Delivered[i])/float64(year.Committed[i])*100)
			}
			detail.Rows = append(detail.Rows, []any{fiscalLabel(year.Year), q, year.Committed[i], year.Delivered[i], round1(rate)})
		}
	}
	return detail
}

func engagementDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Continued engagement by quarter",
		Columns: []string{"quarter", "total_ideas", "ideas_with_subsequent_action", "engagement_rate", "idea_ids"},
	}
	rows := sortedByQuarter(view.Rows.Engagement, func(e metrics.ContinuedEngagement) string { return e.Quarter })
	for _, e := range rows {
		detail.Rows = append(detail.Rows, []any{e.Quarter, e.TotalIdeas, e.WithSubsequentAction, round1(metrics.EngagementRate(e)), strings.Join(e.IdeaIDs, ", ")})
	}
	return detail
}

func clientsDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Submissions by client",
		Columns: []string{"client_name", "submissions", "share"},
	}
	total := 0.0
	for _, p := range view.ClientShare.Points {
		total += p.Value
	}
	for _, p := range view.ClientShare.Points {
		share := 0.0
		if total > 0 {
			share = p.Value / total * 100
		}
		detail.Rows = append(detail.Rows, []any{p.Label, int(p.Value), round1(share)})
	}
	return detail
}

func collaborationDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Cross-client collaboration by quarter",
		Columns: []string{"quarter", "collaborative_ideas", "total_ideas", "idea_ids"},
	}
	rows := sortedByQuarter(view.Rows.Collaboration, func(c metrics.CrossClientCollaboration) string { return c.Quarter })
	for _, c := range rows {
		detail.Rows = append(detail.Rows, []any{c.Quarter, c.CollaborativeIdeas, c.TotalIdeas, strings.Join(c.IdeaIDs, ", ")})
	}
	return detail
}

func topFeaturesDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{
		Title:   "Features by votes",
		Columns: []string{"rank", "feature_name", "votes", "status", "feature_description"},
	}
	for i, f := range metrics.TopFeatures(view.Rows.Features, view.Scope.Quarter, 0) {
		detail.Rows = append(detail.Rows, []any{i + 1, f.Name, f.Votes, f.Status, f.Description})
	}
	return detail
}

func forumsDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{Title: "Forums by quarter", Columns: []string{"quarter", "forum_name"}}
	rows := sortedByQuarter(view.Rows.Forums, func(f metrics.ForumEntry) string { return f.Quarter })
	for _, f := range rows {
		detail.Rows = append(detail.Rows, []any{f.Quarter, f.ForumName})
	}
	return detail
}

func actionItemsDetail(_ WidgetContext, view *metrics.ViewModel) WidgetDetail {
	detail := WidgetDetail{Title: "Action items", Columns: []string{"title", "owner", "status", "due_date"}}
	for _, item := range view.ActionItems {
		due := ""
		if item.DueDate != nil {
			due = item.DueDate.Format("2006-01-02")
		}
		detail.Rows = append(detail.Rows, []any{item.Title, item.Owner, item.Status, due})
	}
	return detail
}

// sortedByQuarter returns a copy of rows ordered by fiscal quarter. Rows with
// unparseable labels sort last in their original order.
func sortedByQuarter[T any](rows []T, label func(T) string) []T {
	out := append([]T(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		qi, errI := metrics.ParseQuarter(label(out[i]))
		qj, errJ := metrics.ParseQuarter(label(out[j]))
		switch {
		case errI != nil:
			return false
		case errJ != nil:
			return true
		default:
			return qi.Before(qj)
		}
	})
	return out
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(round1(v), 'f', -1, 64) + "%"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringSliceValue(v any) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intValue(v any, fallback int) int {
	switch val := v.(type) {
	case int:
		if val > 0 {
			return val
		}
	case int64:
		if val > 0 {
			return int(val)
		}
	case float64:
		if val > 0 {
			return int(val)
		}
	case json.Number:
		if n, err := val.Int64(); err == nil && n > 0 {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
