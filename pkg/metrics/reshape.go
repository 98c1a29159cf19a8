package metrics

import (
	"sort"
	"strings"
)

// Point is a single labeled value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a named list of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Summary holds the metric cards for a scope.
type Summary struct {
	Responsiveness     float64 `json:"responsiveness"`
	CommitmentDelivery float64 `json:"commitment_delivery"`
	EngagementRate     float64 `json:"engagement_rate"`
	Collaboration      int     `json:"collaboration"`
	Clients            int     `json:"clients"`
	Submissions        int     `json:"submissions"`
	Forums             int     `json:"forums"`
	TopFeature         string  `json:"top_feature"`
	TopFeatureVotes    int     `json:"top_feature_votes"`
}

// YearComparison lists committed and delivered counts per quarter number of a fiscal year.
type YearComparison struct {
	Year      int    `json:"year"`
	Committed [4]int `json:"committed"`
	Delivered [4]int `json:"delivered"`
}

// DeliveryRate returns delivered over committed for the year as a percentage.
func (y YearComparison) DeliveryRate() float64 {
	committed, delivered := 0, 0
	for i := range y.Committed {
		committed += y.Committed[i]
		delivered += y.Delivered[i]
	}
	return percent(float64(delivered), float64(committed))
}

// Rows groups the raw rows loaded for one product.
type Rows struct {
	Features       []Feature
	Responsiveness []ResponsivenessTrend
	Commitments    []CommitmentTrend
	Engagement     []ContinuedEngagement
	Clients        []ClientSubmission
	Collaboration  []CrossClientCollaboration
	Forums         []ForumEntry
	ActionItems    []ActionItem
}

// ViewModel is the reshaped payload rendered by the dashboard.
type ViewModel struct {
	Scope          Scope            `json:"scope"`
	Summary        Summary          `json:"summary"`
	Responsiveness Series           `json:"responsiveness"`
	Commitment     []YearComparison `json:"commitment"`
	Engagement     Series           `json:"engagement"`
	ClientShare    Series           `json:"client_share"`
	Collaboration  []Series         `json:"collaboration"`
	TopFeatures    []Feature        `json:"top_features"`
	Forums         []string         `json:"forums"`
	ActionItems    []ActionItem     `json:"action_items"`
	Rows           Rows             `json:"-"`
}

// BuildViewModel reshapes the rows of a product into the view model for a scope.
func BuildViewModel(scope Scope, rows Rows, topN int) ViewModel {
	return ViewModel{
		Scope:          scope,
		Summary:        BuildSummary(scope, rows),
		Responsiveness: ResponsivenessSeries(rows.Responsiveness),
		Commitment:     CommitmentComparison(rows.Commitments, scope.Quarter),
		Engagement:     EngagementSeries(rows.Engagement),
		ClientShare:    ClientShare(rows.Clients, scope.Quarter),
		Collaboration:  CollaborationSeries(rows.Collaboration),
		TopFeatures:    TopFeatures(rows.Features, scope.Quarter, topN),
		Forums:         ForumNames(rows.Forums, scope.Quarter),
		ActionItems:    rows.ActionItems,
		Rows:           rows,
	}
}

// BuildSummary computes the metric cards for the scope quarter.
func BuildSummary(scope Scope, rows Rows) Summary {
	var s Summary
	for _, r := range rows.Responsiveness {
		if sameQuarter(r.Quarter, scope.Quarter) {
			s.Responsiveness = ResponsivenessPercentage(r)
		}
	}
	for _, y := range CommitmentComparison(rows.Commitments, scope.Quarter) {
		if q, err := ParseQuarter(scope.Quarter); err == nil && y.Year == q.FiscalYear() {
			committed, delivered := 0, 0
			for i := 0; i < q.Number; i++ {
				committed += y.Committed[i]
				delivered += y.Delivered[i]
			}
			s.CommitmentDelivery = percent(float64(delivered), float64(committed))
		}
	}
	for _, e := range rows.Engagement {
		if sameQuarter(e.Quarter, scope.Quarter) {
			s.EngagementRate = EngagementRate(e)
		}
	}
	for _, c := range rows.Collaboration {
		if sameQuarter(c.Quarter, scope.Quarter) {
			s.Collaboration += c.CollaborativeIdeas
		}
	}
	share := ClientShare(rows.Clients, scope.Quarter)
	s.Clients = len(share.Points)
	for _, p := range share.Points {
		s.Submissions += int(p.Value)
	}
	s.Forums = len(ForumNames(rows.Forums, scope.Quarter))
	if top := TopFeatures(rows.Features, scope.Quarter, 1); len(top) > 0 {
		s.TopFeature = top[0].Name
		s.TopFeatureVotes = top[0].Votes
	}
	return s
}

// ResponsivenessPercentage prefers the recorded percentage and derives it otherwise.
func ResponsivenessPercentage(r ResponsivenessTrend) float64 {
	if r.Percentage > 0 {
		return clampPercent(r.Percentage)
	}
	return percent(float64(r.MovedOutOfReview), float64(r.TotalIdeas))
}

// EngagementRate prefers the recorded rate and derives it otherwise.
func EngagementRate(e ContinuedEngagement) float64 {
	if e.Rate > 0 {
		return clampPercent(e.Rate)
	}
	return percent(float64(e.WithSubsequentAction), float64(e.TotalIdeas))
}

// ResponsivenessSeries orders responsiveness percentages by quarter.
func ResponsivenessSeries(rows []ResponsivenessTrend) Series {
	byQuarter := map[string]float64{}
	for _, r := range rows {
		byQuarter[canonicalQuarter(r.Quarter)] = ResponsivenessPercentage(r)
	}
	return Series{Name: "Responsiveness", Points: orderedPoints(byQuarter)}
}

// EngagementSeries orders engagement rates by quarter.
func EngagementSeries(rows []ContinuedEngagement) Series {
	byQuarter := map[string]float64{}
	for _, e := range rows {
		byQuarter[canonicalQuarter(e.Quarter)] = EngagementRate(e)
	}
	return Series{Name: "Continued engagement", Points: orderedPoints(byQuarter)}
}

// CollaborationSeries returns collaborative and total idea counts by quarter.
func CollaborationSeries(rows []CrossClientCollaboration) []Series {
	collab := map[string]float64{}
	total := map[string]float64{}
	for _, c := range rows {
		q := canonicalQuarter(c.Quarter)
		collab[q] += float64(c.CollaborativeIdeas)
		total[q] += float64(c.TotalIdeas)
	}
	return []Series{
		{Name: "Collaborative ideas", Points: orderedPoints(collab)},
		{Name: "Total ideas", Points: orderedPoints(total)},
	}
}

// CommitmentComparison returns the fiscal year of quarter and the year before it.
func CommitmentComparison(rows []CommitmentTrend, quarter string) []YearComparison {
	q, err := ParseQuarter(quarter)
	if err != nil {
		return nil
	}
	current := YearComparison{Year: q.FiscalYear()}
	previous := YearComparison{Year: q.FiscalYear() - 1}
	for _, r := range rows {
		rq, err := ParseQuarter(r.Quarter)
		if err != nil {
			continue
		}
		year := r.Year
		if year == 0 {
			year = rq.FiscalYear()
		}
		idx := rq.Number - 1
		switch year {
		case current.Year:
			current.Committed[idx] += r.Committed
			current.Delivered[idx] += r.Delivered
		case previous.Year:
			previous.Committed[idx] += r.Committed
			previous.Delivered[idx] += r.Delivered
		}
	}
	return []YearComparison{previous, current}
}

// ClientShare sums submissions per client for a quarter, largest first.
func ClientShare(rows []ClientSubmission, quarter string) Series {
	totals := map[string]float64{}
	var order []string
	for _, c := range rows {
		if !sameQuarter(c.Quarter, quarter) {
			continue
		}
		name := strings.TrimSpace(c.ClientName)
		if name == "" {
			continue
		}
		if _, ok := totals[name]; !ok {
			order = append(order, name)
		}
		totals[name] += float64(c.Submissions)
	}
	points := make([]Point, 0, len(order))
	for _, name := range order {
		points = append(points, Point{Label: name, Value: totals[name]})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	return Series{Name: "Client submissions", Points: points}
}

// TopFeatures returns the n most voted features of a quarter. n <= 0 returns all.
func TopFeatures(rows []Feature, quarter string, n int) []Feature {
	var out []Feature
	for _, f := range rows {
		if sameQuarter(f.Quarter, quarter) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ForumNames lists distinct forum names for a quarter in upload order.
func ForumNames(rows []ForumEntry, quarter string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range rows {
		if !sameQuarter(f.Quarter, quarter) {
			continue
		}
		name := strings.TrimSpace(f.ForumName)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func orderedPoints(values map[string]float64) []Point {
	labels := make([]string, 0, len(values))
	for label := range values {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		qi, errI := ParseQuarter(labels[i])
		qj, errJ := ParseQuarter(labels[j])
		if errI != nil || errJ != nil {
			return labels[i] < labels[j]
		}
		return qi.Before(qj)
	})
	points := make([]Point, len(labels))
	for i, label := range labels {
		points[i] = Point{Label: label, Value: values[label]}
	}
	return points
}

func sameQuarter(a, b string) bool {
	return canonicalQuarter(a) == canonicalQuarter(b)
}

func canonicalQuarter(label string) string {
	if normalized, err := NormalizeQuarter(label); err == nil {
		return normalized
	}
	return strings.TrimSpace(label)
}

func percent(part, whole float64) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return clampPercent(part / whole * 100)
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
