package csvimport

import (
	"fmt"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// ColumnKind controls how a cell is coerced and aggregated.
type ColumnKind int

const (
	// Text cells are trimmed; grouping keeps the first non-empty value.
	Text ColumnKind = iota
	// Integer cells must be whole, non-negative numbers; grouping sums them.
	Integer
	// Percent cells accept an optional % suffix and must fall in [0,100]; grouping keeps the first value.
	Percent
	// List cells hold idea ids; grouping unions them.
	List
	// QuarterLabel cells are normalized to "FYyy Qn".
	QuarterLabel
	// Year cells accept two or four digit years.
	Year
)

// Column describes one header of a layout.
type Column struct {
	Name     string
	Kind     ColumnKind
	Required bool
	Example  string
}

// Layout describes the accepted file format for a dataset.
type Layout struct {
	Dataset   metrics.Dataset
	Title     string
	Columns   []Column
	GroupKeys []string
}

// Required returns the headers that must be present.
func (l Layout) Required() []string {
	var out []string
	for _, c := range l.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// Headers returns every known header in template order.
func (l Layout) Headers() []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by canonical name.
func (l Layout) Column(name string) (Column, bool) {
	for _, c := range l.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func req(name string, kind ColumnKind, example string) Column {
	return Column{Name: name, Kind: kind, Required: true, Example: example}
}

func opt(name string, kind ColumnKind, example string) Column {
	return Column{Name: name, Kind: kind, Example: example}
}

var layouts = map[metrics.Dataset]Layout{
	metrics.DatasetResponsiveness: {
		Dataset: metrics.DatasetResponsiveness,
		Title:   "Responsiveness",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("total_ideas", Integer, "120"),
			req("ideas_moved_out_of_review", Integer, "96"),
			req("ideas_no_action", Integer, "24"),
			opt("percentage", Percent, "80"),
		},
		GroupKeys: []string{"product", "quarter"},
	},
	metrics.DatasetCommitment: {
		Dataset: metrics.DatasetCommitment,
		Title:   "Commitment trends",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("year", Year, "2025"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("committed", Integer, "18"),
			req("delivered", Integer, "15"),
		},
		GroupKeys: []string{"product", "year", "quarter"},
	},
	metrics.DatasetEngagement: {
		Dataset: metrics.DatasetEngagement,
		Title:   "Continued engagement",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("total_ideas", Integer, "40"),
			req("ideas_with_subsequent_action", Integer, "22"),
			req("idea_ids", List, "IDEA-101;IDEA-102"),
			opt("engagement_rate", Percent, "55"),
		},
		GroupKeys: []string{"product", "quarter"},
	},
	metrics.DatasetClientSubmissions: {
		Dataset: metrics.DatasetClientSubmissions,
		Title:   "Client submissions",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("client_name", Text, "Acme Capital"),
			req("submissions", Integer, "12"),
		},
		GroupKeys: []string{"product", "quarter", "client_name"},
	},
	metrics.DatasetCollaboration: {
		Dataset: metrics.DatasetCollaboration,
		Title:   "Cross-client collaboration",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("collaborative_ideas", Integer, "6"),
			req("total_ideas", Integer, "40"),
			req("idea_ids", List, "IDEA-201;IDEA-202"),
		},
		GroupKeys: []string{"product", "quarter"},
	},
	metrics.DatasetTopFeatures: {
		Dataset: metrics.DatasetTopFeatures,
		Title:   "Top features",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("feature_name", Text, "Bulk export"),
			req("votes", Integer, "87"),
			opt("feature_description", Text, "Export every report as CSV"),
			opt("status", Text, "planned"),
		},
		GroupKeys: []string{"product", "quarter", "feature_name"},
	},
	metrics.DatasetForums: {
		Dataset: metrics.DatasetForums,
		Title:   "Data socialization forums",
		Columns: []Column{
			req("product", Text, "Data Hub"),
			req("quarter", QuarterLabel, "FY25 Q1"),
			req("forum_name", Text, "Quarterly client council"),
		},
		GroupKeys: []string{"product", "quarter", "forum_name"},
	},
}

// LayoutFor returns the layout registered for a dataset.
func LayoutFor(dataset metrics.Dataset) (Layout, error) {
	layout, ok := layouts[dataset]
	if !ok {
		return Layout{}, &ImportError{Kind: FileError, Msg: fmt.Sprintf("unknown dataset %q", dataset)}
	}
	return layout, nil
}

// Layouts lists every layout in dataset order.
func Layouts() []Layout {
	out := make([]Layout, 0, len(layouts))
	for _, d := range metrics.Datasets() {
		if l, ok := layouts[d]; ok {
			out = append(out, l)
		}
	}
	return out
}
