package dashboard

import "github.com/go-echarts/go-echarts/v2/types"

// Area codes of the portal dashboard.
const (
	AreaSummary = "portal.dashboard.summary"
	AreaMain    = "portal.dashboard.main"
	AreaSidebar = "portal.dashboard.sidebar"
)

// Widget definition codes.
const (
	WidgetSummaryCards   = "portal.widget.summary_cards"
	WidgetResponsiveness = "portal.widget.responsiveness"
	WidgetCommitment     = "portal.widget.commitment_trends"
	WidgetEngagement     = "portal.widget.continued_engagement"
	WidgetClients        = "portal.widget.client_submissions"
	WidgetCollaboration  = "portal.widget.cross_client_collaboration"
	WidgetTopFeatures    = "portal.widget.top_features"
	WidgetForums         = "portal.widget.forums"
	WidgetActionItems    = "portal.widget.action_items"
	WidgetUploadHistory  = "portal.widget.upload_history"
)

var defaultAreas = []string{AreaSummary, AreaMain, AreaSidebar}

var defaultAreaDefinitions = []WidgetAreaDefinition{
	{Code: AreaSummary, Name: "Portal Dashboard (Summary)", Description: "Metric cards for the selected quarter"},
	{Code: AreaMain, Name: "Portal Dashboard (Main)", Description: "Trend charts"},
	{Code: AreaSidebar, Name: "Portal Dashboard (Sidebar)", Description: "Lists and activity"},
}

var summaryCardKeys = []string{
	"responsiveness",
	"commitment_delivery",
	"engagement_rate",
	"collaboration",
	"clients",
	"submissions",
	"forums",
	"top_feature",
}

var chartThemes = []string{
	types.ThemeWesteros,
	types.ThemeWalden,
	types.ThemeMacarons,
	types.ThemeShine,
	types.ThemeVintage,
	types.ThemeInfographic,
	types.ThemeRoma,
	types.ThemeWonderland,
	types.ThemeEssos,
	types.ThemeChalk,
	types.ThemePurplePassion,
	types.ThemeRomantic,
}

var defaultWidgetDefinitions = []WidgetDefinition{
	{
		Code:        WidgetSummaryCards,
		Name:        "Summary",
		Description: "Headline metrics for the selected product and quarter.",
		Category:    "summary",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cards": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string", "enum": summaryCardKeys},
					"uniqueItems": true,
				},
			},
			"additionalProperties": false,
		},
	},
	{
		Code:        WidgetResponsiveness,
		Name:        "Responsiveness",
		Description: "Share of ideas moved out of review, as a gauge for the quarter and a trend line.",
		Category:    "charts",
		Schema:      chartSchema(nil),
	},
	{
		Code:        WidgetCommitment,
		Name:        "Commitment Trends",
		Description: "Committed versus delivered ideas, this fiscal year against the last.",
		Category:    "charts",
		Schema:      chartSchema(nil),
	},
	{
		Code:        WidgetEngagement,
		Name:        "Continued Engagement",
		Description: "Ideas that saw subsequent action, by quarter.",
		Category:    "charts",
		Schema:      chartSchema(nil),
	},
	{
		Code:        WidgetClients,
		Name:        "Client Submissions",
		Description: "Submissions per client for the quarter.",
		Category:    "charts",
		Schema:      chartSchema(nil),
	},
	{
		Code:        WidgetCollaboration,
		Name:        "Cross-Client Collaboration",
		Description: "Ideas voted on by more than one client, by quarter.",
		Category:    "charts",
		Schema:      chartSchema(nil),
	},
	{
		Code:        WidgetTopFeatures,
		Name:        "Top Features",
		Description: "Most voted ideas of the quarter.",
		Category:    "charts",
		Schema: chartSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 25, "default": 10},
		}),
	},
	{
		Code:        WidgetForums,
		Name:        "Data Socialization Forums",
		Description: "Forums held during the quarter.",
		Category:    "lists",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
			"additionalProperties": false,
		},
	},
	{
		Code:        WidgetActionItems,
		Name:        "Action Items",
		Description: "Follow-ups tracked for the product.",
		Category:    "lists",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type": "string",
					"enum": []string{"all", "open", "in_progress", "done"},
				},
				"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 20},
			},
			"additionalProperties": false,
		},
	},
	{
		Code:        WidgetUploadHistory,
		Name:        "Upload History",
		Description: "Latest CSV and workbook uploads.",
		Category:    "activity",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 50, "default": 10},
			},
			"additionalProperties": false,
		},
	},
}

func chartSchema(extra map[string]any) map[string]any {
	props := map[string]any{
		"title":  map[string]any{"type": "string"},
		"theme":  map[string]any{"type": "string", "enum": chartThemes},
		"height": map[string]any{"type": "string", "pattern": "^[0-9]+(px|vh|%)$"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

var defaultSeedWidgets = []AddWidgetRequest{
	{ID: "summary", DefinitionID: WidgetSummaryCards, AreaCode: AreaSummary},
	{ID: "responsiveness", DefinitionID: WidgetResponsiveness, AreaCode: AreaMain},
	{ID: "commitment", DefinitionID: WidgetCommitment, AreaCode: AreaMain},
	{ID: "engagement", DefinitionID: WidgetEngagement, AreaCode: AreaMain},
	{ID: "collaboration", DefinitionID: WidgetCollaboration, AreaCode: AreaMain},
	{ID: "top_features", DefinitionID: WidgetTopFeatures, AreaCode: AreaMain, Configuration: map[string]any{"limit": 10}},
	{ID: "clients", DefinitionID: WidgetClients, AreaCode: AreaSidebar},
	{ID: "forums", DefinitionID: WidgetForums, AreaCode: AreaSidebar},
	{ID: "action_items", DefinitionID: WidgetActionItems, AreaCode: AreaSidebar, Configuration: map[string]any{"status": "all"}},
	{ID: "uploads", DefinitionID: WidgetUploadHistory, AreaCode: AreaSidebar, Configuration: map[string]any{"limit": 10}},
}

// DefaultAreaDefinitions returns the dashboard areas.
func DefaultAreaDefinitions() []WidgetAreaDefinition {
	return append([]WidgetAreaDefinition(nil), defaultAreaDefinitions...)
}

// DefaultWidgetDefinitions returns the built-in widget definitions.
func DefaultWidgetDefinitions() []WidgetDefinition {
	return append([]WidgetDefinition(nil), defaultWidgetDefinitions...)
}

// DefaultSeedWidgets returns the starter layout: one instance of every
// built-in widget with stable ids.
func DefaultSeedWidgets() []AddWidgetRequest {
	out := make([]AddWidgetRequest, len(defaultSeedWidgets))
	for i, req := range defaultSeedWidgets {
		req.Configuration = cloneMap(req.Configuration)
		out[i] = req
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
