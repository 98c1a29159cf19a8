package csvimport

import (
	"strings"
	"unicode"

	"github.com/ettle/strcase"
)

// aliases maps compacted header spellings (lowercase, alphanumerics only) to canonical columns.
var aliases = map[string]string{
	"product":                    "product",
	"productname":                "product",
	"quarter":                    "quarter",
	"fiscalquarter":              "quarter",
	"fyquarter":                  "quarter",
	"year":                       "year",
	"fiscalyear":                 "year",
	"fy":                         "year",
	"totalideas":                 "total_ideas",
	"ideas":                      "total_ideas",
	"ideasmovedoutofreview":      "ideas_moved_out_of_review",
	"ideasmovedoutofneedsreview": "ideas_moved_out_of_review",
	"movedoutofreview":           "ideas_moved_out_of_review",
	"ideasnoaction":              "ideas_no_action",
	"ideaswithnoaction":          "ideas_no_action",
	"noaction":                   "ideas_no_action",
	"percentage":                 "percentage",
	"percent":                    "percentage",
	"responsiveness":             "percentage",
	"committed":                  "committed",
	"ideascommitted":             "committed",
	"committedideas":             "committed",
	"delivered":                  "delivered",
	"ideasdelivered":             "delivered",
	"deliveredideas":             "delivered",
	"ideaswithsubsequentaction":  "ideas_with_subsequent_action",
	"subsequentaction":           "ideas_with_subsequent_action",
	"ideaids":                    "idea_ids",
	"ids":                        "idea_ids",
	"engagementrate":             "engagement_rate",
	"rate":                       "engagement_rate",
	"clientname":                 "client_name",
	"client":                     "client_name",
	"submissions":                "submissions",
	"ideassubmitted":             "submissions",
	"collaborativeideas":         "collaborative_ideas",
	"featurename":                "feature_name",
	"feature":                    "feature_name",
	"featuredescription":         "feature_description",
	"description":                "feature_description",
	"votes":                      "votes",
	"votecount":                  "votes",
	"status":                     "status",
	"forumname":                  "forum_name",
	"forum":                      "forum_name",
}

// NormalizeHeader maps a raw header cell to its canonical snake_case column name.
// Unknown headers are returned in snake case so they can be reported or ignored.
func NormalizeHeader(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if raw == "" {
		return ""
	}
	if canonical, ok := aliases[compact(raw)]; ok {
		return canonical
	}
	return strcase.ToSnake(raw)
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
