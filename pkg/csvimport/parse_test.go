package csvimport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

func mustLayout(t *testing.T, dataset metrics.Dataset) Layout {
	t.Helper()
	layout, err := LayoutFor(dataset)
	require.NoError(t, err)
	return layout
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Idea IDs":          "idea_ids",
		"\ufeffProduct":     "product",
		"Feature":           "feature_name",
		"Total Ideas":       "total_ideas",
		"engagement rate %": "engagement_rate",
		"Client":            "client_name",
		"Fiscal Year":       "year",
		"":                  "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeHeader(raw), raw)
	}
}

func TestParseAliasesAndCoercion(t *testing.T) {
	input := "\ufeffProduct,Quarter,Feature,Votes,Description\n" +
		"Data Hub,fy25q1,Bulk export,\"1,234\",CSV everywhere\n" +
		" , FY2025-Q1 ,Alerts,12,\n" +
		",,,,\n"
	table, err := Parse(strings.NewReader(input), mustLayout(t, metrics.DatasetTopFeatures))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "FY25 Q1", first.String("quarter"))
	assert.Equal(t, 1234, first.Int("votes"))
	assert.Equal(t, "CSV everywhere", first.String("feature_description"))

	second := table.Rows[1]
	assert.Equal(t, "", second.String("product"))
	assert.Equal(t, "FY25 Q1", second.String("quarter"))
}

func TestParseMissingHeaders(t *testing.T) {
	_, err := Parse(strings.NewReader("product,quarter\nData Hub,FY25 Q1\n"), mustLayout(t, metrics.DatasetTopFeatures))
	require.Error(t, err)
	assert.Equal(t, FileError, KindOf(err))
	assert.Contains(t, err.Error(), "feature_name")
	assert.Contains(t, err.Error(), "votes")
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""), mustLayout(t, metrics.DatasetForums))
	assert.Equal(t, FileError, KindOf(err))

	_, err = Parse(strings.NewReader("product,quarter,forum_name\n"), mustLayout(t, metrics.DatasetForums))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")
}

func TestParseCollectsRowErrors(t *testing.T) {
	input := "product,quarter,feature_name,votes\n" +
		"Data Hub,FY25 Q1,Export,-3\n" +
		"Data Hub,2025,Alerts,4\n" +
		"Data Hub,FY25 Q2,SSO,9\n"
	table, err := Parse(strings.NewReader(input), mustLayout(t, metrics.DatasetTopFeatures))
	require.Error(t, err)

	var errs *ImportErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs.Errors, 2)
	assert.Equal(t, 2, errs.Errors[0].Line)
	assert.Equal(t, "votes", errs.Errors[0].Column)
	assert.Equal(t, 3, errs.Errors[1].Line)
	assert.Equal(t, "quarter", errs.Errors[1].Column)
	assert.Equal(t, DataError, KindOf(err))

	require.NotNil(t, table)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "SSO", table.Rows[0].String("feature_name"))
}

func TestParseCapsRowErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString("product,quarter,forum_name\n")
	for i := 0; i < MaxRowErrors+10; i++ {
		fmt.Fprintf(&b, "Data Hub,bad,Forum %d\n", i)
	}
	_, err := Parse(strings.NewReader(b.String()), mustLayout(t, metrics.DatasetForums))
	var errs *ImportErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs.Errors, MaxRowErrors)
	assert.Equal(t, 10, errs.Dropped)
	assert.Contains(t, err.Error(), "60 invalid rows")
}

func TestParseRejectsOversizedIntegers(t *testing.T) {
	cases := []struct {
		name  string
		votes string
	}{
		{name: "beyond int64", votes: "99999999999999999999"},
		{name: "exponent", votes: "1e30"},
		{name: "just above the column bound", votes: "2147483648"},
	}
	layout := mustLayout(t, metrics.DatasetTopFeatures)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := "product,quarter,feature_name,votes\nData Hub,FY25 Q1,Export," + tc.votes + "\n"
			_, err := Parse(strings.NewReader(input), layout)
			var errs *ImportErrors
			require.True(t, errors.As(err, &errs))
			require.Len(t, errs.Errors, 1)
			assert.Equal(t, DataError, errs.Errors[0].Kind)
			assert.Equal(t, "votes", errs.Errors[0].Column)
			assert.Equal(t, 2, errs.Errors[0].Line)
		})
	}
}

func TestCheckTotalsFlagsOverflowingGroups(t *testing.T) {
	input := "product,quarter,feature_name,votes\n" +
		"Data Hub,FY25 Q1,Export,2000000000\n" +
		"Data Hub,FY25 Q1,Export,2000000000\n" +
		"Data Hub,FY25 Q1,Alerts,7\n"
	layout := mustLayout(t, metrics.DatasetTopFeatures)
	table, err := Parse(strings.NewReader(input), layout)
	require.NoError(t, err)

	grouped := GroupBy(layout, table.Rows, layout.GroupKeys...)
	err = CheckTotals(layout, grouped)
	var errs *ImportErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, "votes", errs.Errors[0].Column)
	assert.Equal(t, 2, errs.Errors[0].Line)

	assert.NoError(t, CheckTotals(layout, table.Rows))
}

func TestParseList(t *testing.T) {
	list, err := parseList("IDEA-1; IDEA-2|IDEA-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"IDEA-1", "IDEA-2", "IDEA-3"}, list)

	list, err = parseList(`["IDEA-1", 42, null]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"IDEA-1", "42"}, list)

	_, err = parseList(`[1,`)
	assert.Error(t, err)
}

func TestParseNumbers(t *testing.T) {
	v, err := parsePercent("85.5%")
	require.NoError(t, err)
	assert.Equal(t, 85.5, v)

	_, err = parsePercent("140")
	assert.Error(t, err)

	_, err = parseInteger("2.5")
	assert.Error(t, err)

	v, err = parseInteger("2,147,483,647")
	require.NoError(t, err)
	assert.Equal(t, float64(MaxInteger), v)

	_, err = parseInteger("2147483648")
	assert.Error(t, err)

	v, err = parseYear("", "FY24 Q3")
	require.NoError(t, err)
	assert.Equal(t, 2024.0, v)

	v, err = parseYear("FY25", "")
	require.NoError(t, err)
	assert.Equal(t, 2025.0, v)
}

func TestGroupBySumsAndUnions(t *testing.T) {
	input := "product,quarter,collaborative_ideas,total_ideas,idea_ids\n" +
		"Data Hub,FY25 Q1,2,10,IDEA-1;IDEA-2\n" +
		"Data Hub,FY25 Q2,1,4,IDEA-9\n" +
		"data hub,FY25 Q1,3,5,IDEA-2;IDEA-3\n"
	layout := mustLayout(t, metrics.DatasetCollaboration)
	table, err := Parse(strings.NewReader(input), layout)
	require.NoError(t, err)

	grouped := GroupBy(layout, table.Rows, layout.GroupKeys...)
	require.Len(t, grouped, 2)
	assert.Equal(t, "FY25 Q1", grouped[0].String("quarter"))
	assert.Equal(t, 5, grouped[0].Int("collaborative_ideas"))
	assert.Equal(t, 15, grouped[0].Int("total_ideas"))
	assert.Equal(t, []string{"IDEA-1", "IDEA-2", "IDEA-3"}, grouped[0].List("idea_ids"))
	assert.Equal(t, "FY25 Q2", grouped[1].String("quarter"))

	assert.Equal(t, []string{"IDEA-1", "IDEA-2"}, table.Rows[0].List("idea_ids"))
}

func TestTemplatesParseBack(t *testing.T) {
	for _, layout := range Layouts() {
		t.Run(string(layout.Dataset), func(t *testing.T) {
			data, err := Template(layout)
			require.NoError(t, err)
			table, err := Parse(bytes.NewReader(data), layout)
			require.NoError(t, err)
			assert.Len(t, table.Rows, 1)
			assert.Equal(t, layout.Headers(), table.Headers)
		})
	}
}

func TestWorkbookUpload(t *testing.T) {
	layout := mustLayout(t, metrics.DatasetEngagement)
	data, err := WorkbookTemplate(layout)
	require.NoError(t, err)

	table, err := ParseFile(bytes.NewReader(data), "engagement.xlsx", layout)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"IDEA-101", "IDEA-102"}, table.Rows[0].List("idea_ids"))
	assert.Equal(t, 55.0, table.Rows[0].Float("engagement_rate"))

	table, err = ParseFile(bytes.NewReader(data), "", layout)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = ParseFile(strings.NewReader("x"), "old.xls", layout)
	assert.Equal(t, FileError, KindOf(err))
}
