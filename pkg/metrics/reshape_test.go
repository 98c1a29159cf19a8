package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRows() Rows {
	return Rows{
		Responsiveness: []ResponsivenessTrend{
			{Product: "Data Hub", Quarter: "FY25 Q2", TotalIdeas: 40, MovedOutOfReview: 30},
			{Product: "Data Hub", Quarter: "FY25 Q1", TotalIdeas: 10, MovedOutOfReview: 5, Percentage: 55},
		},
		Commitments: []CommitmentTrend{
			{Product: "Data Hub", Year: 2025, Quarter: "FY25 Q1", Committed: 10, Delivered: 5},
			{Product: "Data Hub", Year: 2025, Quarter: "FY25 Q2", Committed: 10, Delivered: 10},
			{Product: "Data Hub", Year: 2024, Quarter: "FY24 Q1", Committed: 8, Delivered: 8},
			{Product: "Data Hub", Year: 2023, Quarter: "FY23 Q1", Committed: 99, Delivered: 1},
		},
		Engagement: []ContinuedEngagement{
			{Product: "Data Hub", Quarter: "FY25 Q2", TotalIdeas: 0, WithSubsequentAction: 0},
		},
		Clients: []ClientSubmission{
			{Product: "Data Hub", Quarter: "FY25 Q2", ClientName: "Acme", Submissions: 2},
			{Product: "Data Hub", Quarter: "FY25 Q2", ClientName: "Globex", Submissions: 5},
			{Product: "Data Hub", Quarter: "FY25 Q2", ClientName: "Acme", Submissions: 4},
			{Product: "Data Hub", Quarter: "FY25 Q1", ClientName: "Initech", Submissions: 9},
		},
		Collaboration: []CrossClientCollaboration{
			{Product: "Data Hub", Quarter: "FY25 Q2", CollaborativeIdeas: 3, TotalIdeas: 12},
		},
		Features: []Feature{
			{Product: "Data Hub", Quarter: "FY25 Q2", Name: "Export", Votes: 10},
			{Product: "Data Hub", Quarter: "FY25 Q2", Name: "Alerts", Votes: 10},
			{Product: "Data Hub", Quarter: "FY25 Q2", Name: "SSO", Votes: 30},
			{Product: "Data Hub", Quarter: "FY25 Q1", Name: "Legacy", Votes: 99},
		},
		Forums: []ForumEntry{
			{Product: "Data Hub", Quarter: "FY25 Q2", ForumName: "User Group"},
			{Product: "Data Hub", Quarter: "fy25 q2", ForumName: "user group"},
			{Product: "Data Hub", Quarter: "FY25 Q2", ForumName: "Roadmap Review"},
		},
	}
}

func TestBuildSummary(t *testing.T) {
	summary := BuildSummary(Scope{Product: "Data Hub", Quarter: "FY25 Q2"}, sampleRows())
	assert.Equal(t, 75.0, summary.Responsiveness)
	assert.Equal(t, 75.0, summary.CommitmentDelivery)
	assert.Equal(t, 0.0, summary.EngagementRate)
	assert.Equal(t, 3, summary.Collaboration)
	assert.Equal(t, 2, summary.Clients)
	assert.Equal(t, 11, summary.Submissions)
	assert.Equal(t, 2, summary.Forums)
	assert.Equal(t, "SSO", summary.TopFeature)
	assert.Equal(t, 30, summary.TopFeatureVotes)
}

func TestResponsivenessSeriesOrdersQuarters(t *testing.T) {
	series := ResponsivenessSeries(sampleRows().Responsiveness)
	assert.Equal(t, []Point{{Label: "FY25 Q1", Value: 55}, {Label: "FY25 Q2", Value: 75}}, series.Points)
}

func TestCommitmentComparisonYearOverYear(t *testing.T) {
	years := CommitmentComparison(sampleRows().Commitments, "FY25 Q2")
	if assert.Len(t, years, 2) {
		assert.Equal(t, 2024, years[0].Year)
		assert.Equal(t, [4]int{8, 0, 0, 0}, years[0].Committed)
		assert.Equal(t, 2025, years[1].Year)
		assert.Equal(t, [4]int{10, 10, 0, 0}, years[1].Committed)
		assert.Equal(t, 75.0, years[1].DeliveryRate())
	}
	assert.Nil(t, CommitmentComparison(nil, "bad"))
}

func TestClientShareGroupsAndSorts(t *testing.T) {
	share := ClientShare(sampleRows().Clients, "FY25 Q2")
	assert.Equal(t, []Point{{Label: "Acme", Value: 6}, {Label: "Globex", Value: 5}}, share.Points)
}

func TestTopFeaturesTieBreaksByName(t *testing.T) {
	top := TopFeatures(sampleRows().Features, "FY25 Q2", 2)
	if assert.Len(t, top, 2) {
		assert.Equal(t, "SSO", top[0].Name)
		assert.Equal(t, "Alerts", top[1].Name)
	}
	assert.Len(t, TopFeatures(sampleRows().Features, "FY25 Q2", 0), 3)
}

func TestPercentNeverNaN(t *testing.T) {
	assert.Equal(t, 0.0, percent(5, 0))
	assert.Equal(t, 100.0, percent(20, 10))
	assert.Equal(t, 100.0, ResponsivenessPercentage(ResponsivenessTrend{Percentage: 140}))
}

func TestForumNamesDedupes(t *testing.T) {
	assert.Equal(t, []string{"User Group", "Roadmap Review"}, ForumNames(sampleRows().Forums, "FY25 Q2"))
}
