package metrics

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Dataset identifies one uploadable table.
type Dataset string

const (
	DatasetResponsiveness    Dataset = "responsiveness"
	DatasetCommitment        Dataset = "commitment_trends"
	DatasetEngagement        Dataset = "engagement"
	DatasetClientSubmissions Dataset = "client_submissions"
	DatasetCollaboration     Dataset = "collaboration"
	DatasetTopFeatures       Dataset = "top_features"
	DatasetForums            Dataset = "forums"
)

var datasetTables = map[Dataset]string{
	DatasetResponsiveness:    "responsiveness_trends",
	DatasetCommitment:        "commitment_trends",
	DatasetEngagement:        "continued_engagement",
	DatasetClientSubmissions: "client_submissions",
	DatasetCollaboration:     "cross_client_collaboration",
	DatasetTopFeatures:       "features",
	DatasetForums:            "data_socialization_forums",
}

// Datasets returns every uploadable dataset in display order.
func Datasets() []Dataset {
	return []Dataset{
		DatasetResponsiveness,
		DatasetCommitment,
		DatasetEngagement,
		DatasetClientSubmissions,
		DatasetCollaboration,
		DatasetTopFeatures,
		DatasetForums,
	}
}

// Table returns the backing table name, or "" for unknown datasets.
func (d Dataset) Table() string {
	return datasetTables[d]
}

// Valid reports whether d is a known dataset.
func (d Dataset) Valid() bool {
	_, ok := datasetTables[d]
	return ok
}

// StringList is a string slice persisted as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("metrics: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("metrics: decode string list: %w", err)
	}
	*l = out
	return nil
}

// Feature is a voted idea ranked in the top features chart.
type Feature struct {
	Product     string `db:"product" json:"product"`
	Quarter     string `db:"quarter" json:"quarter"`
	Name        string `db:"feature_name" json:"feature_name"`
	Description string `db:"feature_description" json:"feature_description"`
	Votes       int    `db:"votes" json:"votes"`
	Status      string `db:"status" json:"status"`
}

// ResponsivenessTrend counts ideas moved out of review within a quarter.
type ResponsivenessTrend struct {
	Product          string  `db:"product" json:"product"`
	Quarter          string  `db:"quarter" json:"quarter"`
	TotalIdeas       int     `db:"total_ideas" json:"total_ideas"`
	MovedOutOfReview int     `db:"ideas_moved_out_of_review" json:"ideas_moved_out_of_review"`
	NoAction         int     `db:"ideas_no_action" json:"ideas_no_action"`
	Percentage       float64 `db:"percentage" json:"percentage"`
}

// CommitmentTrend compares committed and delivered ideas for a quarter of a fiscal year.
type CommitmentTrend struct {
	Product   string `db:"product" json:"product"`
	Year      int    `db:"year" json:"year"`
	Quarter   string `db:"quarter" json:"quarter"`
	Committed int    `db:"committed" json:"committed"`
	Delivered int    `db:"delivered" json:"delivered"`
}

// ContinuedEngagement tracks ideas that saw follow-up activity.
type ContinuedEngagement struct {
	Product              string     `db:"product" json:"product"`
	Quarter              string     `db:"quarter" json:"quarter"`
	TotalIdeas           int        `db:"total_ideas" json:"total_ideas"`
	WithSubsequentAction int        `db:"ideas_with_subsequent_action" json:"ideas_with_subsequent_action"`
	Rate                 float64    `db:"engagement_rate" json:"engagement_rate"`
	IdeaIDs              StringList `db:"idea_ids" json:"idea_ids"`
}

// ClientSubmission counts ideas submitted by one client.
type ClientSubmission struct {
	Product     string `db:"product" json:"product"`
	Quarter     string `db:"quarter" json:"quarter"`
	ClientName  string `db:"client_name" json:"client_name"`
	Submissions int    `db:"submissions" json:"submissions"`
}

// CrossClientCollaboration counts ideas voted on by more than one client.
type CrossClientCollaboration struct {
	Product            string     `db:"product" json:"product"`
	Quarter            string     `db:"quarter" json:"quarter"`
	CollaborativeIdeas int        `db:"collaborative_ideas" json:"collaborative_ideas"`
	TotalIdeas         int        `db:"total_ideas" json:"total_ideas"`
	IdeaIDs            StringList `db:"idea_ids" json:"idea_ids"`
}

// ForumEntry names a data socialization forum held in a quarter.
type ForumEntry struct {
	Product   string `db:"product" json:"product"`
	Quarter   string `db:"quarter" json:"quarter"`
	ForumName string `db:"forum_name" json:"forum_name"`
}

// Action item statuses.
const (
	ActionOpen       = "open"
	ActionInProgress = "in_progress"
	ActionDone       = "done"
)

// ActionItem is a follow-up tracked against a product quarter.
type ActionItem struct {
	ID        string     `db:"id" json:"id"`
	Product   string     `db:"product" json:"product"`
	Quarter   string     `db:"quarter" json:"quarter"`
	Title     string     `db:"title" json:"title"`
	Owner     string     `db:"owner" json:"owner"`
	Status    string     `db:"status" json:"status"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// WidgetSettings holds per-user widget visibility and ordering.
type WidgetSettings struct {
	Hidden []string            `json:"hidden"`
	Order  map[string][]string `json:"order"`
}

// Value implements driver.Valuer.
func (w WidgetSettings) Value() (driver.Value, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (w *WidgetSettings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = WidgetSettings{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("metrics: cannot scan %T into WidgetSettings", src)
	}
	if len(raw) == 0 {
		*w = WidgetSettings{}
		return nil
	}
	return json.Unmarshal(raw, w)
}

// DashboardState is the persisted per-user dashboard selection.
type DashboardState struct {
	UserID    string         `db:"user_id" json:"user_id"`
	Product   string         `db:"product" json:"product"`
	Quarter   string         `db:"quarter" json:"quarter"`
	Settings  WidgetSettings `db:"widget_settings" json:"widget_settings"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Scope is the product/quarter currently rendered.
type Scope struct {
	Product string `json:"product"`
	Quarter string `json:"quarter"`
}

// Batch carries the parsed rows of one upload for a single product.
type Batch struct {
	Dataset        Dataset
	Product        string
	Features       []Feature
	Responsiveness []ResponsivenessTrend
	Commitments    []CommitmentTrend
	Engagement     []ContinuedEngagement
	Clients        []ClientSubmission
	Collaboration  []CrossClientCollaboration
	Forums         []ForumEntry
}

// Len returns the number of rows for the batch dataset.
func (b Batch) Len() int {
	switch b.Dataset {
	case DatasetTopFeatures:
		return len(b.Features)
	case DatasetResponsiveness:
		return len(b.Responsiveness)
	case DatasetCommitment:
		return len(b.Commitments)
	case DatasetEngagement:
		return len(b.Engagement)
	case DatasetClientSubmissions:
		return len(b.Clients)
	case DatasetCollaboration:
		return len(b.Collaboration)
	case DatasetForums:
		return len(b.Forums)
	default:
		return 0
	}
}
