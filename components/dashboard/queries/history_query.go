package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
)

const defaultHistoryLimit = 20

// UploadHistoryInput limits the number of entries returned.
type UploadHistoryInput struct {
	Limit int
}

type historySource interface {
	History(ctx context.Context, limit int) ([]csvimport.Upload, error)
}

// UploadHistoryQuery lists recent uploads, newest first.
type UploadHistoryQuery struct {
	source historySource
}

// NewUploadHistoryQuery builds the query.
func NewUploadHistoryQuery(source historySource) *UploadHistoryQuery {
	return &UploadHistoryQuery{source: source}
}

var _ gocommand.Querier[UploadHistoryInput, []csvimport.Upload] = (*UploadHistoryQuery)(nil)

// Query returns at most input.Limit entries.
func (q *UploadHistoryQuery) Query(ctx context.Context, input UploadHistoryInput) ([]csvimport.Upload, error) {
	if q.source == nil {
		return nil, errMissingService
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return q.source.History(ctx, limit)
}
