package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

type tableSpec struct {
	name    string
	columns []string
	order   string
}

var specs = map[metrics.Dataset]tableSpec{
	metrics.DatasetTopFeatures: {
		name:    "features",
		columns: []string{"product", "quarter", "feature_name", "feature_description", "votes", "status"},
		order:   "quarter, votes DESC, feature_name",
	},
	metrics.DatasetResponsiveness: {
		name:    "responsiveness_trends",
		columns: []string{"product", "quarter", "total_ideas", "ideas_moved_out_of_review", "ideas_no_action", "percentage"},
		order:   "quarter",
	},
	metrics.DatasetCommitment: {
		name:    "commitment_trends",
		columns: []string{"product", "year", "quarter", "committed", "delivered"},
		order:   "year, quarter",
	},
	metrics.DatasetEngagement: {
		name:    "continued_engagement",
		columns: []string{"product", "quarter", "total_ideas", "ideas_with_subsequent_action", "engagement_rate", "idea_ids"},
		order:   "quarter",
	},
	metrics.DatasetClientSubmissions: {
		name:    "client_submissions",
		columns: []string{"product", "quarter", "client_name", "submissions"},
		order:   "quarter, submissions DESC, client_name",
	},
	metrics.DatasetCollaboration: {
		name:    "cross_client_collaboration",
		columns: []string{"product", "quarter", "collaborative_ideas", "total_ideas", "idea_ids"},
		order:   "quarter",
	},
	metrics.DatasetForums: {
		name:    "data_socialization_forums",
		columns: []string{"product", "quarter", "forum_name"},
		order:   "quarter, forum_name",
	},
}

func (t tableSpec) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE product = ? ORDER BY %s",
		strings.Join(t.columns, ", "), t.name, t.order)
}

func (t tableSpec) insertSQL() string {
	named := make([]string, len(t.columns))
	for i, c := range t.columns {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columns, ", "), strings.Join(named, ", "))
}

func listByProduct[T any](ctx context.Context, db *sqlx.DB, dataset metrics.Dataset, product string) ([]T, error) {
	spec := specs[dataset]
	var rows []T
	if err := db.SelectContext(ctx, &rows, db.Rebind(spec.selectSQL()), product); err != nil {
		return nil, fmt.Errorf("sqlstore: list %s: %w", spec.name, err)
	}
	return rows, nil
}

func (s *Store) Features(ctx context.Context, product string) ([]metrics.Feature, error) {
	return listByProduct[metrics.Feature](ctx, s.db, metrics.DatasetTopFeatures, product)
}

func (s *Store) Responsiveness(ctx context.Context, product string) ([]metrics.ResponsivenessTrend, error) {
	return listByProduct[metrics.ResponsivenessTrend](ctx, s.db, metrics.DatasetResponsiveness, product)
}

func (s *Store) Commitments(ctx context.Context, product string) ([]metrics.CommitmentTrend, error) {
	return listByProduct[metrics.CommitmentTrend](ctx, s.db, metrics.DatasetCommitment, product)
}

func (s *Store) Engagement(ctx context.Context, product string) ([]metrics.ContinuedEngagement, error) {
	return listByProduct[metrics.ContinuedEngagement](ctx, s.db, metrics.DatasetEngagement, product)
}

func (s *Store) ClientSubmissions(ctx context.Context, product string) ([]metrics.ClientSubmission, error) {
	return listByProduct[metrics.ClientSubmission](ctx, s.db, metrics.DatasetClientSubmissions, product)
}

func (s *Store) Collaboration(ctx context.Context, product string) ([]metrics.CrossClientCollaboration, error) {
	return listByProduct[metrics.CrossClientCollaboration](ctx, s.db, metrics.DatasetCollaboration, product)
}

func (s *Store) Forums(ctx context.Context, product string) ([]metrics.ForumEntry, error) {
	return listByProduct[metrics.ForumEntry](ctx, s.db, metrics.DatasetForums, product)
}

// ReplaceBatch deletes the product's rows and inserts the batch in one transaction.
func (s *Store) ReplaceBatch(ctx context.Context, batch metrics.Batch) error {
	spec, ok := specs[batch.Dataset]
	if !ok {
		return fmt.Errorf("sqlstore: unsupported dataset %q", batch.Dataset)
	}
	rows := batchRows(batch)
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		del := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE product = ?", spec.name))
		if _, err := tx.ExecContext(ctx, del, batch.Product); err != nil {
			return fmt.Errorf("sqlstore: clear %s: %w", spec.name, err)
		}
		if len(rows) == 0 {
			return nil
		}
		stmt, err := tx.PrepareNamedContext(ctx, spec.insertSQL())
		if err != nil {
			return fmt.Errorf("sqlstore: prepare %s insert: %w", spec.name, err)
		}
		defer stmt.Close()
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("sqlstore: insert %s row %d: %w", spec.name, i+1, err)
			}
		}
		return nil
	})
}

func batchRows(b metrics.Batch) []any {
	var out []any
	switch b.Dataset {
	case metrics.DatasetTopFeatures:
		out = appendAll(out, b.Features)
	case metrics.DatasetResponsiveness:
		out = appendAll(out, b.Responsiveness)
	case metrics.DatasetCommitment:
		out = appendAll(out, b.Commitments)
	case metrics.DatasetEngagement:
		out = appendAll(out, b.Engagement)
	case metrics.DatasetClientSubmissions:
		out = appendAll(out, b.Clients)
	case metrics.DatasetCollaboration:
		out = appendAll(out, b.Collaboration)
	case metrics.DatasetForums:
		out = appendAll(out, b.Forums)
	}
	return out
}

func appendAll[T any](out []any, rows []T) []any {
	for _, r := range rows {
		out = append(out, r)
	}
	return out
}

const actionItemColumns = "id, product, quarter, title, owner, status, due_date, created_at, updated_at"

func (s *Store) ActionItems(ctx context.Context, product, quarter string) ([]metrics.ActionItem, error) {
	query := "SELECT " + actionItemColumns + " FROM action_items WHERE product = ?"
	args := []any{product}
	if quarter != "" {
		query += " AND quarter = ?"
		args = append(args, quarter)
	}
	query += " ORDER BY created_at, id"
	var items []metrics.ActionItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: list action items: %w", err)
	}
	return items, nil
}

func (s *Store) ActionItem(ctx context.Context, id string) (metrics.ActionItem, error) {
	var item metrics.ActionItem
	err := s.db.GetContext(ctx, &item, s.db.Rebind("SELECT "+actionItemColumns+" FROM action_items WHERE id = ?"), id)
	if notFound(err) {
		return metrics.ActionItem{}, fmt.Errorf("%w: action item %s", metrics.ErrNotFound, id)
	}
	if err != nil {
		return metrics.ActionItem{}, fmt.Errorf("sqlstore: get action item: %w", err)
	}
	return item, nil
}

func (s *Store) SaveActionItem(ctx context.Context, item metrics.ActionItem) error {
	const q = `INSERT INTO action_items (id, product, quarter, title, owner, status, due_date, created_at, updated_at)
VALUES (:id, :product, :quarter, :title, :owner, :status, :due_date, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	product = excluded.product,
	quarter = excluded.quarter,
	title = excluded.title,
	owner = excluded.owner,
	status = excluded.status,
	due_date = excluded.due_date,
	updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, q, item); err != nil {
		return fmt.Errorf("sqlstore: save action item: %w", err)
	}
	return nil
}

func (s *Store) DeleteActionItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM action_items WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete action item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: action item %s", metrics.ErrNotFound, id)
	}
	return nil
}

func (s *Store) DashboardState(ctx context.Context, userID string) (metrics.DashboardState, error) {
	var state metrics.DashboardState
	err := s.db.GetContext(ctx, &state,
		s.db.Rebind("SELECT user_id, product, quarter, widget_settings, updated_at FROM dashboards WHERE user_id = ?"), userID)
	if notFound(err) {
		return metrics.DashboardState{}, metrics.ErrNotFound
	}
	if err != nil {
		return metrics.DashboardState{}, fmt.Errorf("sqlstore: get dashboard: %w", err)
	}
	return state, nil
}

func (s *Store) SaveDashboardState(ctx context.Context, state metrics.DashboardState) error {
	const q = `INSERT INTO dashboards (user_id, product, quarter, widget_settings, updated_at)
VALUES (:user_id, :product, :quarter, :widget_settings, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET
	product = excluded.product,
	quarter = excluded.quarter,
	widget_settings = excluded.widget_settings,
	updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, q, state); err != nil {
		return fmt.Errorf("sqlstore: save dashboard: %w", err)
	}
	return nil
}

var _ metrics.Repository = (*Store)(nil)
