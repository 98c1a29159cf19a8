package sqlstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
)

func (s *Store) RecordUpload(ctx context.Context, upload csvimport.Upload) error {
	const q = `INSERT INTO upload_history (id, dataset, product, filename, rows_read, rows_written, status, message, uploaded_by, created_at)
VALUES (:id, :dataset, :product, :filename, :rows_read, :rows_written, :status, :message, :uploaded_by, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, upload); err != nil {
		return fmt.Errorf("sqlstore: record upload: %w", err)
	}
	return nil
}

func (s *Store) Uploads(ctx context.Context, limit int) ([]csvimport.Upload, error) {
	if limit <= 0 {
		limit = 20
	}
	var uploads []csvimport.Upload
	q := s.db.Rebind(`SELECT id, dataset, product, filename, rows_read, rows_written, status, message, uploaded_by, created_at
FROM upload_history ORDER BY created_at DESC, id LIMIT ?`)
	if err := s.db.SelectContext(ctx, &uploads, q, limit); err != nil {
		return nil, fmt.Errorf("sqlstore: list uploads: %w", err)
	}
	return uploads, nil
}

var _ csvimport.HistoryStore = (*Store)(nil)
