package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// Upload statuses recorded in the history.
const (
	UploadSucceeded = "succeeded"
	UploadFailed    = "failed"
)

// Upload is an upload history entry.
type Upload struct {
	ID          string    `db:"id" json:"id"`
	Dataset     string    `db:"dataset" json:"dataset"`
	Product     string    `db:"product" json:"product"`
	Filename    string    `db:"filename" json:"filename"`
	RowsRead    int       `db:"rows_read" json:"rows_read"`
	RowsWritten int       `db:"rows_written" json:"rows_written"`
	Status      string    `db:"status" json:"status"`
	Message     string    `db:"message" json:"message,omitempty"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HistoryStore persists upload history entries.
type HistoryStore interface {
	RecordUpload(ctx context.Context, upload Upload) error
	Uploads(ctx context.Context, limit int) ([]Upload, error)
}

// Request describes one upload.
type Request struct {
	Dataset    metrics.Dataset
	Product    string
	File       io.Reader
	Filename   string
	UploadedBy string
}

// Result summarizes a successful import.
type Result struct {
	UploadID    string          `json:"upload_id"`
	Dataset     metrics.Dataset `json:"dataset"`
	Product     string          `json:"product"`
	RowsRead    int             `json:"rows_read"`
	RowsWritten int             `json:"rows_written"`
	Quarters    []string        `json:"quarters"`
}

// Options configures an Importer.
type Options struct {
	Store   metrics.Writer
	History HistoryStore
	Catalog metrics.Catalog
	Now     func() time.Time
}

// Importer parses uploads and replaces the product rows of a dataset.
type Importer struct {
	store   metrics.Writer
	history HistoryStore
	catalog metrics.Catalog
	now     func() time.Time
}

var errMissingStore = errors.New("csvimport: store not configured")

// NewImporter builds an Importer.
func NewImporter(opts Options) (*Importer, error) {
	if opts.Store == nil {
		return nil, errMissingStore
	}
	catalog, err := opts.Catalog.Normalize()
	if err != nil {
		return nil, err
	}
	if opts.History == nil {
		opts.History = noopHistory{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{store: opts.Store, history: opts.History, catalog: catalog, now: opts.Now}, nil
}

// Import parses the upload and replaces the stored rows for its product. A failed
// import leaves previously stored rows untouched.
func (im *Importer) Import(ctx context.Context, req Request) (Result, error) {
	entry := Upload{
		ID:         uuid.NewString(),
		Dataset:    string(req.Dataset),
		Product:    req.Product,
		Filename:   req.Filename,
		UploadedBy: req.UploadedBy,
	}
	result, err := im.run(ctx, req)
	entry.Product = firstNonEmpty(result.Product, entry.Product)
	entry.RowsRead = result.RowsRead
	entry.RowsWritten = result.RowsWritten
	entry.CreatedAt = im.now().UTC()
	if err != nil {
		entry.Status = UploadFailed
		entry.Message = err.Error()
		if herr := im.history.RecordUpload(ctx, entry); herr != nil {
			return Result{}, errors.Join(err, fmt.Errorf("csvimport: record upload history: %w", herr))
		}
		return Result{}, err
	}
	entry.Status = UploadSucceeded
	result.UploadID = entry.ID
	if herr := im.history.RecordUpload(ctx, entry); herr != nil {
		return result, applicationError("record upload history", herr)
	}
	return result, nil
}

// History returns the most recent upload history entries.
func (im *Importer) History(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 20
	}
	return im.history.Uploads(ctx, limit)
}

func (im *Importer) run(ctx context.Context, req Request) (Result, error) {
	result := Result{Dataset: req.Dataset}
	layout, err := LayoutFor(req.Dataset)
	if err != nil {
		return result, err
	}
	if req.File == nil {
		return result, fileError("no file uploaded")
	}
	table, err := ParseFile(req.File, req.Filename, layout)
	if table != nil {
		result.RowsRead = len(table.Rows)
	}
	if err != nil {
		return result, err
	}

	product, err := im.assignProduct(req.Product, table.Rows)
	if err != nil {
		return result, err
	}
	result.Product = product

	rows := GroupBy(layout, table.Rows, layout.GroupKeys...)
	if err := CheckTotals(layout, rows); err != nil {
		return result, err
	}
	batch := ToBatch(layout, product, rows)
	if err := ctx.Err(); err != nil {
		return result, applicationError("import cancelled", err)
	}
	if err := im.store.ReplaceBatch(ctx, batch); err != nil {
		return result, applicationError("replace "+string(layout.Dataset)+" rows", err)
	}
	result.RowsWritten = batch.Len()
	result.Quarters = quarters(rows)
	return result, nil
}

// assignProduct resolves the upload product and checks every row belongs to it.
// Rows without a product inherit the upload product.
func (im *Importer) assignProduct(requested string, rows []Row) (string, error) {
	var product string
	if requested != "" {
		p, err := im.catalog.Product(requested)
		if err != nil {
			return "", &ImportError{Kind: DataError, Column: "product", Msg: err.Error(), Err: err}
		}
		product = p
	}
	errs := &ImportErrors{}
	for i := range rows {
		raw := rows[i].Text["product"]
		if raw == "" {
			continue
		}
		p, err := im.catalog.Product(raw)
		if err != nil {
			errs.add(&ImportError{Kind: DataError, Line: rows[i].Line, Column: "product", Msg: fmt.Sprintf("unknown product %q", raw), Err: err})
			continue
		}
		if product == "" {
			product = p
		}
		if p != product {
			errs.add(&ImportError{Kind: DataError, Line: rows[i].Line, Column: "product",
				Msg: fmt.Sprintf("row belongs to %q but the upload is for %q", p, product)})
		}
	}
	if !errs.empty() {
		return "", errs
	}
	if product == "" {
		return "", &ImportError{Kind: DataError, Column: "product", Msg: "product is required"}
	}
	for i := range rows {
		rows[i].Text["product"] = product
	}
	return product, nil
}

func quarters(rows []Row) []string {
	seen := map[string]metrics.Quarter{}
	for _, r := range rows {
		label := r.String("quarter")
		if q, err := metrics.ParseQuarter(label); err == nil {
			seen[label] = q
		}
	}
	list := make([]metrics.Quarter, 0, len(seen))
	for _, q := range seen {
		list = append(list, q)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })
	out := make([]string, len(list))
	for i, q := range list {
		out[i] = q.String()
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type noopHistory struct{}

func (noopHistory) RecordUpload(context.Context, Upload) error { return nil }

func (noopHistory) Uploads(context.Context, int) ([]Upload, error) { return nil, nil }

// MemoryHistory keeps upload history in memory, newest first.
type MemoryHistory struct {
	mu      sync.RWMutex
	uploads []Upload
}

// NewMemoryHistory returns an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) RecordUpload(_ context.Context, upload Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append([]Upload{upload}, m.uploads...)
	return nil
}

func (m *MemoryHistory) Uploads(_ context.Context, limit int) ([]Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.uploads) {
		limit = len(m.uploads)
	}
	return append([]Upload(nil), m.uploads[:limit]...), nil
}
