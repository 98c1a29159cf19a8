package commands

import (
	"context"
	"errors"
	"io"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// ImportDatasetInput describes one CSV or XLSX upload.
type ImportDatasetInput struct {
	Dataset    metrics.Dataset
	Product    string
	Filename   string
	File       io.Reader
	UploadedBy string
	Result     *csvimport.Result
}

type datasetImporter interface {
	Import(ctx context.Context, req csvimport.Request) (csvimport.Result, error)
}

// ImportDatasetCommand runs the import pipeline and tells refresh hooks which
// product changed.
type ImportDatasetCommand struct {
	importer  datasetImporter
	notifier  refreshNotifier
	telemetry Telemetry
}

// NewImportDatasetCommand creates the command. notifier may be nil.
func NewImportDatasetCommand(importer datasetImporter, notifier refreshNotifier, telemetry Telemetry) *ImportDatasetCommand {
	return &ImportDatasetCommand{
		importer:  importer,
		notifier:  notifier,
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[ImportDatasetInput] = (*ImportDatasetCommand)(nil)

// Execute imports the file. Refresh hooks only fire after the rows were
// replaced.
func (c *ImportDatasetCommand) Execute(ctx context.Context, msg ImportDatasetInput) error {
	if c.importer == nil {
		return errors.New("import command requires importer")
	}
	if msg.File == nil {
		return errors.New("import command requires a file")
	}
	result, err := c.importer.Import(ctx, csvimport.Request{
		Dataset:    msg.Dataset,
		Product:    msg.Product,
		File:       msg.File,
		Filename:   msg.Filename,
		UploadedBy: msg.UploadedBy,
	})
	if err != nil {
		c.telemetry.Record(ctx, EventUploadFailed, map[string]any{
			"dataset": string(msg.Dataset),
			"product": msg.Product,
			"kind":    string(csvimport.KindOf(err)),
		})
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	c.telemetry.Record(ctx, EventUpload, map[string]any{
		"dataset":      string(result.Dataset),
		"product":      result.Product,
		"rows_written": result.RowsWritten,
	})
	if c.notifier == nil {
		return nil
	}
	return c.notifier.NotifyWidgetUpdated(ctx, dashboard.WidgetEvent{
		Reason:  dashboard.ReasonUpload,
		Product: result.Product,
		Dataset: string(result.Dataset),
	})
}
