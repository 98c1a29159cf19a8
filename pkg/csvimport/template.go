package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateFilename returns the download name for a layout template.
func TemplateFilename(layout Layout, ext string) string {
	return fmt.Sprintf("%s_template.%s", layout.Dataset, ext)
}

// Template renders the header row plus one example row as CSV.
func Template(layout Layout) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	example := make([]string, len(layout.Columns))
	for i, c := range layout.Columns {
		example[i] = c.Example
	}
	if err := w.Write(layout.Headers()); err != nil {
		return nil, err
	}
	if err := w.Write(example); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// WorkbookTemplate renders the same template as an .xlsx workbook.
func WorkbookTemplate(layout Layout) ([]byte, error) {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	const sheet = "Sheet1"
	header := make([]any, len(layout.Columns))
	example := make([]any, len(layout.Columns))
	for i, c := range layout.Columns {
		header[i] = c.Name
		example[i] = c.Example
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("csvimport: write template header: %w", err)
	}
	if err := book.SetSheetRow(sheet, "A2", &example); err != nil {
		return nil, fmt.Errorf("csvimport: write template example: %w", err)
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("csvimport: encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
