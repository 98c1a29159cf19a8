package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// MaxUploadBytes bounds the size of an uploaded file.
const MaxUploadBytes = 10 << 20

var zipMagic = []byte("PK\x03\x04")

// Row is one coerced data row.
type Row struct {
	Line    int
	Text    map[string]string
	Numbers map[string]float64
	Lists   map[string][]string
}

func newRow(line int) Row {
	return Row{
		Line:    line,
		Text:    map[string]string{},
		Numbers: map[string]float64{},
		Lists:   map[string][]string{},
	}
}

// String returns a text column.
func (r Row) String(col string) string { return r.Text[col] }

// Int returns a numeric column as int.
func (r Row) Int(col string) int { return int(r.Numbers[col]) }

// Float returns a numeric column.
func (r Row) Float(col string) float64 { return r.Numbers[col] }

// List returns a list column.
func (r Row) List(col string) []string { return r.Lists[col] }

// Table is the parsed content of an upload.
type Table struct {
	Layout  Layout
	Headers []string
	Rows    []Row
}

// Parse reads a CSV upload. Row errors are collected into *ImportErrors and the
// valid rows are still returned in the table.
func Parse(r io.Reader, layout Layout) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ImportError{Kind: FileError, Msg: "file is not valid CSV: " + err.Error(), Err: err}
	}
	return parseRecords(records, layout)
}

// ParseWorkbook reads an .xlsx upload. An empty sheet name selects the first sheet.
func ParseWorkbook(r io.Reader, layout Layout, sheet string) (*Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ImportError{Kind: FileError, Msg: "file is not a valid workbook: " + err.Error(), Err: err}
	}
	defer func() { _ = book.Close() }()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fileError("workbook has no worksheet")
	}
	records, err := book.GetRows(sheet)
	if err != nil {
		return nil, &ImportError{Kind: FileError, Msg: "read worksheet " + sheet + ": " + err.Error(), Err: err}
	}
	return parseRecords(records, layout)
}

// ParseFile sniffs the upload format from the filename or content and parses it.
func ParseFile(r io.Reader, filename string, layout Layout) (*Table, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, &ImportError{Kind: FileError, Msg: "read upload: " + err.Error(), Err: err}
	}
	if len(data) > MaxUploadBytes {
		return nil, fileError("file exceeds %d MB", MaxUploadBytes>>20)
	}
	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".xls":
		return nil, fileError("legacy .xls workbooks are not supported, save as .xlsx or .csv")
	case ext == ".xlsx" || ext == ".xlsm" || bytes.HasPrefix(data, zipMagic):
		return ParseWorkbook(bytes.NewReader(data), layout, "")
	default:
		return Parse(bytes.NewReader(data), layout)
	}
}

func parseRecords(records [][]string, layout Layout) (*Table, error) {
	if len(records) == 0 {
		return nil, fileError("file is empty")
	}
	headers := make([]string, len(records[0]))
	index := map[string]int{}
	for i, raw := range records[0] {
		name := NormalizeHeader(raw)
		headers[i] = name
		if _, seen := index[name]; !seen && name != "" {
			index[name] = i
		}
	}
	var missing []string
	for _, name := range layout.Required() {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fileError("missing required headers: %s (expected %s)",
			strings.Join(missing, ", "), strings.Join(layout.Required(), ", "))
	}

	table := &Table{Layout: layout, Headers: headers}
	errs := &ImportErrors{}
	for i, record := range records[1:] {
		line := i + 2
		if blank(record) {
			continue
		}
		row, rowErrs := coerceRow(record, index, layout, line)
		if len(rowErrs) > 0 {
			for _, e := range rowErrs {
				errs.add(e)
			}
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if !errs.empty() {
		return table, errs
	}
	if len(table.Rows) == 0 {
		return nil, fileError("file has no data rows")
	}
	return table, nil
}

func coerceRow(record []string, index map[string]int, layout Layout, line int) (Row, []*ImportError) {
	row := newRow(line)
	var errs []*ImportError
	fail := func(col string, err error) {
		errs = append(errs, &ImportError{Kind: DataError, Line: line, Column: col, Msg: err.Error()})
	}

	quarter := cell(record, index, "quarter")
	if _, ok := layout.Column("quarter"); ok {
		normalized, err := metrics.NormalizeQuarter(quarter)
		if err != nil {
			fail("quarter", errors.New(quarterMessage(quarter)))
		} else {
			quarter = normalized
		}
	}

	for _, col := range layout.Columns {
		if _, present := index[col.Name]; !present {
			continue
		}
		raw := cell(record, index, col.Name)
		switch col.Kind {
		case QuarterLabel:
			row.Text[col.Name] = quarter
		case Text:
			if raw == "" && col.Required && col.Name != "product" {
				fail(col.Name, errors.New("value is required"))
				continue
			}
			row.Text[col.Name] = raw
		case Integer:
			v, err := parseInteger(raw)
			if err != nil {
				fail(col.Name, err)
				continue
			}
			row.Numbers[col.Name] = v
		case Percent:
			v, err := parsePercent(raw)
			if err != nil {
				fail(col.Name, err)
				continue
			}
			row.Numbers[col.Name] = v
		case Year:
			v, err := parseYear(raw, quarter)
			if err != nil {
				fail(col.Name, err)
				continue
			}
			row.Numbers[col.Name] = v
		case List:
			v, err := parseList(raw)
			if err != nil {
				fail(col.Name, err)
				continue
			}
			row.Lists[col.Name] = v
		}
	}
	return row, errs
}

func quarterMessage(raw string) string {
	if raw == "" {
		return "quarter is required"
	}
	return "\"" + raw + "\" is not a fiscal quarter like FY25 Q1"
}

func cell(record []string, index map[string]int, col string) string {
	idx, ok := index[col]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
