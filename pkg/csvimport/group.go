package csvimport

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupBy merges rows sharing the same key columns, keeping first-seen order.
// Integer and year columns are summed (key columns excepted), list columns are
// unioned, text and percent columns keep their first non-empty value.
func GroupBy(layout Layout, rows []Row, keys ...string) []Row {
	if len(keys) == 0 {
		return rows
	}
	isKey := map[string]bool{}
	for _, k := range keys {
		isKey[k] = true
	}
	var out []Row
	positions := map[string]int{}
	for _, row := range rows {
		key := groupKey(row, keys)
		pos, ok := positions[key]
		if !ok {
			positions[key] = len(out)
			out = append(out, cloneRow(row))
			continue
		}
		merged := out[pos]
		for _, col := range layout.Columns {
			if isKey[col.Name] {
				continue
			}
			switch col.Kind {
			case Integer:
				merged.Numbers[col.Name] += row.Numbers[col.Name]
			case Percent:
				if merged.Numbers[col.Name] == 0 {
					merged.Numbers[col.Name] = row.Numbers[col.Name]
				}
			case List:
				merged.Lists[col.Name] = union(merged.Lists[col.Name], row.Lists[col.Name])
			case Text:
				if merged.Text[col.Name] == "" {
					merged.Text[col.Name] = row.Text[col.Name]
				}
			}
		}
	}
	return out
}

// CheckTotals reports integer columns whose grouped sum no longer fits
// MaxInteger. Errors point at the first line of each group.
func CheckTotals(layout Layout, rows []Row) error {
	errs := &ImportErrors{}
	for _, row := range rows {
		for _, col := range layout.Columns {
			if col.Kind != Integer {
				continue
			}
			if total := row.Numbers[col.Name]; total > MaxInteger {
				errs.add(&ImportError{
					Kind:   DataError,
					Line:   row.Line,
					Column: col.Name,
					Msg:    fmt.Sprintf("grouped total %.0f is larger than %d", total, MaxInteger),
				})
			}
		}
	}
	if errs.empty() {
		return nil
	}
	return errs
}

func groupKey(row Row, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		if v, ok := row.Numbers[k]; ok {
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
			continue
		}
		parts[i] = strings.ToLower(row.Text[k])
	}
	return strings.Join(parts, "\x1f")
}

func cloneRow(row Row) Row {
	out := newRow(row.Line)
	for k, v := range row.Text {
		out.Text[k] = v
	}
	for k, v := range row.Numbers {
		out.Numbers[k] = v
	}
	for k, v := range row.Lists {
		out.Lists[k] = append([]string(nil), v...)
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		a = append(a, v)
	}
	return a
}
