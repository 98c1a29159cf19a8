package csvimport

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// MaxInteger bounds integer cells and their grouped totals. The columns are
// stored as 32-bit integers.
const MaxInteger = math.MaxInt32

func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%q must not be negative", raw)
	}
	return v, nil
}

func parseInteger(raw string) (float64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%q must be a whole number", raw)
	}
	if v > MaxInteger {
		return 0, fmt.Errorf("%q is larger than %d", raw, MaxInteger)
	}
	return v, nil
}

func parsePercent(raw string) (float64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	if v > 100 {
		return 0, fmt.Errorf("%q is above 100%%", raw)
	}
	return v, nil
}

func parseYear(raw, quarter string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToUpper(s), "FY")
	if s == "" {
		if q, err := metrics.ParseQuarter(quarter); err == nil {
			return float64(q.FiscalYear()), nil
		}
		return 0, fmt.Errorf("year is empty")
	}
	v, err := parseInteger(s)
	if err != nil {
		return 0, err
	}
	switch {
	case v < 100:
		v += 2000
	case v < 1900 || v > 2999:
		return 0, fmt.Errorf("%q is not a valid year", raw)
	}
	return v, nil
}

// parseList splits idea ids written as a JSON array or separated by ; | or ,.
func parseList(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, fmt.Errorf("%q is not a valid list", raw)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			var v string
			switch t := item.(type) {
			case string:
				v = strings.TrimSpace(t)
			case float64:
				v = strconv.FormatFloat(t, 'f', -1, 64)
			case nil:
				continue
			default:
				return nil, fmt.Errorf("%q contains a nested value", raw)
			}
			if v != "" {
				out = append(out, v)
			}
		}
		return out, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
