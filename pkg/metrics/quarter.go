package metrics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidQuarter is returned when a label cannot be parsed as a fiscal quarter.
var ErrInvalidQuarter = errors.New("metrics: invalid quarter")

var quarterPattern = regexp.MustCompile(`^FY\s*[-_]?\s*(\d{2}|\d{4})\s*[-_/]?\s*Q\s*([1-4])$`)

// Quarter is a fiscal quarter such as FY25 Q1.
type Quarter struct {
	Year   int
	Number int
}

// ParseQuarter accepts FY25 Q1, fy25q1, FY2025-Q1 and similar spellings.
func ParseQuarter(label string) (Quarter, error) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	match := quarterPattern.FindStringSubmatch(normalized)
	if match == nil {
		return Quarter{}, fmt.Errorf("%w: %q", ErrInvalidQuarter, label)
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return Quarter{}, fmt.Errorf("%w: %q", ErrInvalidQuarter, label)
	}
	if year < 100 {
		year += 2000
	}
	num, _ := strconv.Atoi(match[2])
	return Quarter{Year: year, Number: num}, nil
}

// MustParseQuarter panics when label is not a valid quarter. Intended for literals.
func MustParseQuarter(label string) Quarter {
	q, err := ParseQuarter(label)
	if err != nil {
		panic(err)
	}
	return q
}

// NormalizeQuarter returns the canonical label for a quarter string.
func NormalizeQuarter(label string) (string, error) {
	q, err := ParseQuarter(label)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}

func (q Quarter) String() string {
	if q.IsZero() {
		return ""
	}
	return fmt.Sprintf("FY%02d Q%d", q.Year%100, q.Number)
}

// IsZero reports whether the quarter is unset.
func (q Quarter) IsZero() bool {
	return q.Year == 0 || q.Number == 0
}

// FiscalYear returns the four digit fiscal year.
func (q Quarter) FiscalYear() int {
	return q.Year
}

// Previous returns the quarter immediately before q.
func (q Quarter) Previous() Quarter {
	if q.Number <= 1 {
		return Quarter{Year: q.Year - 1, Number: 4}
	}
	return Quarter{Year: q.Year, Number: q.Number - 1}
}

// Before reports whether q sorts before other.
func (q Quarter) Before(other Quarter) bool {
	if q.Year != other.Year {
		return q.Year < other.Year
	}
	return q.Number < other.Number
}

// MarshalText encodes the canonical label.
func (q Quarter) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText parses any accepted label spelling.
func (q *Quarter) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*q = Quarter{}
		return nil
	}
	parsed, err := ParseQuarter(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// QuarterRange lists every quarter between from and to inclusive.
func QuarterRange(from, to Quarter) []Quarter {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil
	}
	var out []Quarter
	for q := from; !to.Before(q); q = q.next() {
		out = append(out, q)
	}
	return out
}

func (q Quarter) next() Quarter {
	if q.Number >= 4 {
		return Quarter{Year: q.Year + 1, Number: 1}
	}
	return Quarter{Year: q.Year, Number: q.Number + 1}
}
