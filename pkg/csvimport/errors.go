package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies import failures.
type Kind string

const (
	// FileError means the upload itself is unreadable or structurally wrong.
	FileError Kind = "file"
	// DataError means one or more cells failed validation.
	DataError Kind = "data"
	// ApplicationError means the upload was valid but could not be stored.
	ApplicationError Kind = "application"
)

// MaxRowErrors caps the number of row errors collected for one upload.
const MaxRowErrors = 50

// ImportError is a single classified failure. Line is the 1-based record number, header included.
type ImportError struct {
	Kind   Kind   `json:"kind"`
	Line   int    `json:"line,omitempty"`
	Column string `json:"column,omitempty"`
	Msg    string `json:"message"`
	Err    error  `json:"-"`
}

func (e *ImportError) Error() string {
	var b strings.Builder
	b.WriteString("csvimport: ")
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " on line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %s", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ImportErrors aggregates the row errors of one upload.
type ImportErrors struct {
	Errors  []*ImportError `json:"errors"`
	Dropped int            `json:"dropped,omitempty"`
}

func (e *ImportErrors) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "csvimport: no errors"
	}
	total := len(e.Errors) + e.Dropped
	parts := make([]string, 0, 3)
	for i, err := range e.Errors {
		if i == 3 {
			break
		}
		parts = append(parts, strings.TrimPrefix(err.Error(), "csvimport: "))
	}
	msg := fmt.Sprintf("csvimport: %d invalid rows: %s", total, strings.Join(parts, "; "))
	if total > len(parts) {
		msg += fmt.Sprintf(" (and %d more)", total-len(parts))
	}
	return msg
}

// Unwrap exposes the individual row errors to errors.As.
func (e *ImportErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

func (e *ImportErrors) add(err *ImportError) {
	if len(e.Errors) >= MaxRowErrors {
		e.Dropped++
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *ImportErrors) empty() bool {
	return len(e.Errors) == 0 && e.Dropped == 0
}

// KindOf returns the import error kind of err, defaulting to ApplicationError.
func KindOf(err error) Kind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ApplicationError
}

func fileError(format string, args ...any) *ImportError {
	return &ImportError{Kind: FileError, Msg: fmt.Sprintf(format, args...)}
}

func applicationError(msg string, err error) *ImportError {
	return &ImportError{Kind: ApplicationError, Msg: fmt.Sprintf("%s: %v", msg, err), Err: err}
}
