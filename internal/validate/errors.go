package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataset is wrapped by every validation failure so callers can
// distinguish data problems from I/O problems with errors.Is.
var ErrInvalidDataset = errors.New("invalid dataset")

// maxListedRows caps how many offending rows an error message lists
const maxListedRows = 10

// SchemaError reports required columns missing from the input
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrInvalidDataset }

// TypeCoercionError reports a cell that cannot be converted to its column type.
// Row indexes count data rows as loaded: the header and any blank lines
// skipped by ingest are not counted, so Row is also the record's position
// in the resulting dataset and its exports.
type TypeCoercionError struct {
	Row    int // 0-based data row index
	Column string
	Value  any
	Err    error
}

func (e *TypeCoercionError) Error() string {
	msg := fmt.Sprintf("row %d, column %q: cannot convert %q", e.Row, e.Column, fmt.Sprint(e.Value))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeCoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDataset}
	}
	return []error{ErrInvalidDataset, e.Err}
}

// ValidationError reports values that violate a domain invariant. Rows
// use the same indexing as TypeCoercionError.Row.
type ValidationError struct {
	Column string
	Rows   []int // 0-based data row indexes, ascending
	Reason string
}

func (e *ValidationError) Error() string {
	listed := e.Rows
	suffix := ""
	if len(listed) > maxListedRows {
		listed = listed[:maxListedRows]
		suffix = fmt.Sprintf(" (and %d more)", len(e.Rows)-maxListedRows)
	}
	parts := make([]string, len(listed))
	for i, r := range listed {
		parts[i] = fmt.Sprintf("%d", r)
	}
	return fmt.Sprintf("column %q %s at rows %s%s", e.Column, e.Reason, strings.Join(parts, ", "), suffix)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDataset }
