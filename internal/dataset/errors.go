package dataset

import (
	"errors"
	"fmt"
)

// Domain errors for dataset loading.
var (
	// ErrFetch indicates the raw text could not be retrieved.
	ErrFetch = errors.New("dataset: fetch failed")

	// ErrEmpty indicates the input has no header row.
	ErrEmpty = errors.New("dataset: empty input")

	// ErrNoIDField indicates the header lacks the identifier column.
	ErrNoIDField = errors.New("dataset: identifier column missing")

	// ErrDuplicateID indicates two rows share an identifier.
	ErrDuplicateID = errors.New("dataset: duplicate identifier")

	// ErrNotNumeric indicates a value field failed numeric coercion in strict mode.
	ErrNotNumeric = errors.New("dataset: value is not numeric")
)

// LoadError wraps a failure with the source it came from.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParseError reports the cell that failed strict coercion.
type ParseError struct {
	Row    int
	Column string
	Text   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %q: %q is not numeric", e.Row, e.Column, e.Text)
}

func (e *ParseError) Unwrap() error {
	return ErrNotNumeric
}
