package coerce

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks a rate, term, or employment length value of unexpected shape.
	ErrParse = errors.New("parse error")

	// ErrDateParse marks a date value matching none of the accepted layouts.
	ErrDateParse = errors.New("date parse error")

	errMissing = errors.New("value is missing")
)

// ParseError reports a value that could not be coerced. Column and Row are set
// when the value came from a table column.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrParse.Error())
	if e.Column != "" {
		fmt.Fprintf(&sb, ": column %q row %d", e.Column, e.Row)
	}
	fmt.Fprintf(&sb, ": value %q", e.Value)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// DateParseError reports a date value along with every layout tried.
type DateParseError struct {
	Column  string
	Row     int
	Value   string
	Layouts []string
}

func (e *DateParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrDateParse.Error())
	if e.Column != "" {
		fmt.Fprintf(&sb, ": column %q row %d", e.Column, e.Row)
	}
	fmt.Fprintf(&sb, ": value %q", e.Value)
	if len(e.Layouts) > 0 {
		fmt.Fprintf(&sb, " matches none of %q", e.Layouts)
	} else {
		sb.WriteString(" starts with neither a digit nor a letter")
	}
	return sb.String()
}

func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}

// atRow attaches a column and row to a scalar coercion error.
func atRow(err error, column string, row int) error {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		parseErr.Column, parseErr.Row = column, row
		return parseErr
	}
	var dateErr *DateParseError
	if errors.As(err, &dateErr) {
		dateErr.Column, dateErr.Row = column, row
		return dateErr
	}
	return fmt.Errorf("column %q row %d: %w", column, row, err)
}
