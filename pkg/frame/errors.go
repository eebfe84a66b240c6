package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema is returned when a column is absent, already present, or of the
	// wrong type for an operation.
	ErrSchema = errors.New("schema mismatch")

	// ErrDuplicateKey is returned when the key column holds a value twice.
	ErrDuplicateKey = errors.New("duplicate key")
)

type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: column %q %s", ErrSchema, e.Column, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// NotFound reports a column the table does not have.
func NotFound(column string) *SchemaError {
	return &SchemaError{Column: column, Reason: "not found"}
}

// WrongType reports a column whose Arrow type differs from what an operation needs.
func WrongType(column, got, want string) *SchemaError {
	return &SchemaError{Column: column, Reason: fmt.Sprintf("has type %s, want %s", got, want)}
}

// NullKey reports a key column holding a null at row.
func NullKey(column string, row int) *SchemaError {
	return &SchemaError{Column: column, Reason: fmt.Sprintf("has a null key at row %d", row)}
}

type DuplicateKeyError struct {
	Column string
	Value  string
	// Rows are the first row holding Value and the row that repeated it.
	Rows [2]int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: column %q value %q at rows %d and %d",
		ErrDuplicateKey, e.Column, e.Value, e.Rows[0], e.Rows[1])
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}
