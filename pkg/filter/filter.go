// Package filter selects loan rows by predicate.
package filter

import (
	"context"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"strings"
	"time"
)

const (
	StatusChargedOff = "Charged Off"
	StatusFullyPaid  = "Fully Paid"

	ApplicationIndividual = "INDIVIDUAL"
)

// A Predicate reports, for every row of f, whether the row is kept.
type Predicate func(f *frame.Frame) ([]bool, error)

// Apply keeps the rows every predicate accepts. The input frame is not
// modified; the result is a new frame owned by the caller.
func Apply(ctx context.Context, f *frame.Frame, predicates ...Predicate) (*frame.Frame, error) {
	keep := make([]bool, f.NumRows())
	for i := range keep {
		keep[i] = true
	}

	for _, predicate := range predicates {
		rows, err := predicate(f)
		if err != nil {
			return nil, err
		}
		for i, ok := range rows {
			keep[i] = keep[i] && ok
		}
	}

	return Keep(ctx, f, keep)
}

// Keep selects the rows where keep is true.
func Keep(ctx context.Context, f *frame.Frame, keep []bool) (*frame.Frame, error) {
	if int64(len(keep)) != f.NumRows() {
		return nil, fmt.Errorf("got %d selections for %d rows", len(keep), f.NumRows())
	}

	builder := array.NewBooleanBuilder(f.Allocator())
	defer builder.Release()
	builder.AppendValues(keep, nil)

	mask := builder.NewBooleanArray()
	defer mask.Release()

	return f.Filter(ctx, mask)
}

// StatusIn keeps loans whose loan_status is one of statuses.
func StatusIn(statuses ...string) Predicate {
	allowed := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		allowed[status] = true
	}

	return func(f *frame.Frame) ([]bool, error) {
		column, err := frame.ColumnAs[*array.String](f, tables.LoanStatus)
		if err != nil {
			return nil, err
		}
		return eachString(column, func(status string) bool {
			return allowed[status]
		}), nil
	}
}

// CompletedStatus keeps loans that were either charged off or fully paid.
func CompletedStatus() Predicate {
	return StatusIn(StatusChargedOff, StatusFullyPaid)
}

// IndividualApplicant keeps loans issued to a single applicant, ignoring case.
func IndividualApplicant() Predicate {
	return func(f *frame.Frame) ([]bool, error) {
		column, err := frame.ColumnAs[*array.String](f, tables.ApplicationType)
		if err != nil {
			return nil, err
		}
		return eachString(column, func(applicationType string) bool {
			return strings.ToUpper(applicationType) == ApplicationIndividual
		}), nil
	}
}

// IssuedOnOrAfter keeps loans whose coerced issue_d is not before cutoff.
func IssuedOnOrAfter(cutoff time.Time) Predicate {
	limit := arrow.Date32FromTime(cutoff)

	return func(f *frame.Frame) ([]bool, error) {
		column, err := frame.ColumnAs[*array.Date32](f, tables.IssueDate)
		if err != nil {
			return nil, err
		}
		keep := make([]bool, column.Len())
		for i := range keep {
			keep[i] = column.IsValid(i) && column.Value(i) >= limit
		}
		return keep, nil
	}
}

// TermEquals keeps loans whose coerced term is months.
func TermEquals(months uint8) Predicate {
	return func(f *frame.Frame) ([]bool, error) {
		column, err := frame.ColumnAs[*array.Uint8](f, tables.Term)
		if err != nil {
			return nil, err
		}
		keep := make([]bool, column.Len())
		for i := range keep {
			keep[i] = column.IsValid(i) && column.Value(i) == months
		}
		return keep, nil
	}
}

// NotNull keeps rows where the named column has a value.
func NotNull(name string) Predicate {
	return func(f *frame.Frame) ([]bool, error) {
		column, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		keep := make([]bool, column.Len())
		for i := range keep {
			keep[i] = column.IsValid(i)
		}
		return keep, nil
	}
}

// eachString evaluates match on every non-null value; nulls are dropped.
func eachString(column *array.String, match func(string) bool) []bool {
	keep := make([]bool, column.Len())
	for i := range keep {
		keep[i] = column.IsValid(i) && match(column.Value(i))
	}
	return keep
}
