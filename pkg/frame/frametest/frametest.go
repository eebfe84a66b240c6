// Package frametest builds small loan tables for tests.
package frametest

import (
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"testing"
	"time"
)

// Column is a named column waiting to be built.
type Column struct {
	Name  string
	build func(mem memory.Allocator) (arrow.Array, error)
}

// Strings is a string column. A nil value is null.
func Strings(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case string:
				b.Append(v)
			default:
				return nil, fmt.Errorf("column %q: got %T, want string", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Float64s is a float64 column. A nil value is null.
func Float64s(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case float64:
				b.Append(v)
			case int:
				b.Append(float64(v))
			default:
				return nil, fmt.Errorf("column %q: got %T, want float64", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Float32s is a float32 column. A nil value is null.
func Float32s(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case float32:
				b.Append(v)
			case float64:
				b.Append(float32(v))
			case int:
				b.Append(float32(v))
			default:
				return nil, fmt.Errorf("column %q: got %T, want float32", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Int64s is an int64 column. A nil value is null.
func Int64s(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case int64:
				b.Append(v)
			case int:
				b.Append(int64(v))
			default:
				return nil, fmt.Errorf("column %q: got %T, want int64", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Dates is a date32 column of time.Time values. A nil value is null.
func Dates(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewDate32Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case time.Time:
				b.Append(arrow.Date32FromTime(v))
			default:
				return nil, fmt.Errorf("column %q: got %T, want time.Time", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Bools is a boolean column. A nil value is null.
func Bools(name string, values ...any) Column {
	return Column{Name: name, build: func(mem memory.Allocator) (arrow.Array, error) {
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			switch v := v.(type) {
			case nil:
				b.AppendNull()
			case bool:
				b.Append(v)
			default:
				return nil, fmt.Errorf("column %q: got %T, want bool", name, v)
			}
		}
		return b.NewArray(), nil
	}}
}

// Build assembles columns into a Frame released when the test ends.
func Build(t testing.TB, columns ...Column) *frame.Frame {
	t.Helper()

	mem := memory.DefaultAllocator
	fields := make([]arrow.Field, len(columns))
	arrays := make([]arrow.Array, len(columns))
	for i, c := range columns {
		column, err := c.build(mem)
		if err != nil {
			for _, built := range arrays[:i] {
				built.Release()
			}
			t.Fatal(err)
		}
		fields[i] = arrow.Field{Name: c.Name, Nullable: true}
		arrays[i] = column
	}

	f, err := frame.FromColumns(mem, fields, arrays)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)
	return f
}

// Values reads a column back as Go values: nil for null, time.Time for dates,
// and the natural Go type otherwise.
func Values(t testing.TB, f *frame.Frame, name string) []any {
	t.Helper()

	column, err := f.Column(name)
	if err != nil {
		t.Fatal(err)
	}

	result := make([]any, column.Len())
	for i := range result {
		if column.IsNull(i) {
			continue
		}
		switch c := column.(type) {
		case *array.String:
			result[i] = c.Value(i)
		case *array.Float64:
			result[i] = c.Value(i)
		case *array.Float32:
			result[i] = c.Value(i)
		case *array.Int64:
			result[i] = c.Value(i)
		case *array.Int32:
			result[i] = c.Value(i)
		case *array.Uint8:
			result[i] = c.Value(i)
		case *array.Boolean:
			result[i] = c.Value(i)
		case *array.Date32:
			result[i] = c.Value(i).ToTime()
		default:
			t.Fatalf("column %q: unsupported type %s", name, column.DataType())
		}
	}
	return result
}

// Month is the first day of month in year, in UTC.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Loan is one raw loan row. Empty strings and nil pointers are null.
type Loan struct {
	ID              string
	Status          string
	ApplicationType string
	IntRate         string
	RevolUtil       string
	Term            string
	EmpLength       string
	Grade           string
	IssueDate       string
	EarliestCrLine  string
	LastPaymentDate string
	ZipCode         string
	AnnualInc       *float64
	TotalRecPrncp   float64
	TotalRecInt     float64
	TotalPymntInv   float64
}

// DefaultLoan is a completed 36-month individual loan issued in December 2015
// that survives every cleaning stage.
func DefaultLoan(id string) Loan {
	income := 55000.0
	return Loan{
		ID:              id,
		Status:          "Fully Paid",
		ApplicationType: "Individual",
		IntRate:         "13.56%",
		RevolUtil:       "45.2%",
		Term:            " 36 months",
		EmpLength:       "10+ years",
		Grade:           "C",
		IssueDate:       "Dec-15",
		EarliestCrLine:  "Aug-03",
		LastPaymentDate: "Jan-17",
		ZipCode:         "941xx",
		AnnualInc:       &income,
		TotalRecPrncp:   10000,
		TotalRecInt:     1520.43,
		TotalPymntInv:   11520.43,
	}
}

// Loans builds a raw loan table with one row per loan, in the column layout the
// loader produces.
func Loans(t testing.TB, loans ...Loan) *frame.Frame {
	t.Helper()

	str := func(get func(Loan) string) []any {
		values := make([]any, len(loans))
		for i, loan := range loans {
			if v := get(loan); v != "" {
				values[i] = v
			}
		}
		return values
	}
	num := func(get func(Loan) float64) []any {
		values := make([]any, len(loans))
		for i, loan := range loans {
			values[i] = get(loan)
		}
		return values
	}
	income := make([]any, len(loans))
	for i, loan := range loans {
		if loan.AnnualInc != nil {
			income[i] = *loan.AnnualInc
		}
	}

	return Build(t,
		Strings(tables.ID, str(func(l Loan) string { return l.ID })...),
		Strings(tables.Term, str(func(l Loan) string { return l.Term })...),
		Strings(tables.IntRate, str(func(l Loan) string { return l.IntRate })...),
		Strings("grade", str(func(l Loan) string { return l.Grade })...),
		Strings(tables.EmpLength, str(func(l Loan) string { return l.EmpLength })...),
		Float64s("annual_inc", income...),
		Strings(tables.IssueDate, str(func(l Loan) string { return l.IssueDate })...),
		Strings(tables.LoanStatus, str(func(l Loan) string { return l.Status })...),
		Strings(tables.ZipCode, str(func(l Loan) string { return l.ZipCode })...),
		Strings(tables.EarliestCrLine, str(func(l Loan) string { return l.EarliestCrLine })...),
		Strings(tables.RevolUtil, str(func(l Loan) string { return l.RevolUtil })...),
		Float64s(tables.TotalPymntInv, num(func(l Loan) float64 { return l.TotalPymntInv })...),
		Float64s(tables.TotalRecPrncp, num(func(l Loan) float64 { return l.TotalRecPrncp })...),
		Float64s(tables.TotalRecInt, num(func(l Loan) float64 { return l.TotalRecInt })...),
		Strings(tables.LastPaymentDate, str(func(l Loan) string { return l.LastPaymentDate })...),
		Strings(tables.ApplicationType, str(func(l Loan) string { return l.ApplicationType })...),
	)
}
