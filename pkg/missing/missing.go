// Package missing records where loan values were absent and then fills them
// with a sentinel so tree models can consume every column.
//
// Flag must run before Impute: once imputed, a sentinel is indistinguishable
// from a real value. Apply runs both in that order.
package missing

import (
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"strconv"
)

// DefaultSentinel replaces missing values unless configured otherwise.
const DefaultSentinel = -99

// Columns returns the names of the columns holding at least one null, in
// table order.
func Columns(f *frame.Frame) []string {
	var names []string
	for i, field := range f.Schema().Fields() {
		if f.Record().Column(i).NullN() > 0 {
			names = append(names, field.Name)
		}
	}
	return names
}

// Flag appends a boolean "<col>_missing" column for every column with nulls,
// true exactly where the value is null. It returns the flagged column names.
func Flag(f *frame.Frame) ([]string, error) {
	names := Columns(f)

	for _, name := range names {
		column, err := f.Column(name)
		if err != nil {
			return nil, err
		}

		builder := array.NewBooleanBuilder(f.Allocator())
		builder.Reserve(column.Len())
		for i := 0; i < column.Len(); i++ {
			builder.Append(column.IsNull(i))
		}
		flags := builder.NewArray()
		builder.Release()

		field := arrow.Field{
			Name:     tables.MissingName(name),
			Type:     arrow.FixedWidthTypes.Boolean,
			Metadata: tables.CommentMetadata(fmt.Sprintf("Whether %s was missing before imputation", name)),
		}
		err = f.Append(field, flags)
		if err != nil {
			return nil, fmt.Errorf("flagging %q: %w", name, err)
		}
	}

	return names, nil
}

// Impute replaces every null in every column with sentinel, converted to the
// column's type. Strings get the sentinel's decimal text, dates the day that
// many days from the epoch, and booleans false.
func Impute(f *frame.Frame, sentinel float64) error {
	for _, name := range Columns(f) {
		column, err := f.Column(name)
		if err != nil {
			return err
		}
		filled, err := fillColumn(f.Allocator(), name, column, sentinel)
		if err != nil {
			return err
		}
		err = f.Replace(name, filled)
		if err != nil {
			return fmt.Errorf("imputing %q: %w", name, err)
		}
	}
	return nil
}

// Apply flags, then imputes. It returns the flagged column names.
func Apply(f *frame.Frame, sentinel float64) ([]string, error) {
	flagged, err := Flag(f)
	if err != nil {
		return nil, err
	}
	return flagged, Impute(f, sentinel)
}

func fillColumn(mem memory.Allocator, name string, column arrow.Array, sentinel float64) (arrow.Array, error) {
	switch c := column.(type) {
	case *array.Float32:
		return fill(c, array.NewFloat32Builder(mem), float32(sentinel)), nil
	case *array.Float64:
		return fill(c, array.NewFloat64Builder(mem), sentinel), nil
	case *array.Int64:
		return fill(c, array.NewInt64Builder(mem), int64(sentinel)), nil
	case *array.Int32:
		return fill(c, array.NewInt32Builder(mem), int32(sentinel)), nil
	case *array.String:
		return fill(c, array.NewStringBuilder(mem), strconv.FormatFloat(sentinel, 'f', -1, 64)), nil
	case *array.Date32:
		return fill(c, array.NewDate32Builder(mem), arrow.Date32(sentinel)), nil
	case *array.Boolean:
		return fill(c, array.NewBooleanBuilder(mem), false), nil
	default:
		return nil, frame.WrongType(name, column.DataType().String(), "a numeric, string, date32, or bool column")
	}
}

type valuer[T any] interface {
	arrow.Array
	Value(i int) T
}

type appender[T any] interface {
	array.Builder
	Append(v T)
}

func fill[T any, A valuer[T], B appender[T]](column A, builder B, sentinel T) arrow.Array {
	defer builder.Release()
	builder.Reserve(column.Len())

	for i := 0; i < column.Len(); i++ {
		if column.IsNull(i) {
			builder.Append(sentinel)
		} else {
			builder.Append(column.Value(i))
		}
	}
	return builder.NewArray()
}
