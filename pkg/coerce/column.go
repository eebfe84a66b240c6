package coerce

import (
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/loan-prep/pkg/frame"
)

// A ColumnFunc coerces one named column. The returned array is owned by the
// caller; input is only borrowed.
type ColumnFunc func(mem memory.Allocator, name string, input arrow.Array) (arrow.Array, error)

// stringsOf returns input as a utf8 array, or done=true with input retained
// when it already has the target type.
func stringsOf(name string, input arrow.Array, target arrow.Type) (values *array.String, done bool, err error) {
	if input.DataType().ID() == target {
		input.Retain()
		return nil, true, nil
	}
	values, ok := input.(*array.String)
	if !ok {
		return nil, false, frame.WrongType(name, input.DataType().String(), arrow.BinaryTypes.String.String())
	}
	return values, false, nil
}

// RateColumn coerces a column of percentage strings to float32.
func RateColumn(mem memory.Allocator, name string, input arrow.Array) (arrow.Array, error) {
	values, done, err := stringsOf(name, input, arrow.FLOAT32)
	if err != nil {
		return nil, err
	}
	if done {
		return input, nil
	}

	builder := array.NewFloat32Builder(mem)
	defer builder.Release()
	builder.Reserve(values.Len())

	for i := 0; i < values.Len(); i++ {
		if values.IsNull(i) {
			builder.AppendNull()
			continue
		}
		rate, err := Rate(values.Value(i))
		if err != nil {
			return nil, atRow(err, name, i)
		}
		builder.Append(rate)
	}
	return builder.NewArray(), nil
}

// TermColumn returns a ColumnFunc coercing loan terms to uint8. A missing term
// is always an error; strict also rejects terms other than 36 or 60 months.
func TermColumn(strict bool) ColumnFunc {
	return func(mem memory.Allocator, name string, input arrow.Array) (arrow.Array, error) {
		values, done, err := stringsOf(name, input, arrow.UINT8)
		if err != nil {
			return nil, err
		}
		if done {
			return input, nil
		}

		builder := array.NewUint8Builder(mem)
		defer builder.Release()
		builder.Reserve(values.Len())

		for i := 0; i < values.Len(); i++ {
			if values.IsNull(i) {
				return nil, &ParseError{Column: name, Row: i, Err: errMissing}
			}
			value := values.Value(i)
			if !strict {
				builder.Append(Term(value))
				continue
			}
			term, err := TermStrict(value)
			if err != nil {
				return nil, atRow(err, name, i)
			}
			builder.Append(term)
		}
		return builder.NewArray(), nil
	}
}

// EmploymentLengthColumn coerces employment lengths to float32. Values without
// digits become null.
func EmploymentLengthColumn(mem memory.Allocator, name string, input arrow.Array) (arrow.Array, error) {
	values, done, err := stringsOf(name, input, arrow.FLOAT32)
	if err != nil {
		return nil, err
	}
	if done {
		return input, nil
	}

	builder := array.NewFloat32Builder(mem)
	defer builder.Release()
	builder.Reserve(values.Len())

	for i := 0; i < values.Len(); i++ {
		if values.IsNull(i) {
			builder.AppendNull()
			continue
		}
		years, ok := EmploymentLength(values.Value(i))
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(years)
	}
	return builder.NewArray(), nil
}

// DateColumn coerces month-level date strings to date32.
func DateColumn(mem memory.Allocator, name string, input arrow.Array) (arrow.Array, error) {
	values, done, err := stringsOf(name, input, arrow.DATE32)
	if err != nil {
		return nil, err
	}
	if done {
		return input, nil
	}

	builder := array.NewDate32Builder(mem)
	defer builder.Release()
	builder.Reserve(values.Len())

	for i := 0; i < values.Len(); i++ {
		if values.IsNull(i) {
			builder.AppendNull()
			continue
		}
		date, err := Date(values.Value(i))
		if err != nil {
			return nil, atRow(err, name, i)
		}
		builder.Append(arrow.Date32FromTime(date))
	}
	return builder.NewArray(), nil
}

// Columns coerces each named column of f in place, in order.
func Columns(f *frame.Frame, fn ColumnFunc, names ...string) error {
	for _, name := range names {
		input, err := f.Column(name)
		if err != nil {
			return err
		}
		output, err := fn(f.Allocator(), name, input)
		if err != nil {
			return err
		}
		err = f.Replace(name, output)
		if err != nil {
			return err
		}
	}
	return nil
}
