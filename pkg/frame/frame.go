// Package frame holds the in-memory loan table passed between cleaning stages.
//
// A Frame owns one arrow.Record. Row selections (Filter, Take) return a new
// Frame and leave the receiver untouched; column edits (Replace, Append, Drop,
// SetKey) swap the receiver's record in place. Arrays handed to a Frame become
// owned by it.
package frame

import (
	"context"
	"errors"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/compute"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/loan-prep/pkg/tables"
)

type Frame struct {
	mem    memory.Allocator
	record arrow.Record
}

// New wraps record. The Frame takes ownership of the caller's reference.
func New(mem memory.Allocator, record arrow.Record) *Frame {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Frame{mem: mem, record: record}
}

// FromColumns builds a Frame from parallel fields and arrays, taking ownership
// of the arrays.
func FromColumns(mem memory.Allocator, fields []arrow.Field, columns []arrow.Array) (*Frame, error) {
	defer releaseAll(columns)

	if len(fields) != len(columns) {
		return nil, fmt.Errorf("got %d fields and %d columns", len(fields), len(columns))
	}

	var rows int64
	for i, column := range columns {
		if i == 0 {
			rows = int64(column.Len())
		} else if int64(column.Len()) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", fields[i].Name, column.Len(), rows)
		}
		fields[i].Type = column.DataType()
	}

	schema := arrow.NewSchema(fields, nil)
	return New(mem, array.NewRecord(schema, columns, rows)), nil
}

func (f *Frame) Allocator() memory.Allocator {
	return f.mem
}

// Record returns the current record. The Frame keeps ownership.
func (f *Frame) Record() arrow.Record {
	return f.record
}

func (f *Frame) Schema() *arrow.Schema {
	return f.record.Schema()
}

func (f *Frame) NumRows() int64 {
	return f.record.NumRows()
}

func (f *Frame) NumCols() int {
	return int(f.record.NumCols())
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	fields := f.record.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

func (f *Frame) Has(name string) bool {
	return f.record.Schema().HasField(name)
}

func (f *Frame) index(name string) (int, error) {
	indices := f.record.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return -1, NotFound(name)
	}
	return indices[0], nil
}

// Column returns the named column. The Frame keeps ownership.
func (f *Frame) Column(name string) (arrow.Array, error) {
	i, err := f.index(name)
	if err != nil {
		return nil, err
	}
	return f.record.Column(i), nil
}

func (f *Frame) Field(name string) (arrow.Field, error) {
	i, err := f.index(name)
	if err != nil {
		return arrow.Field{}, err
	}
	return f.record.Schema().Field(i), nil
}

// ColumnAs returns the named column as a concrete Arrow array type such as
// *array.String.
func ColumnAs[T arrow.Array](f *Frame, name string) (T, error) {
	var zero T
	column, err := f.Column(name)
	if err != nil {
		return zero, err
	}
	typed, ok := column.(T)
	if !ok {
		return zero, WrongType(name, column.DataType().String(), fmt.Sprintf("%T", zero))
	}
	return typed, nil
}

// Require checks that every named column is present, reporting all that are not.
func (f *Frame) Require(names ...string) error {
	var missing []error
	for _, name := range names {
		if !f.Has(name) {
			missing = append(missing, NotFound(name))
		}
	}
	return errors.Join(missing...)
}

// Replace swaps the named column for column, which may have a different type.
// The field keeps its name and metadata.
func (f *Frame) Replace(name string, column arrow.Array) error {
	defer column.Release()

	i, err := f.index(name)
	if err != nil {
		return err
	}
	if int64(column.Len()) != f.NumRows() {
		return fmt.Errorf("replacing %q: got %d rows, want %d", name, column.Len(), f.NumRows())
	}

	fields := f.record.Schema().Fields()
	fields[i].Type = column.DataType()
	columns := f.columns()
	columns[i] = column

	f.swap(fields, columns)
	return nil
}

// Append adds a column at the end of the table.
func (f *Frame) Append(field arrow.Field, column arrow.Array) error {
	defer column.Release()

	if f.Has(field.Name) {
		return &SchemaError{Column: field.Name, Reason: "already exists"}
	}
	if int64(column.Len()) != f.NumRows() {
		return fmt.Errorf("appending %q: got %d rows, want %d", field.Name, column.Len(), f.NumRows())
	}

	field.Type = column.DataType()
	fields := append(f.record.Schema().Fields(), field)
	columns := append(f.columns(), column)

	f.swap(fields, columns)
	return nil
}

// Drop removes the named columns. Every name must be present.
func (f *Frame) Drop(names ...string) error {
	if err := f.Require(names...); err != nil {
		return err
	}

	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	var fields []arrow.Field
	var columns []arrow.Array
	for i, field := range f.record.Schema().Fields() {
		if drop[field.Name] {
			continue
		}
		fields = append(fields, field)
		columns = append(columns, f.record.Column(i))
	}

	f.swap(fields, columns)
	return nil
}

// Filter returns a new Frame holding the rows where mask is true. Null mask
// entries drop the row.
func (f *Frame) Filter(ctx context.Context, mask arrow.Array) (*Frame, error) {
	if int64(mask.Len()) != f.NumRows() {
		return nil, fmt.Errorf("filter mask has %d rows, want %d", mask.Len(), f.NumRows())
	}

	ctx = compute.WithAllocator(ctx, f.mem)
	filtered, err := compute.FilterRecordBatch(ctx, f.record, mask, compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("filtering rows: %w", err)
	}
	return New(f.mem, filtered), nil
}

// Take returns a new Frame holding the rows at indices, in that order.
func (f *Frame) Take(ctx context.Context, indices arrow.Array) (*Frame, error) {
	ctx = compute.WithAllocator(ctx, f.mem)

	columns := make([]arrow.Array, 0, f.NumCols())
	for i, column := range f.record.Columns() {
		taken, err := compute.TakeArray(ctx, column, indices)
		if err != nil {
			releaseAll(columns)
			return nil, fmt.Errorf("taking rows of %q: %w", f.record.ColumnName(i), err)
		}
		columns = append(columns, taken)
	}
	defer releaseAll(columns)

	return New(f.mem, array.NewRecord(f.record.Schema(), columns, int64(indices.Len()))), nil
}

// Key returns the name of the unique key column set by SetKey, or "".
func (f *Frame) Key() string {
	md := f.record.Schema().Metadata()
	i := md.FindKey(tables.IndexKey)
	if i < 0 {
		return ""
	}
	return md.Values()[i]
}

// SetKey makes name the table's unique key: every value must be present and
// distinct. The key column moves to the front and the schema records it under
// "index".
func (f *Frame) SetKey(name string) error {
	i, err := f.index(name)
	if err != nil {
		return err
	}

	column := f.record.Column(i)
	seen := make(map[string]int, column.Len())
	for row := 0; row < column.Len(); row++ {
		if column.IsNull(row) {
			return NullKey(name, row)
		}
		value := column.ValueStr(row)
		if first, found := seen[value]; found {
			return &DuplicateKeyError{Column: name, Value: value, Rows: [2]int{first, row}}
		}
		seen[value] = row
	}

	schemaFields := f.record.Schema().Fields()
	fields := []arrow.Field{schemaFields[i]}
	columns := []arrow.Array{column}
	for j, field := range schemaFields {
		if j == i {
			continue
		}
		fields = append(fields, field)
		columns = append(columns, f.record.Column(j))
	}

	md := tables.MetadataBuilderFrom(f.record.Schema().Metadata()).
		Add(tables.IndexKey, name).
		BuildReference()
	f.swapWithMetadata(fields, columns, md)
	return nil
}

// Release drops the Frame's record. The Frame must not be used afterwards.
func (f *Frame) Release() {
	if f == nil || f.record == nil {
		return
	}
	f.record.Release()
	f.record = nil
}

func (f *Frame) columns() []arrow.Array {
	return append([]arrow.Array(nil), f.record.Columns()...)
}

func (f *Frame) swap(fields []arrow.Field, columns []arrow.Array) {
	var md *arrow.Metadata
	if existing := f.record.Schema().Metadata(); existing.Len() > 0 {
		md = &existing
	}
	f.swapWithMetadata(fields, columns, md)
}

// swapWithMetadata replaces the record. NewRecord retains the columns, so the
// old record can be released even when columns are shared.
func (f *Frame) swapWithMetadata(fields []arrow.Field, columns []arrow.Array, md *arrow.Metadata) {
	next := array.NewRecord(arrow.NewSchema(fields, md), columns, f.record.NumRows())
	f.record.Release()
	f.record = next
}

func releaseAll(columns []arrow.Array) {
	for _, column := range columns {
		column.Release()
	}
}
