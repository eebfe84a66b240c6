package frame_test

import (
	"context"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/frame/frametest"
	"github.com/willbeason/loan-prep/pkg/tables"
	"testing"
)

func sample(t *testing.T) *frame.Frame {
	return frametest.Build(t,
		frametest.Strings("id", "a", "b", "c"),
		frametest.Float64s("amount", 1.5, nil, 3.0),
		frametest.Strings("grade", "A", "B", nil),
	)
}

func TestFrame_Require(t *testing.T) {
	f := sample(t)

	require.NoError(t, f.Require("id", "grade"))

	err := f.Require("id", "term", "issue_d")
	require.ErrorIs(t, err, frame.ErrSchema)
	assert.Contains(t, err.Error(), `"term"`)
	assert.Contains(t, err.Error(), `"issue_d"`)
}

func TestColumnAs(t *testing.T) {
	f := sample(t)

	ids, err := frame.ColumnAs[*array.String](f, "id")
	require.NoError(t, err)
	assert.Equal(t, "b", ids.Value(1))

	_, err = frame.ColumnAs[*array.Float32](f, "amount")
	var schemaErr *frame.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "amount", schemaErr.Column)

	_, err = frame.ColumnAs[*array.String](f, "absent")
	require.ErrorIs(t, err, frame.ErrSchema)
}

func TestFrame_Replace(t *testing.T) {
	f := sample(t)

	b := array.NewInt64Builder(memory.DefaultAllocator)
	b.AppendValues([]int64{7, 8, 9}, nil)
	require.NoError(t, f.Replace("amount", b.NewArray()))
	b.Release()

	assert.Equal(t, []string{"id", "amount", "grade"}, f.Names())
	assert.Equal(t, []any{int64(7), int64(8), int64(9)}, frametest.Values(t, f, "amount"))

	short := array.NewInt64Builder(memory.DefaultAllocator)
	short.Append(1)
	err := f.Replace("amount", short.NewArray())
	short.Release()
	require.Error(t, err)
}

func TestFrame_Append(t *testing.T) {
	f := sample(t)

	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	b.AppendValues([]bool{true, false, true}, nil)
	require.NoError(t, f.Append(arrow.Field{Name: "flag", Nullable: true}, b.NewArray()))
	b.Release()

	assert.Equal(t, []string{"id", "amount", "grade", "flag"}, f.Names())

	dup := array.NewBooleanBuilder(memory.DefaultAllocator)
	dup.AppendValues([]bool{true, false, true}, nil)
	err := f.Append(arrow.Field{Name: "id"}, dup.NewArray())
	dup.Release()
	require.ErrorIs(t, err, frame.ErrSchema)
}

func TestFrame_Drop(t *testing.T) {
	f := sample(t)

	require.NoError(t, f.Drop("amount"))
	assert.Equal(t, []string{"id", "grade"}, f.Names())
	assert.Equal(t, int64(3), f.NumRows())

	err := f.Drop("grade", "amount")
	require.ErrorIs(t, err, frame.ErrSchema)
	assert.Equal(t, []string{"id", "grade"}, f.Names(), "failed drop must not change the table")
}

func TestFrame_Filter(t *testing.T) {
	f := sample(t)

	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	b.AppendValues([]bool{true, false, true}, nil)
	mask := b.NewArray()
	b.Release()
	defer mask.Release()

	filtered, err := f.Filter(context.Background(), mask)
	require.NoError(t, err)
	defer filtered.Release()

	assert.Equal(t, []any{"a", "c"}, frametest.Values(t, filtered, "id"))
	assert.Equal(t, []any{"A", nil}, frametest.Values(t, filtered, "grade"))
	assert.Equal(t, int64(3), f.NumRows(), "input must be unchanged")
}

func TestFrame_Take(t *testing.T) {
	f := sample(t)

	b := array.NewInt64Builder(memory.DefaultAllocator)
	b.AppendValues([]int64{2, 0}, nil)
	indices := b.NewArray()
	b.Release()
	defer indices.Release()

	taken, err := f.Take(context.Background(), indices)
	require.NoError(t, err)
	defer taken.Release()

	assert.Equal(t, []any{"c", "a"}, frametest.Values(t, taken, "id"))
	assert.Equal(t, []any{3.0, 1.5}, frametest.Values(t, taken, "amount"))
}

func TestFrame_SetKey(t *testing.T) {
	f := frametest.Build(t,
		frametest.Float64s("amount", 1, 2, 3),
		frametest.Strings("id", "a", "b", "c"),
	)

	require.NoError(t, f.SetKey("id"))

	assert.Equal(t, "id", f.Key())
	assert.Equal(t, []string{"id", "amount"}, f.Names())
	md := f.Schema().Metadata()
	assert.Equal(t, "id", md.Values()[md.FindKey(tables.IndexKey)])
}

func TestFrame_SetKey_Duplicate(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings("id", "a", "b", "a"),
	)

	err := f.SetKey("id")

	var dupErr *frame.DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	assert.ErrorIs(t, err, frame.ErrDuplicateKey)
	assert.Equal(t, "a", dupErr.Value)
	assert.Equal(t, [2]int{0, 2}, dupErr.Rows)
	assert.Equal(t, "", f.Key())
}

func TestFrame_SetKey_Null(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings("id", "(null)", nil),
	)

	err := f.SetKey("id")

	var schemaErr *frame.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ErrorIs(t, err, frame.ErrSchema)
	assert.NotErrorIs(t, err, frame.ErrDuplicateKey)
	assert.Equal(t, "id", schemaErr.Column)
	assert.Contains(t, schemaErr.Reason, "row 1")
	assert.Equal(t, "", f.Key())
}

func TestFrame_KeySurvivesColumnEdits(t *testing.T) {
	f := sample(t)
	require.NoError(t, f.SetKey("id"))

	require.NoError(t, f.Drop("grade"))

	assert.Equal(t, "id", f.Key())
}

func TestFromColumns_MismatchedLengths(t *testing.T) {
	mem := memory.DefaultAllocator

	a := array.NewStringBuilder(mem)
	a.AppendValues([]string{"x", "y"}, nil)
	b := array.NewStringBuilder(mem)
	b.Append("z")

	_, err := frame.FromColumns(mem,
		[]arrow.Field{{Name: "a"}, {Name: "b"}},
		[]arrow.Array{a.NewArray(), b.NewArray()})
	a.Release()
	b.Release()

	require.Error(t, err)
}
