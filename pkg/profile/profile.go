// Package profile summarizes the columns of a loan table: how many values are
// missing, the narrowest type able to hold the rest, their range, and, for
// columns with few distinct values, the levels.
package profile

import (
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"strings"
)

// DateLayout is how date values are profiled.
const DateLayout = "2006-01"

type Column struct {
	Name    string
	Type    arrow.DataType
	Comment string
	Rows    int
	Nulls   int
	Field   Field
}

// Levels returns the distinct values as text, or nil when the column has too
// many to list or holds booleans.
func (c Column) Levels() []string {
	switch f := c.Field.(type) {
	case *StringField:
		return f.Levels()
	case *NumberField:
		levels := f.Levels()
		if levels == nil {
			return nil
		}
		result := make([]string, len(levels))
		for i, level := range levels {
			result[i] = fmt.Sprint(level)
		}
		return result
	default:
		return nil
	}
}

func (c Column) String() string {
	return fmt.Sprintf("%s;%s;%d;%d;%s", c.Name, c.Type, c.Rows, c.Nulls, c.Field)
}

// Frame profiles every column of f in order.
func Frame(f *frame.Frame) ([]Column, error) {
	schema := f.Schema()
	result := make([]Column, 0, f.NumCols())
	for i, field := range schema.Fields() {
		column, err := Array(field.Name, f.Record().Column(i))
		if err != nil {
			return nil, err
		}
		column.Comment = tables.CommentOf(field)
		result = append(result, column)
	}
	return result, nil
}

// Array profiles one column.
func Array(name string, values arrow.Array) (Column, error) {
	column := Column{
		Name:  name,
		Type:  values.DataType(),
		Rows:  values.Len(),
		Nulls: values.NullN(),
	}

	var field Field = &EmptyField{}
	for i := 0; i < values.Len(); i++ {
		v, err := valueAt(values, i)
		if err != nil {
			return Column{}, fmt.Errorf("profiling %q: %w", name, err)
		}
		field, err = field.Add(v)
		if err != nil {
			return Column{}, fmt.Errorf("profiling %q row %d: %w", name, i, err)
		}
	}
	column.Field = field
	return column, nil
}

func valueAt(values arrow.Array, i int) (any, error) {
	if values.IsNull(i) {
		return nil, nil
	}

	switch c := values.(type) {
	case *array.Boolean:
		return c.Value(i), nil
	case *array.String:
		return strings.TrimSpace(c.Value(i)), nil
	case *array.Date32:
		return c.Value(i).ToTime().Format(DateLayout), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.Float32:
		return float64(c.Value(i)), nil
	case *array.Int64:
		return float64(c.Value(i)), nil
	case *array.Int32:
		return float64(c.Value(i)), nil
	case *array.Uint8:
		return float64(c.Value(i)), nil
	default:
		return nil, frame.WrongType("", values.DataType().String(), "a bool, string, date32, or numeric column")
	}
}
