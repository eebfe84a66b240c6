package features

import (
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"slices"
	"sort"
)

func (g *Generator) sentinel32() float32 {
	return float32(g.opts.Sentinel)
}

func (g *Generator) addBenchmarks(f *frame.Frame) error {
	if len(g.opts.Benchmarks) == 0 {
		return nil
	}

	issued, err := frame.ColumnAs[*array.Date32](f, tables.IssueDate)
	if err != nil {
		return err
	}

	for i := range g.opts.Benchmarks {
		series := &g.opts.Benchmarks[i]

		builder := array.NewFloat32Builder(f.Allocator())
		builder.Reserve(issued.Len())
		for row := 0; row < issued.Len(); row++ {
			rate, ok := series.AsOf(issued.Value(row).ToTime())
			if !ok {
				rate = g.sentinel32()
			}
			builder.Append(rate)
		}
		rates := builder.NewArray()
		builder.Release()

		err = f.Append(arrow.Field{
			Name:     series.Name,
			Metadata: tables.CommentMetadata(fmt.Sprintf("Benchmark %s rate in the issue month, in percent", series.Name)),
		}, rates)
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) addRateDifferences(f *frame.Frame) error {
	if len(g.opts.Benchmarks) == 0 {
		return nil
	}

	rates, err := frame.ColumnAs[*array.Float32](f, tables.IntRate)
	if err != nil {
		return err
	}

	sentinel := g.sentinel32()
	for _, series := range g.opts.Benchmarks {
		benchmark, err := frame.ColumnAs[*array.Float32](f, series.Name)
		if err != nil {
			return err
		}

		builder := array.NewFloat32Builder(f.Allocator())
		builder.Reserve(rates.Len())
		for row := 0; row < rates.Len(); row++ {
			rate, base := rates.Value(row), benchmark.Value(row)
			if rate == sentinel || base == sentinel {
				builder.Append(sentinel)
				continue
			}
			builder.Append(rate - base)
		}
		differences := builder.NewArray()
		builder.Release()

		err = f.Append(arrow.Field{
			Name:     tables.RateDiffPrefix + series.Name,
			Metadata: tables.CommentMetadata(fmt.Sprintf("Loan interest rate minus the %s benchmark, in percentage points", series.Name)),
		}, differences)
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) addCreditHistoryAge(f *frame.Frame) error {
	issued, err := frame.ColumnAs[*array.Date32](f, tables.IssueDate)
	if err != nil {
		return err
	}
	earliest, err := frame.ColumnAs[*array.Date32](f, tables.EarliestCrLine)
	if err != nil {
		return err
	}

	// Absent when no earliest credit line was missing.
	var imputed *array.Boolean
	if f.Has(tables.MissingName(tables.EarliestCrLine)) {
		imputed, err = frame.ColumnAs[*array.Boolean](f, tables.MissingName(tables.EarliestCrLine))
		if err != nil {
			return err
		}
	}

	builder := array.NewFloat32Builder(f.Allocator())
	defer builder.Release()
	builder.Reserve(issued.Len())

	for row := 0; row < issued.Len(); row++ {
		if imputed != nil && imputed.Value(row) {
			builder.Append(g.sentinel32())
			continue
		}
		builder.Append(float32(monthsBetween(earliest.Value(row), issued.Value(row))))
	}
	ages := builder.NewArray()

	return f.Append(arrow.Field{
		Name:     tables.MonthsSinceEarliestCrLine,
		Metadata: tables.CommentMetadata(tables.Comment(tables.MonthsSinceEarliestCrLine)),
	}, ages)
}

// monthsBetween counts calendar months from start to end.
func monthsBetween(start, end arrow.Date32) int {
	s, e := start.ToTime(), end.ToTime()
	return (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
}

// narrowTypes converts 64-bit numeric columns to float32.
func (g *Generator) narrowTypes(f *frame.Frame) error {
	for _, field := range f.Schema().Fields() {
		if slices.Contains(g.opts.KeepTypes, field.Name) {
			continue
		}

		column, err := f.Column(field.Name)
		if err != nil {
			return err
		}

		var value func(i int) float32
		switch c := column.(type) {
		case *array.Float64:
			value = func(i int) float32 { return float32(c.Value(i)) }
		case *array.Int64:
			value = func(i int) float32 { return float32(c.Value(i)) }
		default:
			continue
		}

		builder := array.NewFloat32Builder(f.Allocator())
		builder.Reserve(column.Len())
		for i := 0; i < column.Len(); i++ {
			if column.IsNull(i) {
				builder.AppendNull()
				continue
			}
			builder.Append(value(i))
		}
		narrowed := builder.NewArray()
		builder.Release()

		err = f.Replace(field.Name, narrowed)
		if err != nil {
			return err
		}
	}
	return nil
}

// addDummies replaces each categorical column with one indicator column per
// distinct value, named "<col>_<value>" in sorted value order.
func (g *Generator) addDummies(f *frame.Frame) error {
	for _, name := range g.opts.Categoricals {
		column, err := frame.ColumnAs[*array.String](f, name)
		if err != nil {
			return err
		}

		for _, level := range levels(column) {
			builder := array.NewBooleanBuilder(f.Allocator())
			builder.Reserve(column.Len())
			for row := 0; row < column.Len(); row++ {
				builder.Append(column.IsValid(row) && column.Value(row) == level)
			}
			indicator := builder.NewArray()
			builder.Release()

			err = f.Append(arrow.Field{
				Name:     tables.DummyName(name, level),
				Metadata: tables.CommentMetadata(fmt.Sprintf("Whether %s is %q", name, level)),
			}, indicator)
			if err != nil {
				return err
			}
		}

		err = f.Drop(name)
		if err != nil {
			return err
		}
	}
	return nil
}

func levels(column *array.String) []string {
	seen := make(map[string]bool)
	for row := 0; row < column.Len(); row++ {
		if column.IsValid(row) {
			seen[column.Value(row)] = true
		}
	}

	result := make([]string, 0, len(seen))
	for level := range seen {
		result = append(result, level)
	}
	sort.Strings(result)
	return result
}
