// Package pipeline cleans raw loan records into a model-ready table.
//
// The stages run in a fixed order because later stages read columns coerced
// by earlier ones: dates are parsed before filtering on issue date, terms are
// parsed before keeping 36-month loans, and missing values are flagged before
// they are imputed. Any failing stage aborts the run.
package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/google/uuid"
	"github.com/willbeason/loan-prep/pkg/coerce"
	"github.com/willbeason/loan-prep/pkg/features"
	"github.com/willbeason/loan-prep/pkg/filter"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/missing"
	"github.com/willbeason/loan-prep/pkg/tables"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"slices"
	"time"
)

// RequiredColumns must all be present in the raw table.
var RequiredColumns = append([]string{
	tables.ID, tables.LoanStatus, tables.IntRate, tables.RevolUtil, tables.EmpLength,
}, tables.DropColumns...)

type Result struct {
	RunID string
	// Frame is keyed by id and owned by the caller.
	Frame  *frame.Frame
	Stages []StageStat
	// Flagged lists the columns that had missing values before imputation.
	Flagged []string
}

type stage struct {
	name string
	run  func(ctx context.Context, f *frame.Frame) (*frame.Frame, error)
}

// Prepare runs every stage over f and returns the prepared table. It takes
// ownership of f.
func Prepare(ctx context.Context, f *frame.Frame, opts Options) (*frame.Frame, error) {
	result, err := Run(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return result.Frame, nil
}

// Run is Prepare, also reporting per-stage statistics.
func Run(ctx context.Context, f *frame.Frame, opts Options) (*Result, error) {
	result := &Result{RunID: opts.RunID}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("run_id", result.RunID))

	enricher := opts.Enricher
	if enricher == nil {
		enricher = features.None
	}

	stages := []stage{
		{"validate columns", inPlace(func(f *frame.Frame) error {
			return f.Require(RequiredColumns...)
		})},
		{"filter completed loans", keep(filter.CompletedStatus())},
		{"drop loan status", inPlace(func(f *frame.Frame) error {
			return f.Drop(tables.LoanStatus)
		})},
		{"filter individual applicants", keep(filter.IndividualApplicant())},
		{"coerce rate columns", inPlace(func(f *frame.Frame) error {
			return coerceColumns(f, coerce.RateColumn, tables.RateColumns, opts.Parallel)
		})},
		{"drop loans missing issue date", keep(filter.NotNull(tables.IssueDate))},
		{"drop loans missing last payment date", keep(filter.NotNull(tables.LastPaymentDate))},
		{"coerce date columns", inPlace(func(f *frame.Frame) error {
			return coerceColumns(f, coerce.DateColumn, tables.DateColumns, opts.Parallel)
		})},
		{"sort by issue date", sortByIssueDate},
		{"filter issue date cutoff", keep(filter.IssuedOnOrAfter(opts.issueCutoff()))},
		{"coerce term", inPlace(func(f *frame.Frame) error {
			return coerce.Columns(f, coerce.TermColumn(opts.StrictTerm), tables.Term)
		})},
		{"filter 36 month loans", keep(filter.TermEquals(coerce.Term36))},
		{"coerce employment length", inPlace(func(f *frame.Frame) error {
			return coerce.Columns(f, coerce.EmploymentLengthColumn, tables.EmpLength)
		})},
		{"flag missing values", inPlace(func(f *frame.Frame) error {
			flagged, err := missing.Flag(f)
			result.Flagged = flagged
			return err
		})},
		{"impute missing values", inPlace(func(f *frame.Frame) error {
			return missing.Impute(f, opts.sentinel())
		})},
		{"enrich", enricher.Enrich},
		{"drop unneeded columns", inPlace(func(f *frame.Frame) error {
			return f.Drop(tables.DropColumns...)
		})},
		{"set key", inPlace(func(f *frame.Frame) error {
			return f.SetKey(tables.ID)
		})},
	}

	start := time.Now()
	current := f
	for _, s := range stages {
		stat := StageStat{Name: s.name, RowsIn: current.NumRows()}
		stageStart := time.Now()

		next, err := s.run(ctx, current)
		if err != nil {
			current.Release()
			logger.Error("stage failed", slog.String("stage", s.name), slog.Any("error", err))
			if opts.Recorder != nil {
				opts.Recorder.ObserveRun(time.Since(start), err)
			}
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if next != current {
			current.Release()
			current = next
		}

		stat.RowsOut = current.NumRows()
		stat.Columns = current.NumCols()
		stat.Duration = time.Since(stageStart)
		result.Stages = append(result.Stages, stat)

		logger.Info("stage complete",
			slog.String("stage", stat.Name),
			slog.Int64("rows_in", stat.RowsIn),
			slog.Int64("rows_out", stat.RowsOut),
			slog.Int("columns", stat.Columns),
			slog.Duration("duration", stat.Duration))
		if opts.Recorder != nil {
			opts.Recorder.ObserveStage(stat)
		}
	}

	logger.Info("prepared loans",
		slog.Int64("rows", current.NumRows()),
		slog.Int("columns", current.NumCols()),
		slog.Int("flagged_columns", len(result.Flagged)),
		slog.Duration("duration", time.Since(start)))
	if opts.Recorder != nil {
		opts.Recorder.ObserveRun(time.Since(start), nil)
	}

	result.Frame = current
	return result, nil
}

func inPlace(fn func(f *frame.Frame) error) func(context.Context, *frame.Frame) (*frame.Frame, error) {
	return func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		err := fn(f)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

func keep(predicate filter.Predicate) func(context.Context, *frame.Frame) (*frame.Frame, error) {
	return func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		return filter.Apply(ctx, f, predicate)
	}
}

// sortByIssueDate orders loans by issue month, keeping the input order of
// loans issued in the same month.
func sortByIssueDate(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	issued, err := frame.ColumnAs[*array.Date32](f, tables.IssueDate)
	if err != nil {
		return nil, err
	}

	order := make([]int64, issued.Len())
	for i := range order {
		order[i] = int64(i)
	}
	slices.SortStableFunc(order, func(a, b int64) int {
		return cmp.Compare(issued.Value(int(a)), issued.Value(int(b)))
	})

	builder := array.NewInt64Builder(f.Allocator())
	defer builder.Release()
	builder.AppendValues(order, nil)
	indices := builder.NewArray()
	defer indices.Release()

	return f.Take(ctx, indices)
}

// coerceColumns applies fn to each named column. In parallel mode every
// goroutine reads its own input column and writes only its own output slot;
// the frame is updated afterwards on the calling goroutine.
func coerceColumns(f *frame.Frame, fn coerce.ColumnFunc, names []string, parallel bool) error {
	if !parallel || len(names) < 2 {
		return coerce.Columns(f, fn, names...)
	}

	inputs := make([]arrow.Array, len(names))
	for i, name := range names {
		column, err := f.Column(name)
		if err != nil {
			return err
		}
		inputs[i] = column
	}

	outputs := make([]arrow.Array, len(names))
	var group errgroup.Group
	for i := range names {
		group.Go(func() error {
			output, err := fn(f.Allocator(), names[i], inputs[i])
			if err != nil {
				return err
			}
			outputs[i] = output
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		releaseNonNil(outputs)
		return err
	}

	for i, name := range names {
		err = f.Replace(name, outputs[i])
		if err != nil {
			releaseNonNil(outputs[i+1:])
			return err
		}
	}
	return nil
}

func releaseNonNil(columns []arrow.Array) {
	for _, column := range columns {
		if column != nil {
			column.Release()
		}
	}
}
