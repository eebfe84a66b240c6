// Package features derives model features from a cleaned loan table.
//
// The cleaning pipeline only relies on the Enricher contract: it hands over a
// table with no missing values and takes back a table with extra columns.
package features

import (
	"context"
	"fmt"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/missing"
	"github.com/willbeason/loan-prep/pkg/tables"
)

type Enricher interface {
	Enrich(ctx context.Context, f *frame.Frame) (*frame.Frame, error)
}

type EnricherFunc func(ctx context.Context, f *frame.Frame) (*frame.Frame, error)

func (fn EnricherFunc) Enrich(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	return fn(ctx, f)
}

// None returns the table unchanged.
var None Enricher = EnricherFunc(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
	return f, nil
})

type Options struct {
	// Sentinel marks values that were missing before imputation, and is
	// written where a feature cannot be computed.
	Sentinel float64

	// Benchmarks are joined onto issue_d; each also yields a rate difference.
	Benchmarks []Series

	// Categoricals are expanded into one indicator column per level.
	Categoricals []string

	// KeepTypes lists columns left out of float narrowing, such as the key.
	KeepTypes []string
}

func DefaultOptions() Options {
	return Options{
		Sentinel:     missing.DefaultSentinel,
		Categoricals: tables.DefaultCategoricals,
		KeepTypes:    []string{tables.ID},
	}
}

// Generator is the default Enricher.
type Generator struct {
	opts Options
}

func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

type step struct {
	name string
	run  func(f *frame.Frame) error
}

// Enrich adds benchmark rates, rate differences, and credit history age,
// narrows floats, and expands categoricals, in that order. Columns are added
// to f in place and f is returned.
func (g *Generator) Enrich(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
	steps := []step{
		{"adding benchmark rates", g.addBenchmarks},
		{"adding rate differences", g.addRateDifferences},
		{"adding credit history age", g.addCreditHistoryAge},
		{"narrowing column types", g.narrowTypes},
		{"expanding categoricals", g.addDummies},
	}

	for _, s := range steps {
		err := s.run(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return f, nil
}
