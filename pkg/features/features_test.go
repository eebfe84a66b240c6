package features_test

import (
	"context"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/features"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/frame/frametest"
	"github.com/willbeason/loan-prep/pkg/tables"
	"testing"
	"time"
)

const benchmarksYAML = `
series:
  - name: treasury_3y
    observations:
      - {month: 2016-01, rate: 1.14}
      - {month: 2015-11, rate: 1.20}
      - {month: 2015-12, rate: 1.31}
`

func cleaned(t *testing.T) *frame.Frame {
	return frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3"),
		frametest.Float32s(tables.IntRate, 13.5, 7.0, -99),
		frametest.Dates(tables.IssueDate,
			frametest.Month(2015, time.December),
			frametest.Month(2016, time.March),
			frametest.Month(2015, time.June)),
		frametest.Dates(tables.EarliestCrLine,
			frametest.Month(2003, time.August),
			frametest.Month(2015, time.March),
			time.Unix(0, 0).UTC().AddDate(0, 0, -99)),
		frametest.Bools(tables.MissingName(tables.EarliestCrLine), false, false, true),
		frametest.Float64s("annual_inc", 55000, 72000.5, -99),
		frametest.Strings("grade", "B", "A", "B"),
	)
}

func TestParseBenchmarks(t *testing.T) {
	series, err := features.ParseBenchmarks([]byte(benchmarksYAML))
	require.NoError(t, err)
	require.Len(t, series, 1)

	months := make([]string, len(series[0].Observations))
	for i, o := range series[0].Observations {
		months[i] = o.Month
	}
	assert.Equal(t, []string{"2015-11", "2015-12", "2016-01"}, months)
}

func TestParseBenchmarks_Invalid(t *testing.T) {
	tcs := []struct {
		name string
		data string
	}{
		{name: "unknown field", data: "series:\n  - name: x\n    rates: []\n"},
		{name: "no observations", data: "series:\n  - name: x\n"},
		{name: "no name", data: "series:\n  - observations:\n      - {month: 2015-01, rate: 1}\n"},
		{name: "bad month", data: "series:\n  - name: x\n    observations:\n      - {month: January, rate: 1}\n"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := features.ParseBenchmarks([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestSeries_AsOf(t *testing.T) {
	series, err := features.NewSeries("treasury_3y",
		features.Observation{Month: "2016-01", Rate: 1.14},
		features.Observation{Month: "2015-11", Rate: 1.20},
	)
	require.NoError(t, err)

	_, ok := series.AsOf(frametest.Month(2015, time.October))
	assert.False(t, ok)

	rate, ok := series.AsOf(time.Date(2015, time.December, 17, 0, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, float32(1.20), rate)

	rate, ok = series.AsOf(frametest.Month(2016, time.January))
	assert.True(t, ok)
	assert.Equal(t, float32(1.14), rate)
}

func TestGenerator_Enrich(t *testing.T) {
	series, err := features.ParseBenchmarks([]byte(benchmarksYAML))
	require.NoError(t, err)

	opts := features.DefaultOptions()
	opts.Benchmarks = series
	opts.Categoricals = []string{"grade"}

	f := cleaned(t)
	got, err := features.NewGenerator(opts).Enrich(context.Background(), f)
	require.NoError(t, err)
	require.Same(t, f, got)

	wantNames := []string{
		tables.ID, tables.IntRate, tables.IssueDate, tables.EarliestCrLine,
		tables.MissingName(tables.EarliestCrLine), "annual_inc",
		"treasury_3y", "int_rate_minus_treasury_3y", tables.MonthsSinceEarliestCrLine,
		"grade_A", "grade_B",
	}
	if diff := cmp.Diff(wantNames, got.Names()); diff != "" {
		t.Errorf("column names mismatch (-want +got):\n%s", diff)
	}

	// June 2015 precedes the series, so it gets the sentinel.
	assert.Equal(t, []any{float32(1.31), float32(1.14), float32(-99)}, frametest.Values(t, got, "treasury_3y"))

	diffs := frametest.Values(t, got, "int_rate_minus_treasury_3y")
	assert.InDelta(t, 12.19, diffs[0], 1e-4)
	assert.InDelta(t, 5.86, diffs[1], 1e-4)
	assert.Equal(t, float32(-99), diffs[2])

	assert.Equal(t,
		[]any{float32(148), float32(12), float32(-99)},
		frametest.Values(t, got, tables.MonthsSinceEarliestCrLine))

	// Narrowed, except the key.
	assert.Equal(t, []any{float32(55000), float32(72000.5), float32(-99)}, frametest.Values(t, got, "annual_inc"))
	assert.Equal(t, []any{"1", "2", "3"}, frametest.Values(t, got, tables.ID))

	assert.Equal(t, []any{false, true, false}, frametest.Values(t, got, "grade_A"))
	assert.Equal(t, []any{true, false, true}, frametest.Values(t, got, "grade_B"))
}

func TestGenerator_NoBenchmarks(t *testing.T) {
	opts := features.DefaultOptions()
	opts.Categoricals = nil

	f := cleaned(t)
	_, err := features.NewGenerator(opts).Enrich(context.Background(), f)
	require.NoError(t, err)

	assert.False(t, f.Has("treasury_3y"))
	assert.True(t, f.Has(tables.MonthsSinceEarliestCrLine))
	assert.True(t, f.Has("grade"))
}

func TestGenerator_MissingCategorical(t *testing.T) {
	opts := features.DefaultOptions()

	_, err := features.NewGenerator(opts).Enrich(context.Background(), cleaned(t))

	require.ErrorIs(t, err, frame.ErrSchema)
}

func TestNone(t *testing.T) {
	f := cleaned(t)
	names := f.Names()

	got, err := features.None.Enrich(context.Background(), f)
	require.NoError(t, err)

	assert.Same(t, f, got)
	assert.Equal(t, names, got.Names())
}
