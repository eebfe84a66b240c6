package missing_test

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/frame/frametest"
	"github.com/willbeason/loan-prep/pkg/missing"
	"testing"
	"time"
)

func TestColumns(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings("id", "1", "2"),
		frametest.Float64s("dti", 1.5, nil),
		frametest.Strings("purpose", nil, "car"),
	)

	assert.Equal(t, []string{"dti", "purpose"}, missing.Columns(f))
}

func TestFlag(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings("id", "1", "2", "3"),
		frametest.Float32s("emp_length", 10, nil, nil),
	)

	flagged, err := missing.Flag(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"emp_length"}, flagged)
	assert.Equal(t, []string{"id", "emp_length", "emp_length_missing"}, f.Names())
	assert.Equal(t, []any{false, true, true}, frametest.Values(t, f, "emp_length_missing"))
	// Flagging leaves the values to Impute.
	assert.Equal(t, []any{float32(10), nil, nil}, frametest.Values(t, f, "emp_length"))
}

func TestFlag_NothingMissing(t *testing.T) {
	f := frametest.Build(t, frametest.Strings("id", "1", "2"))

	flagged, err := missing.Flag(f)
	require.NoError(t, err)

	assert.Empty(t, flagged)
	assert.Equal(t, []string{"id"}, f.Names())
}

func TestImpute(t *testing.T) {
	f := frametest.Build(t,
		frametest.Float64s("annual_inc", nil, 5e4),
		frametest.Float32s("revol_util", 12.5, nil),
		frametest.Int64s("open_acc", nil, 4),
		frametest.Strings("purpose", nil, "car"),
		frametest.Dates("earliest_cr_line", nil, frametest.Month(2003, time.August)),
		frametest.Bools("flag", nil, true),
	)

	require.NoError(t, missing.Impute(f, missing.DefaultSentinel))

	assert.Empty(t, missing.Columns(f))
	assert.Equal(t, []any{-99.0, 5e4}, frametest.Values(t, f, "annual_inc"))
	assert.Equal(t, []any{float32(12.5), float32(-99)}, frametest.Values(t, f, "revol_util"))
	assert.Equal(t, []any{int64(-99), int64(4)}, frametest.Values(t, f, "open_acc"))
	assert.Equal(t, []any{"-99", "car"}, frametest.Values(t, f, "purpose"))
	assert.Equal(t, []any{false, true}, frametest.Values(t, f, "flag"))

	dates := frametest.Values(t, f, "earliest_cr_line")
	assert.Equal(t, time.Unix(0, 0).UTC().AddDate(0, 0, -99), dates[0])
}

func TestApply(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings("id", "1", "2"),
		frametest.Float64s("dti", nil, 20.1),
	)

	flagged, err := missing.Apply(f, -1)
	require.NoError(t, err)

	assert.Equal(t, []string{"dti"}, flagged)
	assert.Equal(t, []any{-1.0, 20.1}, frametest.Values(t, f, "dti"))
	assert.Equal(t, []any{true, false}, frametest.Values(t, f, "dti_missing"))
}
