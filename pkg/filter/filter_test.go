package filter_test

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/filter"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/frame/frametest"
	"github.com/willbeason/loan-prep/pkg/tables"
	"testing"
	"time"
)

func apply(t *testing.T, f *frame.Frame, predicates ...filter.Predicate) []any {
	t.Helper()

	got, err := filter.Apply(context.Background(), f, predicates...)
	require.NoError(t, err)
	defer got.Release()

	return frametest.Values(t, got, tables.ID)
}

func TestCompletedStatus(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3", "4", "5"),
		frametest.Strings(tables.LoanStatus, "Fully Paid", "Current", "Charged Off", nil, "Late (31-120 days)"),
	)

	assert.Equal(t, []any{"1", "3"}, apply(t, f, filter.CompletedStatus()))
	assert.Equal(t, int64(5), f.NumRows())
}

func TestIndividualApplicant(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3", "4"),
		frametest.Strings(tables.ApplicationType, "Individual", "Joint App", "INDIVIDUAL", nil),
	)

	assert.Equal(t, []any{"1", "3"}, apply(t, f, filter.IndividualApplicant()))
}

func TestIssuedOnOrAfter(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3"),
		frametest.Dates(tables.IssueDate,
			frametest.Month(2009, time.December),
			frametest.Month(2010, time.January),
			frametest.Month(2016, time.March)),
	)

	cutoff := frametest.Month(2010, time.January)
	assert.Equal(t, []any{"2", "3"}, apply(t, f, filter.IssuedOnOrAfter(cutoff)))
}

func TestIssuedOnOrAfter_Uncoerced(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1"),
		frametest.Strings(tables.IssueDate, "Dec-15"),
	)

	_, err := filter.Apply(context.Background(), f, filter.IssuedOnOrAfter(time.Now()))

	require.ErrorIs(t, err, frame.ErrSchema)
}

func TestNotNull(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3"),
		frametest.Strings(tables.LastPaymentDate, "Jan-17", nil, "Feb-18"),
	)

	assert.Equal(t, []any{"1", "3"}, apply(t, f, filter.NotNull(tables.LastPaymentDate)))
}

func TestApply_AllPredicates(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2", "3", "4"),
		frametest.Strings(tables.LoanStatus, "Fully Paid", "Fully Paid", "Current", "Charged Off"),
		frametest.Strings(tables.ApplicationType, "Individual", "Joint App", "Individual", "Individual"),
	)

	got := apply(t, f, filter.CompletedStatus(), filter.IndividualApplicant())

	assert.Equal(t, []any{"1", "4"}, got)
}

func TestApply_NoRowsKept(t *testing.T) {
	f := frametest.Build(t,
		frametest.Strings(tables.ID, "1", "2"),
		frametest.Strings(tables.LoanStatus, "Current", "Current"),
	)

	got, err := filter.Apply(context.Background(), f, filter.CompletedStatus())
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, int64(0), got.NumRows())
	assert.Equal(t, f.Names(), got.Names())
}
