package metrics_test

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/metrics"
	"github.com/willbeason/loan-prep/pkg/pipeline"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPipelineMetrics(t *testing.T) {
	m := metrics.NewPipelineMetrics("prepare-loans")

	m.ObserveStage(pipeline.StageStat{Name: "filter completed loans", RowsIn: 10, RowsOut: 7, Duration: time.Second})
	m.ObserveRun(2*time.Second, nil)
	m.ObserveRun(time.Second, errors.New("boom"))

	count, err := testutil.GatherAndCount(m.Registry(),
		"loanprep_stage_rows_in", "loanprep_stage_rows_out", "loanprep_run_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	path := filepath.Join(t.TempDir(), "loanprep.prom")
	require.NoError(t, m.WriteTextfile(path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(written)
	assert.Contains(t, text, `loanprep_stage_rows_out{job_name="prepare-loans",stage="filter completed loans"} 7`)
	assert.Contains(t, text, `loanprep_run_total{job_name="prepare-loans",status="error"} 1`)
	assert.Contains(t, text, `loanprep_run_total{job_name="prepare-loans",status="success"} 1`)
	assert.Contains(t, text, `loanprep_run_duration_seconds{job_name="prepare-loans"} 1`)
}
