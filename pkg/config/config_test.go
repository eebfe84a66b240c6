package config_test

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/config"
	"github.com/willbeason/loan-prep/pkg/loader"
	"github.com/willbeason/loan-prep/pkg/tables"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loanprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, -99.0, cfg.Pipeline.Sentinel)
	assert.Equal(t, "2010-01", cfg.Pipeline.IssueCutoff)
	assert.Equal(t, tables.DefaultColumns, cfg.Loader.Columns)
	assert.Equal(t, "loans.parquet", cfg.Output.Path)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  sentinel: -1
  issue_cutoff: 2012-06
  strict_term: true
loader:
  dir: /data/raw
  limit: 1000
  columns:
    - {name: id, type: string}
    - {name: loan_amnt, type: float64}
output:
  path: /data/loans.parquet
`)
	t.Setenv("LOANPREP_PIPELINE_SENTINEL", "-7")
	t.Setenv("LOANPREP_LOADER_FILES", "a.csv,b.csv")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, -7.0, cfg.Pipeline.Sentinel)
	assert.True(t, cfg.Pipeline.StrictTerm)
	assert.Equal(t, "/data/raw", cfg.Loader.Dir)
	assert.Equal(t, int64(1000), cfg.Loader.Limit)
	assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.Loader.Files)
	assert.Equal(t, []tables.ColumnSpec{
		{Name: "id", Type: tables.String},
		{Name: "loan_amnt", Type: tables.Float64},
	}, cfg.Loader.Columns)

	cutoff, err := cfg.Pipeline.Cutoff()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC), cutoff)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  sentinal: -1\n")

	_, err := config.Load(path)

	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tcs := []struct {
		name string
		edit func(c *config.Config)
	}{
		{name: "bad cutoff", edit: func(c *config.Config) { c.Pipeline.IssueCutoff = "Jan-2010" }},
		{name: "s3 without bucket", edit: func(c *config.Config) {
			c.Loader.Source = config.SourceS3
			c.Loader.Region = "us-east-1"
		}},
		{name: "unknown source", edit: func(c *config.Config) { c.Loader.Source = "ftp" }},
		{name: "negative limit", edit: func(c *config.Config) { c.Loader.Limit = -1 }},
		{name: "unknown column type", edit: func(c *config.Config) {
			c.Loader.Columns = []tables.ColumnSpec{{Name: "id", Type: "decimal"}}
		}},
		{name: "no columns", edit: func(c *config.Config) { c.Loader.Columns = nil }},
		{name: "bad log level", edit: func(c *config.Config) { c.Logging.Level = "loud" }},
		{name: "missing benchmarks file", edit: func(c *config.Config) {
			c.Pipeline.Benchmarks = filepath.Join(t.TempDir(), "absent.yaml")
		}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.edit(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPipelineConfig_Options(t *testing.T) {
	benchmarks := writeConfig(t, "series:\n  - name: treasury_3y\n    observations:\n      - {month: 2015-12, rate: 1.31}\n")

	cfg := config.Default()
	cfg.Pipeline.Benchmarks = benchmarks
	cfg.Pipeline.Parallel = true

	opts, err := cfg.Pipeline.Options(nil)
	require.NoError(t, err)

	require.NotNil(t, opts.Sentinel)
	assert.Equal(t, -99.0, *opts.Sentinel)
	assert.True(t, opts.Parallel)
	assert.Equal(t, time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC), opts.IssueCutoff)
	assert.NotNil(t, opts.Enricher)
}

func TestLoaderConfig_ResolveFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), nil, 0o644))

	cfg := config.Default()
	cfg.Loader.Dir = dir

	src, err := cfg.Loader.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loader.Dir(dir), src)

	files, err := cfg.Loader.ResolveFiles(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, files)

	cfg.Loader.Files = []string{"b.csv"}
	files, err = cfg.Loader.ResolveFiles(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.csv"}, files)
}
