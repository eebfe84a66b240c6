// Package config loads run settings for the loan-prep commands.
//
// Values come from Default, then an optional YAML file, then environment
// variables prefixed LOANPREP (for example LOANPREP_PIPELINE_SENTINEL). Command
// flags are applied by the caller before Validate.
package config

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/willbeason/loan-prep/pkg/features"
	"github.com/willbeason/loan-prep/pkg/loader"
	"github.com/willbeason/loan-prep/pkg/missing"
	"github.com/willbeason/loan-prep/pkg/pipeline"
	"github.com/willbeason/loan-prep/pkg/tables"
	"gopkg.in/yaml.v2"
	"log/slog"
	"os"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOANPREP"

// CutoffLayout is how the issue date cutoff is written.
const CutoffLayout = "2006-01"

const (
	SourceDir = "dir"
	SourceS3  = "s3"
)

type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Loader   LoaderConfig   `yaml:"loader"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PipelineConfig struct {
	Sentinel     float64  `yaml:"sentinel"`
	IssueCutoff  string   `yaml:"issue_cutoff" split_words:"true" validate:"required,datetime=2006-01"`
	StrictTerm   bool     `yaml:"strict_term" split_words:"true"`
	Parallel     bool     `yaml:"parallel"`
	Benchmarks   string   `yaml:"benchmarks" validate:"omitempty,file"`
	Categoricals []string `yaml:"categoricals"`
}

type LoaderConfig struct {
	Source string `yaml:"source" validate:"oneof=dir s3"`
	Dir    string `yaml:"dir" validate:"required_if=Source dir"`
	Bucket string `yaml:"bucket" validate:"required_if=Source s3"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region" validate:"required_if=Source s3"`

	// Files lists the files to read; empty means every CSV file in the source.
	Files []string `yaml:"files"`
	Limit int64    `yaml:"limit" validate:"gte=0"`

	Columns []tables.ColumnSpec `yaml:"columns" ignored:"true" validate:"required,min=1,dive"`
}

type OutputConfig struct {
	Path    string `yaml:"path" validate:"required"`
	Report  string `yaml:"report"`
	Metrics string `yaml:"metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			Sentinel:     missing.DefaultSentinel,
			IssueCutoff:  pipeline.DefaultIssueCutoff.Format(CutoffLayout),
			Categoricals: append([]string(nil), tables.DefaultCategoricals...),
		},
		Loader: LoaderConfig{
			Source:  SourceDir,
			Dir:     ".",
			Columns: append([]tables.ColumnSpec(nil), tables.DefaultColumns...),
		},
		Output: OutputConfig{
			Path: tables.LoansName + tables.ParquetExt,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults
// and then applies environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
		err = yaml.UnmarshalStrict(data, &cfg)
		if err != nil {
			return nil, fmt.Errorf("decoding config %q: %w", path, err)
		}
	}

	err := envconfig.Process(EnvPrefix, &cfg)
	if err != nil {
		return nil, fmt.Errorf("loading config from env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func (c PipelineConfig) Cutoff() (time.Time, error) {
	cutoff, err := time.Parse(CutoffLayout, c.IssueCutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing issue cutoff %q: %w", c.IssueCutoff, err)
	}
	return cutoff, nil
}

// Options builds pipeline options, loading benchmark series if configured.
func (c PipelineConfig) Options(logger *slog.Logger) (pipeline.Options, error) {
	cutoff, err := c.Cutoff()
	if err != nil {
		return pipeline.Options{}, err
	}

	featureOpts := features.DefaultOptions()
	featureOpts.Sentinel = c.Sentinel
	featureOpts.Categoricals = c.Categoricals
	if c.Benchmarks != "" {
		featureOpts.Benchmarks, err = features.LoadBenchmarks(c.Benchmarks)
		if err != nil {
			return pipeline.Options{}, err
		}
	}

	return pipeline.Options{
		Sentinel:    pipeline.Sentinel(c.Sentinel),
		IssueCutoff: cutoff,
		StrictTerm:  c.StrictTerm,
		Parallel:    c.Parallel,
		Enricher:    features.NewGenerator(featureOpts),
		Logger:      logger,
	}, nil
}

// Open returns the configured loan file source.
func (c LoaderConfig) Open(ctx context.Context) (loader.Source, error) {
	switch c.Source {
	case SourceS3:
		return loader.NewS3(ctx, c.Region, c.Bucket, c.Prefix)
	case SourceDir, "":
		return loader.Dir(c.Dir), nil
	default:
		return nil, fmt.Errorf("unknown loader source %q", c.Source)
	}
}

// ResolveFiles returns Files, or every CSV file in src when Files is empty.
func (c LoaderConfig) ResolveFiles(ctx context.Context, src loader.Source) ([]string, error) {
	if len(c.Files) > 0 {
		return c.Files, nil
	}
	return src.List(ctx, tables.CSVExt)
}
