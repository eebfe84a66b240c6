package main

import (
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/loan-prep/pkg/config"
	"github.com/willbeason/loan-prep/pkg/loader"
	"github.com/willbeason/loan-prep/pkg/logging"
	"github.com/willbeason/loan-prep/pkg/metrics"
	"github.com/willbeason/loan-prep/pkg/parquetio"
	"github.com/willbeason/loan-prep/pkg/pipeline"
	"github.com/willbeason/loan-prep/pkg/profile"
	"github.com/willbeason/loan-prep/pkg/progress"
	"github.com/willbeason/loan-prep/pkg/report"
	"log/slog"
	"os"
)

const service = "prepare-loans"

const (
	FlagConfig     = "config"
	FlagDir        = "dir"
	FlagBucket     = "bucket"
	FlagRegion     = "region"
	FlagPrefix     = "prefix"
	FlagLimit      = "limit"
	FlagOut        = "out"
	FlagReport     = "report"
	FlagMetrics    = "metrics"
	FlagCutoff     = "cutoff"
	FlagSentinel   = "sentinel"
	FlagStrictTerm = "strict-term"
	FlagParallel   = "parallel"
	FlagBenchmarks = "benchmarks"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
	FlagProgress   = "progress"
)

func init() {
	defaults := config.Default()

	cmd.Flags().String(FlagConfig, "", "YAML config file")
	cmd.Flags().String(FlagDir, defaults.Loader.Dir, "directory of raw loan CSV files")
	cmd.Flags().String(FlagBucket, "", "S3 bucket of raw loan CSV files; overrides --dir")
	cmd.Flags().String(FlagRegion, "", "AWS region of --bucket")
	cmd.Flags().String(FlagPrefix, "", "key prefix within --bucket")
	cmd.Flags().Int64(FlagLimit, 0, "maximum rows read per file (0: all)")
	cmd.Flags().String(FlagOut, defaults.Output.Path, "prepared loans Parquet file")
	cmd.Flags().String(FlagReport, "", "write a stage and column report to this .xlsx file")
	cmd.Flags().String(FlagMetrics, "", "write Prometheus metrics to this textfile")
	cmd.Flags().String(FlagCutoff, defaults.Pipeline.IssueCutoff, "earliest issue month kept (YYYY-MM)")
	cmd.Flags().Float64(FlagSentinel, defaults.Pipeline.Sentinel, "value replacing missing data")
	cmd.Flags().Bool(FlagStrictTerm, false, "fail on terms other than 36 or 60 months")
	cmd.Flags().Bool(FlagParallel, false, "coerce independent columns concurrently")
	cmd.Flags().String(FlagBenchmarks, "", "YAML file of monthly benchmark rates")
	cmd.Flags().String(FlagLogLevel, defaults.Logging.Level, "debug, info, warn or error")
	cmd.Flags().String(FlagLogFormat, defaults.Logging.Format, "json or text")
	cmd.Flags().Bool(FlagProgress, false, "show per-file progress bars on stderr")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "prepare-loans [FILE...]",
	Short:   "cleans raw LendingClub loan files into a modeling table",
	Version: "0.1.0",
	RunE:    runE,
}

var ErrPrepareLoans = errors.New("preparing loans")

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	configPath, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}

	err = applyFlags(cmd, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}
	if len(args) > 0 {
		cfg.Loader.Files = args
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}

	logger := logging.New(service, cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	src, err := cfg.Loader.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: opening source: %w", ErrPrepareLoans, err)
	}
	files, err := cfg.Loader.ResolveFiles(ctx, src)
	if err != nil {
		return fmt.Errorf("%w: listing files: %w", ErrPrepareLoans, err)
	}
	logger.Info("loading loans", slog.Int("files", len(files)), slog.Int64("limit", cfg.Loader.Limit))

	loadOpts := []loader.Option{loader.WithLogger(logger)}
	showProgress, err := cmd.Flags().GetBool(FlagProgress)
	if err != nil {
		return err
	}
	if showProgress {
		loadOpts = append(loadOpts, loader.WithProgress(progress.New(os.Stderr)))
	}

	raw, err := loader.Load(ctx, src, files, cfg.Loader.Columns, cfg.Loader.Limit, loadOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}

	opts, err := cfg.Pipeline.Options(logger)
	if err != nil {
		raw.Release()
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}
	recorder := metrics.NewPipelineMetrics(service)
	opts.Recorder = recorder

	result, runErr := pipeline.Run(ctx, raw, opts)
	if cfg.Output.Metrics != "" {
		err = recorder.WriteTextfile(cfg.Output.Metrics)
		if err != nil {
			logger.Warn("writing metrics", slog.Any("error", err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, runErr)
	}
	defer result.Frame.Release()

	err = parquetio.Write(cfg.Output.Path, result.Frame)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
	}
	logger.Info("wrote prepared loans",
		slog.String("run_id", result.RunID),
		slog.String("path", cfg.Output.Path),
		slog.Int64("rows", result.Frame.NumRows()))

	if cfg.Output.Report != "" {
		columns, err := profile.Frame(result.Frame)
		if err != nil {
			return fmt.Errorf("%w: profiling columns: %w", ErrPrepareLoans, err)
		}
		err = report.Write(cfg.Output.Report, result.Stages, columns)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPrepareLoans, err)
		}
		logger.Info("wrote report", slog.String("path", cfg.Output.Report))
	}

	return nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var err error
	set := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	set(FlagDir, func() (e error) {
		cfg.Loader.Source = config.SourceDir
		cfg.Loader.Dir, e = flags.GetString(FlagDir)
		return e
	})
	set(FlagBucket, func() (e error) {
		cfg.Loader.Source = config.SourceS3
		cfg.Loader.Bucket, e = flags.GetString(FlagBucket)
		return e
	})
	set(FlagRegion, func() (e error) {
		cfg.Loader.Region, e = flags.GetString(FlagRegion)
		return e
	})
	set(FlagPrefix, func() (e error) {
		cfg.Loader.Prefix, e = flags.GetString(FlagPrefix)
		return e
	})
	set(FlagLimit, func() (e error) {
		cfg.Loader.Limit, e = flags.GetInt64(FlagLimit)
		return e
	})
	set(FlagOut, func() (e error) {
		cfg.Output.Path, e = flags.GetString(FlagOut)
		return e
	})
	set(FlagReport, func() (e error) {
		cfg.Output.Report, e = flags.GetString(FlagReport)
		return e
	})
	set(FlagMetrics, func() (e error) {
		cfg.Output.Metrics, e = flags.GetString(FlagMetrics)
		return e
	})
	set(FlagCutoff, func() (e error) {
		cfg.Pipeline.IssueCutoff, e = flags.GetString(FlagCutoff)
		return e
	})
	set(FlagSentinel, func() (e error) {
		cfg.Pipeline.Sentinel, e = flags.GetFloat64(FlagSentinel)
		return e
	})
	set(FlagStrictTerm, func() (e error) {
		cfg.Pipeline.StrictTerm, e = flags.GetBool(FlagStrictTerm)
		return e
	})
	set(FlagParallel, func() (e error) {
		cfg.Pipeline.Parallel, e = flags.GetBool(FlagParallel)
		return e
	})
	set(FlagBenchmarks, func() (e error) {
		cfg.Pipeline.Benchmarks, e = flags.GetString(FlagBenchmarks)
		return e
	})
	set(FlagLogLevel, func() (e error) {
		cfg.Logging.Level, e = flags.GetString(FlagLogLevel)
		return e
	})
	set(FlagLogFormat, func() (e error) {
		cfg.Logging.Format, e = flags.GetString(FlagLogFormat)
		return e
	})

	return err
}
