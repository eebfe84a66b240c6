package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/willbeason/loan-prep/pkg/logging"
	"github.com/willbeason/loan-prep/pkg/parquetio"
	"github.com/willbeason/loan-prep/pkg/sample"
	"github.com/willbeason/loan-prep/pkg/tables"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const service = "subsample"

const (
	FlagPartitions = "partitions"
	FlagSeed       = "seed"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
)

func init() {
	cmd.Flags().Float64Slice(FlagPartitions, []float64{0.01, 0.05}, "dataset partitions")
	cmd.Flags().Int64(FlagSeed, 0, "random seed")
	cmd.Flags().String(FlagLogLevel, "info", "debug, info, warn or error")
	cmd.Flags().String(FlagLogFormat, logging.FormatJSON, "json or text")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "subsample LOANS_PARQUET OUT_DIR",
	Short:   "splits prepared loans into random, disjoint subsamples",
	Args:    cobra.ExactArgs(2),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	inPath := args[0]
	outDir := args[1]

	level, err := cmd.Flags().GetString(FlagLogLevel)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString(FlagLogFormat)
	if err != nil {
		return err
	}
	logger := logging.New(service, level, format, os.Stderr)

	err = os.MkdirAll(outDir, os.ModePerm)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	partitions, err := cmd.Flags().GetFloat64Slice(FlagPartitions)
	if err != nil {
		return fmt.Errorf("getting partitions: %w", err)
	}

	seed, err := getSeed(cmd)
	if err != nil {
		return fmt.Errorf("getting seed: %w", err)
	}

	loans, err := parquetio.Read(ctx, inPath, nil)
	if err != nil {
		return err
	}
	defer loans.Release()

	parts, err := sample.Partition(ctx, loans, partitions, seed)
	if err != nil {
		return fmt.Errorf("partitioning loans: %w", err)
	}
	defer func() {
		for _, part := range parts {
			part.Release()
		}
	}()

	outPath := filepath.Join(outDir, tables.LoansName+tables.ParquetExt)
	ext := filepath.Ext(outPath)
	for i, part := range parts {
		outPathI := fmt.Sprintf("%s_%d%s", outPath[:len(outPath)-len(ext)], i, ext)
		err = parquetio.Write(outPathI, part)
		if err != nil {
			return fmt.Errorf("writing partition %d: %w", i, err)
		}
		logger.Info("wrote partition",
			slog.Int("partition", i),
			slog.Float64("fraction", partitions[i]),
			slog.Int64("rows", part.NumRows()),
			slog.String("path", outPathI))
	}

	logger.Info("subsampled loans", slog.Int64("rows", loans.NumRows()), slog.Int64("seed", seed))
	return nil
}

func getSeed(cmd *cobra.Command) (int64, error) {
	// Check if the user set the seed manually.
	seedSet := false
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == FlagSeed {
			seedSet = true
		}
	})

	if !seedSet {
		return time.Now().UnixNano(), nil
	}
	return cmd.Flags().GetInt64(FlagSeed)
}
