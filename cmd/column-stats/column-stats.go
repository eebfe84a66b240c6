package main

import (
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/loan-prep/pkg/config"
	"github.com/willbeason/loan-prep/pkg/loader"
	"github.com/willbeason/loan-prep/pkg/logging"
	"github.com/willbeason/loan-prep/pkg/parquetio"
	"github.com/willbeason/loan-prep/pkg/profile"
	"github.com/willbeason/loan-prep/pkg/progress"
	"github.com/willbeason/loan-prep/pkg/tables"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const service = "column-stats"

const (
	FlagConfig = "config"
	FlagOut    = "out"
	FlagLimit  = "limit"
)

func init() {
	cmd.Flags().String(FlagConfig, "", "YAML config file")
	cmd.Flags().String(FlagOut, "", "output file path (default: stdout)")
	cmd.Flags().Int64(FlagLimit, 0, "maximum rows read per file (0: all)")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "column-stats FILE|DIR",
	Short:   "Collect statistics about the columns of loan CSV or Parquet files",
	Args:    cobra.ExactArgs(1),
	Version: "0.1.0",
	RunE:    runE,
}

var ErrColumnStats = errors.New("getting column statistics")

func runE(cmd *cobra.Command, args []string) error {
	inPath := args[0]

	configPath, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrColumnStats, err)
	}
	logger := logging.New(service, cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	limit, err := cmd.Flags().GetInt64(FlagLimit)
	if err != nil {
		return err
	}

	stat, err := os.Stat(inPath)
	if err != nil {
		return fmt.Errorf("%w: stat %q: %w", ErrColumnStats, inPath, err)
	}

	var columns []profile.Column
	switch {
	case stat.IsDir():
		columns, err = profileCSV(cmd, loader.Dir(inPath), nil, cfg.Loader.Columns, limit, logger)
	case strings.HasSuffix(inPath, tables.ParquetExt):
		columns, err = profileParquet(cmd, inPath)
	default:
		src := loader.Dir(filepath.Dir(inPath))
		columns, err = profileCSV(cmd, src, []string{filepath.Base(inPath)}, cfg.Loader.Columns, limit, logger)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrColumnStats, err)
	}

	outPath, err := cmd.Flags().GetString(FlagOut)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		outFile, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrColumnStats, err)
		}
		defer func() {
			_ = outFile.Close()
		}()
		out = outFile
	}

	for _, column := range columns {
		_, err = fmt.Fprintln(out, column)
		if err != nil {
			return err
		}
	}

	return nil
}

func profileCSV(cmd *cobra.Command, src loader.Source, files []string, specs []tables.ColumnSpec, limit int64, logger *slog.Logger) ([]profile.Column, error) {
	ctx := cmd.Context()

	var err error
	if files == nil {
		files, err = src.List(ctx, tables.CSVExt)
		if err != nil {
			return nil, err
		}
	}

	f, err := loader.Load(ctx, src, files, specs, limit,
		loader.WithLogger(logger),
		loader.WithProgress(progress.New(os.Stderr)))
	if err != nil {
		return nil, err
	}
	defer f.Release()

	return profile.Frame(f)
}

func profileParquet(cmd *cobra.Command, path string) ([]profile.Column, error) {
	f, err := parquetio.Read(cmd.Context(), path, nil)
	if err != nil {
		return nil, err
	}
	defer f.Release()

	return profile.Frame(f)
}
