// Package parquetio stores loan tables as gzip-compressed Parquet files.
package parquetio

import (
	"compress/gzip"
	"context"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/willbeason/loan-prep/pkg/frame"
	"os"
)

const batchSize = 1 << 20

// Write stores f at path. The Arrow schema, including field comments and the
// table key, is embedded in the file.
func Write(path string, f *frame.Frame) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	// Don't close outFile; parquet handles closing it.
	writer, err := pqarrow.NewFileWriter(
		f.Schema(),
		outFile,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Gzip),
			parquet.WithCompressionLevel(gzip.BestCompression)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		_ = outFile.Close()
		return fmt.Errorf("creating writer for %q: %w", path, err)
	}

	err = writer.Write(f.Record())
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing %q: %w", path, err)
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("closing %q: %w", path, err)
	}
	return nil
}

// Read loads the Parquet file at path into a single frame.
func Read(ctx context.Context, path string, mem memory.Allocator) (*frame.Frame, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	inFileReader, err := file.OpenParquetFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %q: %w", path, err)
	}
	defer func() {
		_ = inFileReader.Close()
	}()

	inReader, err := pqarrow.NewFileReader(inFileReader,
		pqarrow.ArrowReadProperties{Parallel: true, BatchSize: batchSize},
		mem,
	)
	if err != nil {
		return nil, fmt.Errorf("creating pqarrow FileReader: %w", err)
	}

	table, err := inReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	defer table.Release()

	schema := table.Schema()
	columns := make([]arrow.Array, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		chunks := table.Column(i).Data().Chunks()

		var column arrow.Array
		switch len(chunks) {
		case 0:
			column = array.MakeArrayOfNull(mem, schema.Field(i).Type, 0)
		case 1:
			column = chunks[0]
			column.Retain()
		default:
			column, err = array.Concatenate(chunks, mem)
			if err != nil {
				for _, c := range columns {
					c.Release()
				}
				return nil, fmt.Errorf("concatenating %q: %w", schema.Field(i).Name, err)
			}
		}
		columns = append(columns, column)
	}

	record := array.NewRecord(schema, columns, table.NumRows())
	for _, c := range columns {
		c.Release()
	}
	return frame.New(mem, record), nil
}
