// Package loader reads raw loan CSV files into a frame.
//
// Loan files open with a one-line preamble, followed by the header row. Only
// allowlisted columns are kept, in allowlist order, and "n/a" or empty fields
// are read as null.
package loader

import (
	"bufio"
	"compress/gzip"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"github.com/willbeason/bondsmith"
	"github.com/willbeason/loan-prep/pkg/frame"
	"github.com/willbeason/loan-prep/pkg/tables"
	"io"
	"log/slog"
	"strings"
	"time"
)

// DefaultChunkSize is the number of CSV rows per Arrow record.
const DefaultChunkSize = 1 << 13

// NullValues are read as missing.
var NullValues = []string{"n/a", ""}

// ErrNoHeader is returned for a file that ends before its header row.
var ErrNoHeader = errors.New("file has no header row")

type options struct {
	mem       memory.Allocator
	progress  *mpb.Progress
	logger    *slog.Logger
	chunkSize int
}

type Option func(*options)

func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithProgress shows one bar per file, measured in bytes read.
func WithProgress(p *mpb.Progress) Option {
	return func(o *options) { o.progress = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithChunkSize(rows int) Option {
	return func(o *options) { o.chunkSize = rows }
}

// Load reads files from src and concatenates them into one frame holding the
// columns named by specs. When limit is positive at most limit rows are read
// from each file. Files ending in ".gz" are decompressed.
func Load(ctx context.Context, src Source, files []string, specs []tables.ColumnSpec, limit int64, opts ...Option) (*frame.Frame, error) {
	o := options{
		mem:       memory.DefaultAllocator,
		logger:    slog.Default(),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	chunks := make([][]arrow.Array, len(specs))
	defer func() {
		for _, column := range chunks {
			releaseAll(column)
		}
	}()

	for _, name := range files {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}

		fileChunks, rows, err := loadFile(ctx, src, name, specs, limit, &o)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", name, err)
		}
		for i := range chunks {
			chunks[i] = append(chunks[i], fileChunks[i]...)
		}
		o.logger.Info("loaded file", slog.String("file", name), slog.Int64("rows", rows))
	}

	fields := make([]arrow.Field, len(specs))
	columns := make([]arrow.Array, 0, len(specs))
	for i, spec := range specs {
		fields[i] = spec.Field()

		var column arrow.Array
		if len(chunks[i]) == 0 {
			column = array.MakeArrayOfNull(o.mem, fields[i].Type, 0)
		} else {
			var err error
			column, err = array.Concatenate(chunks[i], o.mem)
			if err != nil {
				releaseAll(columns)
				return nil, fmt.Errorf("concatenating %q: %w", spec.Name, err)
			}
		}
		columns = append(columns, column)
	}

	return frame.FromColumns(o.mem, fields, columns)
}

// loadFile returns, for each spec, the record chunks read from one file.
func loadFile(ctx context.Context, src Source, name string, specs []tables.ColumnSpec, limit int64, o *options) ([][]arrow.Array, int64, error) {
	body, size, err := src.Open(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		err := body.Close()
		if err != nil {
			o.logger.Warn("closing file", slog.String("file", name), slog.Any("error", err))
		}
	}()

	countReader := bondsmith.NewCountReader(body)
	var reader io.Reader = countReader
	if strings.HasSuffix(name, ".gz") {
		reader, err = gzip.NewReader(countReader)
		if err != nil {
			return nil, 0, fmt.Errorf("starting gzip reader stream: %w", err)
		}
	}

	buffered := bufio.NewReader(reader)
	headerLine, err := skipPreamble(buffered)
	if err != nil {
		return nil, 0, err
	}

	err = checkHeader(headerLine, specs)
	if err != nil {
		return nil, 0, err
	}

	types := make(map[string]arrow.DataType, len(specs))
	for _, spec := range specs {
		types[spec.Name] = spec.Type.DataType()
	}

	padded := padRows(io.MultiReader(strings.NewReader(headerLine), buffered))
	defer func() {
		_ = padded.Close()
	}()

	records := csv.NewInferringReader(padded,
		csv.WithAllocator(o.mem),
		csv.WithHeader(true),
		csv.WithChunk(o.chunkSize),
		csv.WithNullReader(true, NullValues...),
		csv.WithColumnTypes(types),
		csv.WithIncludeColumns(tables.Names(specs)),
	)
	defer records.Release()

	var bar *mpb.Bar
	if o.progress != nil && size > 0 {
		bar = o.progress.AddBar(size,
			mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
			mpb.PrependDecorators(decor.Name(name)),
			mpb.BarRemoveOnComplete(),
		)
	}
	lastSeen := 0
	start := time.Now()

	chunks := make([][]arrow.Array, len(specs))
	var rows int64
	for records.Next() {
		record := records.Record()

		n := record.NumRows()
		if limit > 0 && rows+n > limit {
			n = limit - rows
		}

		for i, spec := range specs {
			column, err := recordColumn(record, spec.Name)
			if err != nil {
				for _, c := range chunks {
					releaseAll(c)
				}
				return nil, 0, err
			}
			if n < record.NumRows() {
				column = array.NewSlice(column, 0, n)
			} else {
				column.Retain()
			}
			chunks[i] = append(chunks[i], column)
		}
		rows += n

		if bar != nil {
			current := int(countReader.Count())
			bar.IncrBy(current-lastSeen, time.Since(start))
			lastSeen = current
		}
		if limit > 0 && rows >= limit {
			break
		}
	}
	if bar != nil {
		// Completes the bar when reading stopped at the row limit.
		bar.IncrBy(int(size)-lastSeen, time.Since(start))
	}

	if err := records.Err(); err != nil {
		for _, c := range chunks {
			releaseAll(c)
		}
		return nil, 0, fmt.Errorf("reading rows: %w", err)
	}
	return chunks, rows, nil
}

// skipPreamble discards the first line and returns the header line.
func skipPreamble(r *bufio.Reader) (string, error) {
	_, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrNoHeader
		}
		return "", fmt.Errorf("reading preamble: %w", err)
	}

	header, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading header: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return "", ErrNoHeader
	}
	if !strings.HasSuffix(header, "\n") {
		header += "\n"
	}
	return header, nil
}

// checkHeader reports every allowlisted column absent from the header.
func checkHeader(headerLine string, specs []tables.ColumnSpec) error {
	header, err := stdcsv.NewReader(strings.NewReader(headerLine)).Read()
	if err != nil {
		return fmt.Errorf("parsing header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []error
	for _, spec := range specs {
		if !present[spec.Name] {
			missing = append(missing, frame.NotFound(spec.Name))
		}
	}
	return errors.Join(missing...)
}

func recordColumn(record arrow.Record, name string) (arrow.Array, error) {
	indices := record.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, frame.NotFound(name)
	}
	return record.Column(indices[0]), nil
}

func releaseAll(columns []arrow.Array) {
	for _, column := range columns {
		column.Release()
	}
}
