package loader

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
)

// padRows streams the CSV rows of r, header first, with short rows padded by
// empty fields to the header's width. Loan files end with one-field summary
// lines, and some hold one-field notes between blocks of loans; padded, these
// become rows with every allowlisted field null. Blank lines are dropped.
// Rows wider than the header are an error.
//
// The caller must Close the returned reader before closing r.
func padRows(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		pw.CloseWithError(copyPadded(pw, r))
	}()

	return &paddedReader{PipeReader: pr, done: done}
}

type paddedReader struct {
	*io.PipeReader
	done chan struct{}
}

// Close stops the padding goroutine and waits for it to exit.
func (p *paddedReader) Close() error {
	err := p.PipeReader.Close()
	<-p.done
	return err
}

func copyPadded(w io.Writer, r io.Reader) error {
	reader := stdcsv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	writer := stdcsv.NewWriter(w)

	width := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if width == 0 {
			width = len(record)
		}
		switch {
		case len(record) > width:
			line, _ := reader.FieldPos(0)
			return fmt.Errorf("record on line %d: %d fields, header has %d", line, len(record), width)
		case len(record) < width:
			record = append(record, make([]string, width-len(record))...)
		}

		err = writer.Write(record)
		if err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
