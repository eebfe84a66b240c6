// Package report writes a spreadsheet describing one cleaning run: what each
// stage did to the row count and what the prepared columns hold.
package report

import (
	"fmt"
	"github.com/willbeason/loan-prep/pkg/pipeline"
	"github.com/willbeason/loan-prep/pkg/profile"
	"github.com/xuri/excelize/v2"
	"strings"
)

const (
	StagesSheet  = "stages"
	ColumnsSheet = "columns"

	// defaultSheet is the sheet excelize creates with every new file.
	defaultSheet = "Sheet1"
)

var (
	stageHeader  = []any{"stage", "rows in", "rows out", "rows dropped", "columns", "seconds"}
	columnHeader = []any{"column", "arrow type", "narrowest type", "rows", "nulls", "levels", "description"}
)

// Build lays out the stage statistics and column profiles in a new workbook.
// The caller closes the file.
func Build(stages []pipeline.StageStat, columns []profile.Column) (*excelize.File, error) {
	f := excelize.NewFile()

	err := f.SetSheetName(defaultSheet, StagesSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("naming %q sheet: %w", StagesSheet, err)
	}

	stageRows := make([][]any, 0, len(stages))
	for _, s := range stages {
		stageRows = append(stageRows, []any{
			s.Name, s.RowsIn, s.RowsOut, s.RowsIn - s.RowsOut, s.Columns, s.Duration.Seconds(),
		})
	}
	err = writeSheet(f, StagesSheet, stageHeader, stageRows)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	_, err = f.NewSheet(ColumnsSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("adding %q sheet: %w", ColumnsSheet, err)
	}

	columnRows := make([][]any, 0, len(columns))
	for _, c := range columns {
		kind := ""
		if c.Field != nil {
			kind = c.Field.Kind()
		}
		columnRows = append(columnRows, []any{
			c.Name, c.Type.String(), kind, c.Rows, c.Nulls, strings.Join(c.Levels(), "|"), c.Comment,
		})
	}
	err = writeSheet(f, ColumnsSheet, columnHeader, columnRows)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return f, nil
}

// Write saves the workbook built from stages and columns to path.
func Write(path string, stages []pipeline.StageStat, columns []profile.Column) error {
	f, err := Build(stages, columns)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	err = f.SaveAs(path)
	if err != nil {
		return fmt.Errorf("saving report %q: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	err := f.SetSheetRow(sheet, "A1", &header)
	if err != nil {
		return fmt.Errorf("writing %q header: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(sheet, cell, &rows[i])
		if err != nil {
			return fmt.Errorf("writing %q row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
