package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes t to a single-sheet workbook.
func WriteXLSX(w io.Writer, sheetName string, t Table) error {
	const op = "WriteXLSX"

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("%s: failed to create sheet: %w", op, err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("%s: failed to remove default sheet: %w", op, err)
		}
	}

	for col, header := range t.Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("%s: failed to write header: %w", op, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil && len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, bold)
	}

	for r, row := range t.Rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("%s: failed to write %s: %w", op, cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
