/*
xlsx.go - XLSX decode and encode

PURPOSE:
  Reads workbook uploads cell-by-cell in raw form (no number formatting,
  so serial dates stay as their underlying numbers), and writes the
  enriched table back as a workbook with the derived columns filled in
  the legacy highlight color.
*/
package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/sla-engine/engine"
)

// highlightColor is the fill applied to derived columns on export, the
// same light blue the legacy sheets used.
const highlightColor = "ADD8E6"

// DecodeXLSX reads the first sheet of a workbook. Cells are read raw:
// a date cell arrives as its serial number, not a formatted string.
func DecodeXLSX(r io.Reader) (engine.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return engine.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return engine.Table{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return engine.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return engine.Table{}, fmt.Errorf("export has no header row")
	}

	return engine.Table{Headers: rows[0], Rows: rows[1:]}, nil
}

// EncodeXLSX writes the table as a single-sheet workbook. Columns whose
// header appears in highlight get the legacy fill across the header and
// every data cell.
func EncodeXLSX(w io.Writer, t engine.Table, sheetName string, highlight []string) error {
	if sheetName == "" {
		sheetName = "Report"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, sheetName, 1, t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, sheetName, i+2, row); err != nil {
			return err
		}
	}

	if err := applyHighlight(f, sheetName, t, highlight); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	anchor, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, anchor, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// applyHighlight fills the named columns top to bottom.
func applyHighlight(f *excelize.File, sheet string, t engine.Table, highlight []string) error {
	if len(highlight) == 0 || len(t.Headers) == 0 {
		return nil
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{highlightColor}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}

	highlighted := make(map[string]bool, len(highlight))
	for _, name := range highlight {
		highlighted[name] = true
	}

	lastRow := len(t.Rows) + 1
	for col, header := range t.Headers {
		if !highlighted[header] {
			continue
		}
		top, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address column %d: %w", col+1, err)
		}
		bottom, err := excelize.CoordinatesToCellName(col+1, lastRow)
		if err != nil {
			return fmt.Errorf("failed to address column %d: %w", col+1, err)
		}
		if err := f.SetCellStyle(sheet, top, bottom, styleID); err != nil {
			return fmt.Errorf("failed to style column %q: %w", header, err)
		}
	}
	return nil
}
