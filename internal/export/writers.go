package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the records in Excel exports
const SheetName = "Cote Dunare"

// WriteJSON writes the envelope indented, keeping diacritics unescaped
func WriteJSON(w io.Writer, env Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(env)
}

// WriteCSV writes a header row and one row per record
func WriteCSV(w io.Writer, records []entities.MeasurementRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		vals := values(rec)
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = text(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes the records to a worksheet with column widths fitted to
// their content, followed by the longitudinal profile sheet
func WriteExcel(w io.Writer, records []entities.MeasurementRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	rows := make([][]any, len(records))
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for i, rec := range records {
		rows[i] = values(rec)
		for j, v := range rows[i] {
			if v == nil {
				rows[i][j] = ""
			}
			widths[j] = max(widths[j], utf8.RuneCountInString(text(v)))
		}
	}

	// Widths must be set before the first row is streamed.
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, float64(width+2)); err != nil {
			return err
		}
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if err := addProfileSheet(f, Profile(records)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
