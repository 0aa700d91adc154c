package core

// exporter.go writes parsed records to an .xlsx workbook.
//
// Cells are written as plain strings. Identifiers such as "0012" or
// shelf marks such as "1/2" must survive as typed; letting the spreadsheet
// infer numbers or dates would alter them.
//
// A cell holds at most excelize.TotalCellChars characters. Longer values
// fail the export with a CellTooLongError instead of being cut. Control
// characters that XML cannot carry are written as U+FFFD and counted by
// CheckCells. Tabs and line breaks are kept.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds the record listing.
const SheetName = "Sheet1"

// Workbooks are written as .export-*.xlsx and renamed when complete. Sweep
// removes stale ones left by a crash.
const (
	tempWorkbookPrefix = ".export-"
	tempWorkbookSuffix = ".xlsx"
)

// CellTooLongError reports a value longer than a spreadsheet cell holds.
type CellTooLongError struct {
	MFN    string
	Column string
	Length int // in characters
}

func (e *CellTooLongError) Error() string {
	return fmt.Sprintf("%v: MFN %q, column %s has %d characters (max %d)",
		ErrCellTooLong, e.MFN, e.Column, e.Length, excelize.TotalCellChars)
}

func (e *CellTooLongError) Unwrap() error { return ErrCellTooLong }

// CheckCells validates records for export. It returns the number of cells
// whose control characters will be replaced, or a CellTooLongError for
// the first value that does not fit in a cell.
func CheckCells(records []Record) (replaced int, err error) {
	for _, rec := range records {
		for f, value := range rec.Row() {
			if n := utf8.RuneCountInString(value); n > excelize.TotalCellChars {
				return 0, &CellTooLongError{MFN: rec.MFN(), Column: Field(f).String(), Length: n}
			}
			if strings.IndexFunc(value, invalidXMLRune) >= 0 {
				replaced++
			}
		}
	}
	return replaced, nil
}

// invalidXMLRune reports runes that XML 1.0 documents cannot contain.
func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20:
		return true
	default:
		return r == 0xFFFE || r == 0xFFFF
	}
}

// cellText returns value with invalid XML runes replaced by U+FFFD.
func cellText(value string) string {
	if strings.IndexFunc(value, invalidXMLRune) < 0 {
		return value
	}
	return strings.Map(func(r rune) rune {
		if invalidXMLRune(r) {
			return utf8.RuneError
		}
		return r
	}, value)
}

// Table renders records as rows: the canonical header first, then one row
// per record in source order.
func Table(records []Record) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, ColumnNames())
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	return rows
}

// WriteSpreadsheet writes records to an .xlsx file at path, replacing any
// existing file. The workbook is written to a temporary file in the same
// directory and renamed into place, so a failed export leaves nothing
// behind at path. Values that do not fit in a cell fail the export before
// anything is written.
func WriteSpreadsheet(records []Record, path string) error {
	if _, err := CheckCells(records); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range Table(records) {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellStr(SheetName, cell, cellText(value)); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tempWorkbookPrefix+"*"+tempWorkbookSuffix)
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move workbook into place: %w", err)
	}
	return nil
}

// ReadTable reads the record listing back from an exported workbook.
// Rows are padded to the canonical width, since trailing empty cells are
// not stored in the file.
func ReadTable(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	for i, row := range rows {
		for len(row) < int(fieldCount) {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows, nil
}

// ReadHeader returns the header row of an exported workbook.
func ReadHeader(path string) ([]string, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s has no header row", filepath.Base(path))
	}
	return rows[0], nil
}

// isTempWorkbook reports whether name is an unfinished workbook.
func isTempWorkbook(name string) bool {
	return strings.HasPrefix(name, tempWorkbookPrefix) && strings.HasSuffix(name, tempWorkbookSuffix)
}
