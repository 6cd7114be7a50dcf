// Package workbook persists scraped rate tables into a single xlsx file,
// one worksheet per date.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ratescraper/models"
)

// DuplicatePolicy decides what happens when a date's sheet already exists.
type DuplicatePolicy string

const (
	DuplicateSkip    DuplicatePolicy = "skip"
	DuplicateReplace DuplicatePolicy = "replace"
	DuplicateError   DuplicatePolicy = "error"
)

// ParsePolicy maps a config value to a DuplicatePolicy. Empty means skip.
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case "":
		return DuplicateSkip, nil
	case DuplicateSkip, DuplicateReplace, DuplicateError:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate sheet policy %q", s)
	}
}

// Writer is a single session over the output workbook. Nothing reaches
// the target path until Close.
type Writer struct {
	path        string
	file        *excelize.File
	policy      DuplicatePolicy
	appending   bool
	placeholder string
	written     []string
	closed      bool
}

// Open decides once whether this session appends to an existing workbook
// or creates a new one.
func Open(path string, policy DuplicatePolicy) (*Writer, error) {
	w := &Writer{path: path, policy: policy}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("output path %s is a directory", path)
		}
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
		w.file = f
		w.appending = true
	case errors.Is(err, os.ErrNotExist):
		w.file = excelize.NewFile()
		w.placeholder = w.file.GetSheetName(0)
	default:
		return nil, fmt.Errorf("failed to stat workbook %s: %w", path, err)
	}

	return w, nil
}

// Appending reports whether the session opened an existing file.
func (w *Writer) Appending() bool {
	return w.appending
}

// Sheets lists every sheet currently in the session, excluding the
// placeholder of a fresh file.
func (w *Writer) Sheets() []string {
	var sheets []string
	for _, name := range w.file.GetSheetList() {
		if name != w.placeholder {
			sheets = append(sheets, name)
		}
	}
	return sheets
}

// WriteSheet renders the table onto a sheet named after its date, rows from
// A1 with no header. It reports false when an existing sheet was kept under
// the skip policy.
func (w *Writer) WriteSheet(table models.RateTable) (bool, error) {
	if w.closed {
		return false, ErrClosed
	}

	name := table.SheetName()
	idx, err := w.file.GetSheetIndex(name)
	if err != nil {
		return false, &SheetError{Sheet: name, Op: "create", Err: err}
	}

	if idx != -1 {
		switch w.policy {
		case DuplicateReplace:
			if err := w.replaceSheet(name); err != nil {
				return false, err
			}
		case DuplicateError:
			return false, &SheetError{Sheet: name, Op: "create", Err: ErrSheetExists}
		default:
			return false, nil
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return false, &SheetError{Sheet: name, Op: "create", Err: err}
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return false, &SheetError{Sheet: name, Op: "write", Err: err}
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := w.file.SetSheetRow(name, cell, &values); err != nil {
			return false, &SheetError{Sheet: name, Op: "write", Err: err}
		}
	}

	if w.placeholder != "" {
		if err := w.file.DeleteSheet(w.placeholder); err != nil {
			return false, &SheetError{Sheet: w.placeholder, Op: "delete", Err: err}
		}
		w.placeholder = ""
		if idx, err := w.file.GetSheetIndex(name); err == nil && idx >= 0 {
			w.file.SetActiveSheet(idx)
		}
	}

	w.written = append(w.written, name)
	return true, nil
}

// replaceSheet swaps name for an empty sheet of the same name. The new sheet
// goes to the end of the workbook.
func (w *Writer) replaceSheet(name string) error {
	tmp := "~" + name
	if _, err := w.file.NewSheet(tmp); err != nil {
		return &SheetError{Sheet: name, Op: "create", Err: err}
	}
	if err := w.file.DeleteSheet(name); err != nil {
		return &SheetError{Sheet: name, Op: "delete", Err: err}
	}
	if err := w.file.SetSheetName(tmp, name); err != nil {
		return &SheetError{Sheet: name, Op: "create", Err: err}
	}
	return nil
}

// Close commits the session exactly once by writing a temporary file next
// to the target and renaming it into place. A session that wrote nothing
// leaves the disk untouched.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.file.Close()

	if len(w.written) == 0 {
		return nil
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rates-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := w.file.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to commit workbook %s: %w", w.path, err)
	}
	return nil
}

// ReadSheets lists the sheet names of the workbook at path.
func ReadSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadRows returns the grid of one sheet. A missing sheet yields ErrSheetNotFound.
func ReadRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}
	if idx == -1 {
		return nil, &SheetError{Sheet: sheet, Op: "read", Err: ErrSheetNotFound}
	}
	return f.GetRows(sheet)
}
