package workbook

import (
	"errors"
	"fmt"
)

// ErrSheetExists indicates the workbook already has a sheet for the date.
var ErrSheetExists = errors.New("sheet already exists")

// ErrSheetNotFound indicates a requested sheet is absent.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrClosed is returned when writing to a committed workbook.
var ErrClosed = errors.New("workbook already closed")

// SheetError wraps a failure on a single sheet.
type SheetError struct {
	Sheet string
	Op    string // "create", "write", "delete", "read"
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (%s): %v", e.Sheet, e.Op, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}
