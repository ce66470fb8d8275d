package grid

import "errors"

var (
	// ErrLastSheet is returned when removing the only remaining sheet.
	// A workbook always has at least one sheet; the operation is a
	// no-op, not a partial mutation.
	ErrLastSheet = errors.New("cannot remove the last sheet")

	// ErrSheetNotFound is returned for operations on an unknown sheet id.
	ErrSheetNotFound = errors.New("sheet not found")
)
