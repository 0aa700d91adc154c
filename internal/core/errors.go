package core

import "errors"

var (
	// ErrNoFile is returned when a conversion is requested without a file.
	ErrNoFile = errors.New("no file provided")

	// ErrNoRecords is returned when an export contains no identifiable records.
	ErrNoRecords = errors.New("no valid records found")

	// ErrNoDigits is returned when an identifier has no digits to order by.
	ErrNoDigits = errors.New("identifier has no digits")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrDecode is returned when export bytes cannot be decoded. The Latin-1
	// fallback accepts every byte, so seeing it indicates a bug.
	ErrDecode = errors.New("encoding error")

	// ErrCellTooLong is returned when a field value exceeds the length a
	// spreadsheet cell can hold.
	ErrCellTooLong = errors.New("value too long for a spreadsheet cell")

	// ErrOutputNotFound is returned when a requested listing does not exist.
	ErrOutputNotFound = errors.New("listing not found")
)
