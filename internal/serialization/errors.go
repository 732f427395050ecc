package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch    = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge      = errors.New("header exceeds maximum size")
	ErrInvalidMagic        = errors.New("invalid magic bytes")
	ErrUnsupportedVersion  = errors.New("unsupported format version")
	ErrTooManyInstructions = errors.New("too many instructions in file")
	ErrInvalidRecord       = errors.New("invalid instruction record")
)

// RecordError reports a malformed instruction record.
type RecordError struct {
	Index   int    // record position in the instruction section
	Details string // what is wrong with it
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Details)
}

// Unwrap returns ErrInvalidRecord.
func (e *RecordError) Unwrap() error {
	return ErrInvalidRecord
}
