// Package apperr defines the error categories shared by the console components.
package apperr

import "errors"

var (
	// ErrValidation indicates malformed operator input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a missing file or backup.
	ErrNotFound = errors.New("not found")
	// ErrIO indicates a filesystem failure.
	ErrIO = errors.New("i/o failure")
	// ErrBackup indicates that an archive, dump or restore step failed.
	ErrBackup = errors.New("backup failed")
	// ErrConfirmationDeclined indicates the operator aborted a destructive action.
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

// IsDeclined reports whether err is an operator abort rather than a failure.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrConfirmationDeclined)
}
