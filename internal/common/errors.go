// Package common defines sentinel errors shared by the storage engine, its
// repositories and its callers. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Tree validation errors. These are caller-correctable and never retried.
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidTarget       = errors.New("invalid target")
	ErrCycleDetected       = errors.New("cycle detected")
	ErrNameConflict        = errors.New("name already taken")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrFileTooLarge        = errors.New("file too large")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrSizeMismatch        = errors.New("content size does not match declared size")

	// Physical storage errors.
	ErrStorageWrite     = errors.New("storage write error")
	ErrStorageRead      = errors.New("storage read error")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrNotSupported     = errors.New("not supported by storage backend")
)

// IsValidation reports whether err is a caller-correctable validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidName, ErrInvalidTarget, ErrCycleDetected, ErrQuotaExceeded,
		ErrFileTooLarge, ErrExtensionNotAllowed, ErrSizeMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
