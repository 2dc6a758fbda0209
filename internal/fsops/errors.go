package fsops

import (
	"errors"
	"io/fs"
)

// Error kinds shared by the scanner and the cleaner. Concrete errors wrap
// one of these so callers can branch with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrAccess      = errors.New("access denied")
	ErrValidation  = errors.New("validation failed")
	ErrStaleTarget = errors.New("target no longer exists")
)

// Classify returns the error kind for a raw filesystem error, or nil when
// the error does not map to a known kind.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleTarget):
		return ErrStaleTarget
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, ErrAccess), errors.Is(err, fs.ErrPermission):
		return ErrAccess
	}
	return nil
}
