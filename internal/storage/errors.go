package storage

import (
	"errors"
	"io/fs"
	"os"
)

// Sentinel errors for the backend contract. Callers match with errors.Is;
// implementations wrap with context via fmt.Errorf("...: %w", Err...).
var (
	// ErrNotFound reports a path that does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrPermission reports an access-denied failure from the platform.
	ErrPermission = errors.New("storage: permission denied")

	// ErrIO is the catch-all for platform failures that are neither
	// absence nor permission.
	ErrIO = errors.New("storage: io error")

	// ErrUnsupported reports a capability the active backend cannot
	// implement (e.g. archive export on the web backend).
	ErrUnsupported = errors.New("storage: unsupported operation")
)

// WrapOS translates an os/fs error into the backend taxonomy, preserving
// the original error in the chain.
func WrapOS(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, os.ErrPermission):
		return errors.Join(ErrPermission, err)
	default:
		return errors.Join(ErrIO, err)
	}
}
