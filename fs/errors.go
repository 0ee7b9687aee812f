package fs

import (
	"errors"
	"os"

	. "github.com/warpfork/go-errcat"
	"golang.org/x/sys/unix"
)

type ErrorCategory string

const (
	ErrNotExists  ErrorCategory = "fs-not-exists"  // Returned when a path does not exist.
	ErrPermission ErrorCategory = "fs-permission"  // Returned when permission is denied on a path.
	ErrRecursion  ErrorCategory = "fs-recursion"   // Returned when symlinks form a loop.
	ErrNotDir     ErrorCategory = "fs-not-dir"     // Returned when a path segment that must be a directory isn't.
	ErrIOUnknown  ErrorCategory = "fs-io-unknown"  // Catchall.
)

/*
	Attempt to categorize an error returned by the os or unix packages.

	Nil in, nil out.
*/
func NormalizeIOError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return Errorf(ErrNotExists, "%s", err)
	case errors.Is(err, os.ErrPermission):
		return Errorf(ErrPermission, "%s", err)
	case errors.Is(err, unix.ENOTDIR):
		return Errorf(ErrNotDir, "%s", err)
	case errors.Is(err, unix.ELOOP):
		return Errorf(ErrRecursion, "%s", err)
	default:
		return Errorf(ErrIOUnknown, "%s", err)
	}
}
