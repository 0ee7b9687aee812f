package scry

import (
	"github.com/warpfork/go-errcat"
)

// All errors raised by scry are errcat errors carrying one of these categories.
//
// Use `errcat.Category(err)` (or `CategoryOf`) to switch on them.
type ErrorCategory string

const (
	ErrUsage ErrorCategory = "scry-usage-error" // Used when the caller has given invalid arguments.

	ErrCurrentDirUnavailable        ErrorCategory = "scry-current-dir-unavailable"
	ErrInvalidRelativeInput         ErrorCategory = "scry-invalid-relative-input"       // A relative start path tried to reach beyond the filesystem root.
	ErrInaccessibleDirectory        ErrorCategory = "scry-inaccessible-directory"       // A directory could not be read, or isn't a directory.
	ErrNoRepository                 ErrorCategory = "scry-no-repository"                // The walk reached the top without any candidate.
	ErrNoRepositoryWithinCeiling    ErrorCategory = "scry-no-repository-within-ceiling" // The walk was bounded by a ceiling directory.
	ErrNoRepositoryWithinFilesystem ErrorCategory = "scry-no-repository-within-fs"      // The walk was bounded by a device boundary.
	ErrNoMatchingCeilingDirectory   ErrorCategory = "scry-no-matching-ceiling-dir"      // Ceiling dirs were given, but none of them prefixed the result.
	ErrNoTrustedRepository          ErrorCategory = "scry-no-trusted-repository"        // Candidates were found, but all were discarded for trust.
	ErrTrustCheckFailed             ErrorCategory = "scry-trust-check-failed"           // Ownership inspection itself failed.

	ErrBackendResolutionFailed ErrorCategory = "scry-backend-resolution-failed" // Object storage is corrupt or unreadable.
	ErrAlternateCycle          ErrorCategory = "scry-alternate-cycle"           // An alternates chain refers back to itself.
	ErrAlternateInvalid        ErrorCategory = "scry-alternate-invalid"         // An alternates file names something that isn't an objects dir.
	ErrObjectNotFound          ErrorCategory = "scry-object-not-found"          // Only raised by convenience methods; backends report misses without errors.
)

/*
	Return the scry category of an error, or the empty category if
	the error is nil or not one of ours.
*/
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	cat, _ := errcat.Category(err).(ErrorCategory)
	return cat
}
