/*
	Scry finds git repositories and reads the objects stored in them.

	Finding is done by walking upward from a starting directory (see the
	`discover` package), honoring ceiling directories, filesystem boundaries,
	and the ownership-derived trust of each candidate.
	Reading is done through an `odb.Handle`, which pairs one shared,
	immutable storage backend with lookup caches private to one caller.

	This package holds only vocabulary: error categories, exit codes,
	and the monitor/event types used for structured logging.
*/
package scry

// Exit codes for the scry command.
type ExitCode int

const (
	ExitSuccess     ExitCode = 0
	ExitNotFound    ExitCode = 1 // the requested repository or object does not exist
	ExitUsage       ExitCode = 2 // bad flags or arguments
	ExitUntrusted   ExitCode = 3 // repositories existed, but none were trusted enough
	ExitCorrupt     ExitCode = 4 // storage was unreadable or inconsistent
	ExitEnvironment ExitCode = 5 // the host gave us something unusable (cwd, permissions)
	ExitUnknown     ExitCode = 100
)

/*
	Map an error to the exit code the CLI should return for it.

	Errors without a scry category map to ExitUnknown.
*/
func ExitCodeForError(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch CategoryOf(err) {
	case ErrUsage, ErrInvalidRelativeInput:
		return ExitUsage
	case ErrNoRepository, ErrNoRepositoryWithinCeiling, ErrNoRepositoryWithinFilesystem, ErrObjectNotFound:
		return ExitNotFound
	case ErrNoMatchingCeilingDirectory:
		return ExitUsage
	case ErrNoTrustedRepository:
		return ExitUntrusted
	case ErrBackendResolutionFailed, ErrAlternateCycle, ErrAlternateInvalid:
		return ExitCorrupt
	case ErrCurrentDirUnavailable, ErrInaccessibleDirectory, ErrTrustCheckFailed:
		return ExitEnvironment
	default:
		return ExitUnknown
	}
}
