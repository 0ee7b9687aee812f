package discover

import (
	"bytes"
	"unicode/utf8"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/config"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/fs/osfs"
	"go.polydawn.net/scry/trust"
)

// Options guiding an upward search.  Start from DefaultOptions; the zero value is not the default.
type Options struct {
	// Candidates below this trust level are skipped, and the search continues upward.
	RequiredTrust trust.Level

	// Directories bounding how far up the search may go.
	// The nearest ceiling that contains the starting directory wins;
	// the ceiling directory itself is still examined.
	CeilingDirs []fs.AbsolutePath

	// If true and CeilingDirs is non-empty, a found repository must sit at or
	// below one of the ceilings, or the search fails with ErrNoMatchingCeilingDirectory.
	MatchCeilingDirOrError bool

	// If false, the search stops at the first directory on a different device
	// than the starting directory.
	CrossFS bool

	// The working directory to resolve a relative start against.
	// If empty, it is asked of the OS, but only when actually needed.
	CurrentDir string

	// Receives log events about discarded candidates and search limits.
	Monitor scry.Monitor
}

func DefaultOptions() Options {
	return Options{
		RequiredTrust:          trust.Reduced,
		MatchCeilingDirOrError: true,
		CrossFS:                false,
	}
}

/*
	Return a copy of the options with overrides from the environment applied.

	Only `GIT_CEILING_DIRECTORIES` is read (into CeilingDirs).
	`GIT_DISCOVERY_ACROSS_FILESYSTEM` is deliberately not applied: it uses
	the git-config boolean grammar, so callers wanting it should parse it
	with `config.ParseGitBool` and set CrossFS themselves.
*/
func (opts Options) ApplyEnvironment() Options {
	if raw, ok := config.GetCeilingDirectories(); ok {
		opts.CeilingDirs = ParseCeilingDirs(raw)
	}
	return opts
}

/*
	Parse a `:`-separated list of directories, as found in `GIT_CEILING_DIRECTORIES`.

	Relative entries, and entries that aren't valid utf-8 paths, are dropped.
	Entries are symlink-resolved until an empty entry is seen;
	entries after it are kept literally (just lexically cleaned).
	This matches git, and lets users opt out of the realpath cost
	(and out of matching through symlinks) for the tail of the list.
	An entry that can't be resolved is kept as given.
*/
func ParseCeilingDirs(raw []byte) []fs.AbsolutePath {
	shouldNormalize := true
	var result []fs.AbsolutePath
	for _, segment := range bytes.Split(raw, []byte{':'}) {
		if len(segment) == 0 {
			shouldNormalize = false
			continue
		}
		if !utf8.Valid(segment) || bytes.IndexByte(segment, 0) >= 0 {
			continue
		}
		dir, ok := fs.ParseAbsolutePath(string(segment))
		if !ok {
			continue
		}
		if shouldNormalize {
			if resolved, err := osfs.Realpath(dir); err == nil {
				dir = resolved
			}
		}
		result = append(result, dir)
	}
	return result
}
