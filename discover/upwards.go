package discover

import (
	"os"
	"strconv"

	. "github.com/warpfork/go-errcat"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/fs/osfs"
	"go.polydawn.net/scry/log"
	"go.polydawn.net/scry/trust"
)

/*
	The filesystem capabilities the upward search relies on.

	OSProbe returns the real ones.  Tests swap individual fields
	to simulate ownership or device layouts that are awkward to
	produce on a real filesystem.
*/
type Probe struct {
	Getwd func() (string, error)
	Stat  func(fs.AbsolutePath) (*fs.Metadata, error)
	IsGit func(fs.AbsolutePath) (Path, bool)
	Trust func(fs.AbsolutePath) (trust.Level, error)
}

func OSProbe() Probe {
	return Probe{
		Getwd: os.Getwd,
		Stat:  osfs.Stat,
		IsGit: IsGit,
		Trust: trust.FromPathOwnership,
	}
}

/*
	Find the repository containing directory, looking at directory itself
	and then each of its ancestors, nearest first.

	An empty directory means the current directory.
	Returns the repository location and the trust level it was accepted at.
	All errors are errcat errors with a `scry.ErrorCategory`; see `Probe.Upwards`.
*/
func Upwards(directory string, opts Options) (Path, trust.Level, error) {
	return OSProbe().Upwards(directory, opts)
}

/*
	Upwards, using the given probe for all filesystem inspection.

	Each level checks the directory itself as a bare repository, then its
	`.git` entry.  Candidates below `opts.RequiredTrust` are logged and
	skipped.  The walk stops at the filesystem root, at the nearest ceiling
	directory (which is still examined), or, unless `opts.CrossFS`, at the
	first ancestor on another device.

	Errors:

		- scry.ErrCurrentDirUnavailable -- the working directory was needed but couldn't be had.
		- scry.ErrInvalidRelativeInput -- a relative path climbed above the root.
		- scry.ErrInaccessibleDirectory -- the start (or an ancestor) can't be stat'd, or isn't a dir.
		- scry.ErrTrustCheckFailed -- ownership of a candidate couldn't be inspected.
		- scry.ErrNoMatchingCeilingDirectory -- a repo was found, but none of the ceilings contain it.
		- scry.ErrNoTrustedRepository -- the walk ended having skipped at least one candidate for trust.
		- scry.ErrNoRepositoryWithinCeiling -- the walk ended at a ceiling.
		- scry.ErrNoRepositoryWithinFilesystem -- the walk ended at a device boundary.
		- scry.ErrNoRepository -- the walk ended at the root.
*/
func (probe Probe) Upwards(directory string, opts Options) (Path, trust.Level, error) {
	start, err := probe.resolveStart(directory, opts.CurrentDir)
	if err != nil {
		return Path{}, trust.Reduced, err
	}
	startMeta, err := probe.Stat(start)
	if err != nil {
		return Path{}, trust.Reduced, inaccessible(start, err.Error())
	}
	if startMeta.Type != fs.Type_Dir {
		return Path{}, trust.Reduced, inaccessible(start, "not a directory")
	}

	maxHeight, bounded := ceilingHeight(start, opts.CeilingDirs)
	if bounded {
		log.CeilingApplied(opts.Monitor, start, maxHeight)
	}

	var discarded []fs.AbsolutePath
	cursor := start
	for height := 0; ; height++ {
		if height > 0 && !opts.CrossFS {
			meta, err := probe.Stat(cursor)
			if err != nil {
				return Path{}, trust.Reduced, inaccessible(cursor, err.Error())
			}
			if meta.Dev != startMeta.Dev {
				log.DeviceBoundary(opts.Monitor, start, cursor)
				return Path{}, trust.Reduced, notFound(scry.ErrNoRepositoryWithinFilesystem, start, discarded,
					"no repository found before reaching a filesystem boundary", "limit", cursor.String())
			}
		}

		for _, candidate := range candidatesAt(cursor) {
			found, ok := probe.IsGit(candidate)
			if !ok {
				continue
			}
			level, err := probe.Trust(candidate)
			if err != nil {
				if scry.CategoryOf(err) != scry.ErrTrustCheckFailed {
					err = ErrorDetailed(scry.ErrTrustCheckFailed, err.Error(), map[string]string{"path": candidate.String()})
				}
				return Path{}, trust.Reduced, err
			}
			if !level.AtLeast(opts.RequiredTrust) {
				log.CandidateDiscarded(opts.Monitor, candidate, level, opts.RequiredTrust)
				discarded = append(discarded, candidate)
				continue
			}
			if err := checkCeilingMatch(candidate, opts); err != nil {
				return Path{}, trust.Reduced, err
			}
			log.RepositoryFound(opts.Monitor, found.GitDir, found.Kind, level)
			return found, level, nil
		}

		if cursor.IsRoot() {
			return Path{}, trust.Reduced, notFound(scry.ErrNoRepository, start, discarded,
				"no repository found in this directory or any of its parents")
		}
		if bounded && height+1 > maxHeight {
			return Path{}, trust.Reduced, notFound(scry.ErrNoRepositoryWithinCeiling, start, discarded,
				"no repository found below the ceiling directory", "ceilingHeight", strconv.Itoa(maxHeight))
		}
		cursor = cursor.Dir()
	}
}

func (probe Probe) resolveStart(directory string, currentDir string) (fs.AbsolutePath, error) {
	if directory == "" {
		directory = "."
	}
	if abs, ok := fs.ParseAbsolutePath(directory); ok {
		return abs, nil
	}
	if currentDir == "" {
		cwd, err := probe.Getwd()
		if err != nil {
			return fs.AbsolutePath{}, Errorf(scry.ErrCurrentDirUnavailable, "cannot determine the current directory: %s", err)
		}
		currentDir = cwd
	}
	cwd, ok := fs.ParseAbsolutePath(currentDir)
	if !ok {
		return fs.AbsolutePath{}, ErrorDetailed(scry.ErrInvalidRelativeInput,
			"the current directory must be absolute",
			map[string]string{"path": currentDir})
	}
	start, ok := fs.Absolutize(directory, cwd)
	if !ok {
		return fs.AbsolutePath{}, ErrorDetailed(scry.ErrInvalidRelativeInput,
			"relative path climbs above the filesystem root",
			map[string]string{"path": directory, "cwd": cwd.String()})
	}
	return start, nil
}

// The directory itself as a bare repository first, then its `.git`.
func candidatesAt(dir fs.AbsolutePath) []fs.AbsolutePath {
	return []fs.AbsolutePath{dir, dir.Join(fs.MustRelPath(dotGit))}
}

/*
	How many levels above start the walk may go.

	Any ceiling that is start or one of its ancestors counts; the nearest
	one wins.  A ceiling equal to start gives height 0: start is examined
	and nothing above it.  Returns false if no ceiling bounds the walk.
*/
func ceilingHeight(start fs.AbsolutePath, ceilings []fs.AbsolutePath) (int, bool) {
	best, bounded := 0, false
	for _, ceiling := range ceilings {
		height, ok := start.HeightBelow(ceiling)
		if !ok {
			continue
		}
		if !bounded || height < best {
			best, bounded = height, true
		}
	}
	return best, bounded
}

// The accepted candidate must lie at or below some ceiling.
func checkCeilingMatch(candidate fs.AbsolutePath, opts Options) error {
	if len(opts.CeilingDirs) == 0 || !opts.MatchCeilingDirOrError {
		return nil
	}
	for _, ceiling := range opts.CeilingDirs {
		if _, ok := candidate.HeightBelow(ceiling); ok {
			return nil
		}
	}
	return ErrorDetailed(scry.ErrNoMatchingCeilingDirectory,
		"a repository was found, but none of the ceiling directories contain it",
		map[string]string{"path": candidate.String()})
}

func inaccessible(path fs.AbsolutePath, reason string) error {
	return ErrorDetailed(scry.ErrInaccessibleDirectory,
		"cannot search from "+path.String()+": "+reason,
		map[string]string{"path": path.String()})
}

// Builds the terminal error of a walk; skipped candidates take precedence over the reason the walk stopped.
func notFound(category scry.ErrorCategory, start fs.AbsolutePath, discarded []fs.AbsolutePath, msg string, detail ...string) error {
	details := map[string]string{"path": start.String()}
	if len(discarded) > 0 {
		category = scry.ErrNoTrustedRepository
		msg = "repositories were found, but none were trusted enough"
		details["candidate"] = discarded[0].String()
		details["candidates"] = strconv.Itoa(len(discarded))
	}
	for i := 0; i+1 < len(detail); i += 2 {
		details[detail[i]] = detail[i+1]
	}
	return ErrorDetailed(category, msg, details)
}
