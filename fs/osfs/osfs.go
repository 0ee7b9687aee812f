/*
	Filesystem inspection for the host OS.

	Everything here takes and returns absolute paths, and nothing here
	ever writes.  Functions are unix-only (they lean on `stat(2)` for
	ownership and device ids).
*/
package osfs

import (
	"errors"
	"os"
	"strings"

	. "github.com/warpfork/go-errcat"
	"golang.org/x/sys/unix"

	"go.polydawn.net/scry/fs"
)

// Same limit Linux applies before returning ELOOP.
const maxLinkHops = 40

// Stat a path, following symlinks.
func Stat(path fs.AbsolutePath) (*fs.Metadata, error) {
	var st unix.Stat_t
	if err := unix.Stat(path.String(), &st); err != nil {
		return nil, fs.NormalizeIOError(&os.PathError{Op: "stat", Path: path.String(), Err: err})
	}
	return convertStat(path, &st), nil
}

// Stat a path, not following a final symlink.
func LStat(path fs.AbsolutePath) (*fs.Metadata, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path.String(), &st); err != nil {
		return nil, fs.NormalizeIOError(&os.PathError{Op: "lstat", Path: path.String(), Err: err})
	}
	return convertStat(path, &st), nil
}

func convertStat(path fs.AbsolutePath, st *unix.Stat_t) *fs.Metadata {
	fmeta := &fs.Metadata{
		Name: path,
		Uid:  st.Uid,
		Gid:  st.Gid,
		Dev:  uint64(st.Dev),
	}
	switch uint32(st.Mode) & unix.S_IFMT {
	case unix.S_IFREG:
		fmeta.Type = fs.Type_File
		fmeta.Size = st.Size
	case unix.S_IFDIR:
		fmeta.Type = fs.Type_Dir
	case unix.S_IFLNK:
		fmeta.Type = fs.Type_Symlink
	default:
		fmeta.Type = fs.Type_Other
	}
	return fmeta
}

/*
	Resolve every symlink in a path, returning the canonical path.

	Like `realpath(3)`, every segment must exist.
	Errors are categorized: `fs.ErrNotExists`, `fs.ErrRecursion`, etc.
*/
func Realpath(path fs.AbsolutePath) (fs.AbsolutePath, error) {
	pending := strings.Split(path.String(), "/")
	resolved := fs.AbsolutePath{}
	hops := 0
	for len(pending) > 0 {
		segment := pending[0]
		pending = pending[1:]
		switch segment {
		case "", ".":
			continue
		case "..":
			resolved = resolved.Dir()
			continue
		}
		next := resolved.Join(fs.MustRelPath(segment))
		target, isLink, err := readlink(next.String())
		if err != nil {
			return fs.AbsolutePath{}, fs.NormalizeIOError(err)
		}
		if !isLink {
			resolved = next
			continue
		}
		hops++
		if hops > maxLinkHops {
			return fs.AbsolutePath{}, Errorf(fs.ErrRecursion, "too many levels of symbolic links resolving %q", path)
		}
		if strings.HasPrefix(target, "/") {
			resolved = fs.AbsolutePath{}
		}
		pending = append(strings.Split(target, "/"), pending...)
	}
	return resolved, nil
}

func readlink(path string) (string, bool, error) {
	target, err := os.Readlink(path)
	switch {
	case err == nil:
		return target, true, nil
	case errors.Is(err, unix.EINVAL):
		// EINVAL means "not a symlink".
		// We return this as false and a nil error because it's frequently useful to use
		// the readlink syscall blindly with an lstat first in order to save a syscall.
		return "", false, nil
	default:
		return "", false, err
	}
}
