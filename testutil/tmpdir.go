package testutil

import (
	"os"
	"path/filepath"

	"go.polydawn.net/scry/fs"
)

// An arbitrary uid that nobody on a test machine should be using.
const StrangerUID = 47001

/*
	Run fn with a fresh temp dir, and remove it afterwards.

	The path handed to fn is fully symlink-resolved (on mac, /tmp is a link),
	because discovery tests compare paths exactly.
*/
func WithTmpdir(fn func(tmpDir fs.AbsolutePath)) {
	dir, err := os.MkdirTemp("", "scry-test-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		panic(err)
	}
	fn(fs.MustAbsolutePath(dir))
}

// Make a directory and all its parents; panics on failure.
func Mkdirs(path fs.AbsolutePath) {
	if err := os.MkdirAll(path.String(), 0755); err != nil {
		panic(err)
	}
}
