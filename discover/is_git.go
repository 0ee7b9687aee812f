package discover

import (
	"os"
	"strings"

	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/fs/osfs"
)

const dotGit = ".git"

/*
	Report whether a path is a git dir (or a `.git` file pointing at one),
	and if so, where the repository and its work tree are.

	A git dir has a HEAD file, plus `objects` and `refs` directories
	(found via `commondir` if that file is present).
	This only looks; it never fails, and it never writes.
*/
func IsGit(candidate fs.AbsolutePath) (Path, bool) {
	fmeta, err := osfs.Stat(candidate)
	if err != nil {
		return Path{}, false
	}
	switch fmeta.Type {
	case fs.Type_Dir:
		if !hasGitMarkers(candidate) {
			return Path{}, false
		}
		if candidate.Last() == dotGit && !candidate.IsRoot() {
			return Path{Kind: Kind_WorkTree, GitDir: candidate, WorkDir: candidate.Dir()}, true
		}
		return Path{Kind: Kind_Bare, GitDir: candidate}, true
	case fs.Type_File:
		if candidate.Last() != dotGit {
			return Path{}, false
		}
		gitDir, ok := readGitdirLink(candidate)
		if !ok || !hasGitMarkers(gitDir) {
			return Path{}, false
		}
		return Path{Kind: Kind_LinkedWorkTree, GitDir: gitDir, WorkDir: candidate.Dir()}, true
	default:
		return Path{}, false
	}
}

func hasGitMarkers(gitDir fs.AbsolutePath) bool {
	if !isType(gitDir.Join(fs.MustRelPath("HEAD")), fs.Type_File) {
		return false
	}
	common := commonDir(gitDir)
	return isType(common.Join(fs.MustRelPath("objects")), fs.Type_Dir) &&
		isType(common.Join(fs.MustRelPath("refs")), fs.Type_Dir)
}

func isType(path fs.AbsolutePath, t fs.Type) bool {
	fmeta, err := osfs.Stat(path)
	return err == nil && fmeta.Type == t
}

// Parse a `.git` file of the form "gitdir: <path>"; relative paths are relative to the file.
func readGitdirLink(dotGitFile fs.AbsolutePath) (fs.AbsolutePath, bool) {
	body, err := os.ReadFile(dotGitFile.String())
	if err != nil {
		return fs.AbsolutePath{}, false
	}
	line := strings.TrimSpace(string(body))
	if !strings.HasPrefix(line, "gitdir:") {
		return fs.AbsolutePath{}, false
	}
	target := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if target == "" {
		return fs.AbsolutePath{}, false
	}
	return fs.Absolutize(target, dotGitFile.Dir())
}
