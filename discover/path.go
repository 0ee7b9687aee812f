package discover

import (
	"os"
	"strings"

	"go.polydawn.net/scry/fs"
)

type Kind uint8

const (
	Kind_Bare           Kind = iota + 1 // the git dir is the repository; no work tree
	Kind_WorkTree                       // a work tree with its git dir at `.git`
	Kind_LinkedWorkTree                 // a work tree whose `.git` file points elsewhere (`git worktree add`)
)

func (k Kind) String() string {
	switch k {
	case Kind_Bare:
		return "bare"
	case Kind_WorkTree:
		return "worktree"
	case Kind_LinkedWorkTree:
		return "linked-worktree"
	default:
		return "invalid"
	}
}

// The location of a discovered repository.
type Path struct {
	Kind    Kind
	GitDir  fs.AbsolutePath // holds HEAD (and usually objects and refs)
	WorkDir fs.AbsolutePath // zero for bare repositories
}

func (p Path) HasWorkDir() bool {
	return p.Kind != Kind_Bare
}

/*
	The directory holding this repository's object storage.

	Linked work trees keep their objects in the main repository,
	named by the `commondir` file.
*/
func (p Path) ObjectsDir() fs.AbsolutePath {
	return commonDir(p.GitDir).Join(fs.MustRelPath("objects"))
}

func commonDir(gitDir fs.AbsolutePath) fs.AbsolutePath {
	body, err := os.ReadFile(gitDir.Join(fs.MustRelPath("commondir")).String())
	if err != nil {
		return gitDir
	}
	target := strings.TrimSpace(string(body))
	if target == "" {
		return gitDir
	}
	if resolved, ok := fs.Absolutize(target, gitDir); ok {
		return resolved
	}
	return gitDir
}
