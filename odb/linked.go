package odb

import (
	"errors"
	"io"
	"os"
	"strings"

	. "github.com/warpfork/go-errcat"
	"go.uber.org/multierr"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/fs/osfs"
)

/*
	Linked is an objects dir plus the chain of alternate object stores
	named by its `info/alternates` file.

	The primary store answers first; on a miss, each alternate is asked in
	the order it was listed, and the first hit wins.  The chain is resolved
	once, at open time, and never changes afterwards.
*/
type Linked struct {
	primary    *Compound
	alternates []Backend // each a *Compound or *Linked; exclusively owned
}

// Compose a Linked from already-opened stores.  The Linked takes ownership of them.
func NewLinked(primary *Compound, alternates ...Backend) *Linked {
	return &Linked{primary, alternates}
}

/*
	Open the objects dir and, recursively, all of its alternates.

	Alternates are resolved depth-first, front to back.  Errors:

		- scry.ErrBackendResolutionFailed -- the objects dir (or a pack in it) can't be read.
		- scry.ErrAlternateInvalid -- an alternates entry is malformed or isn't a directory.
		- scry.ErrAlternateCycle -- an alternate leads back to a store already on the chain.
*/
func OpenLinked(objectsDir fs.AbsolutePath, precedence Precedence) (*Linked, error) {
	return openLinked(objectsDir, precedence, nil)
}

func openLinked(objectsDir fs.AbsolutePath, precedence Precedence, chain []fs.AbsolutePath) (*Linked, error) {
	canonical, err := osfs.Realpath(objectsDir)
	if err != nil {
		return nil, ErrorDetailed(scry.ErrBackendResolutionFailed,
			"cannot resolve objects dir: "+err.Error(),
			map[string]string{"path": objectsDir.String()})
	}
	for _, seen := range chain {
		if seen == canonical {
			return nil, alternateCycle(append(chain, canonical))
		}
	}
	chain = append(chain[:len(chain):len(chain)], canonical)

	primary, err := OpenCompound(canonical, precedence)
	if err != nil {
		return nil, err
	}
	linked := &Linked{primary: primary}

	body, err := os.ReadFile(canonical.Join(fs.MustRelPath(alternatesFile)).String())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		linked.Close()
		return nil, ErrorDetailed(scry.ErrAlternateInvalid,
			"cannot read alternates: "+err.Error(),
			map[string]string{"path": canonical.Join(fs.MustRelPath(alternatesFile)).String()})
	}
	dirs, err := ParseAlternates(body, canonical)
	if err != nil {
		linked.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if fmeta, err := osfs.Stat(dir); err != nil || fmeta.Type != fs.Type_Dir {
			linked.Close()
			return nil, ErrorDetailed(scry.ErrAlternateInvalid,
				"alternate is not an objects dir",
				map[string]string{"path": dir.String(), "from": canonical.String()})
		}
		alt, err := openLinked(dir, precedence, chain)
		if err != nil {
			linked.Close()
			return nil, err
		}
		if len(alt.alternates) == 0 {
			linked.alternates = append(linked.alternates, alt.primary)
		} else {
			linked.alternates = append(linked.alternates, alt)
		}
	}
	return linked, nil
}

func alternateCycle(chain []fs.AbsolutePath) error {
	names := make([]string, len(chain))
	for i, dir := range chain {
		names[i] = dir.String()
	}
	return ErrorDetailed(scry.ErrAlternateCycle,
		"alternates refer back to an objects dir already in use",
		map[string]string{
			"path":  chain[len(chain)-1].String(),
			"chain": strings.Join(names, " -> "),
		})
}

// The alternates directly below this store, in lookup order.
func (l *Linked) Alternates() []Backend {
	return l.alternates
}

func (l *Linked) Primary() *Compound {
	return l.primary
}

func (l *Linked) Resolve(id plumbing.Hash, packCache PackCache) (Object, bool, error) {
	if obj, ok, err := l.primary.Resolve(id, packCache); ok || err != nil {
		return obj, ok, err
	}
	for _, alt := range l.alternates {
		if obj, ok, err := alt.Resolve(id, packCache); ok || err != nil {
			return obj, ok, err
		}
	}
	return Object{}, false, nil
}

// Close the primary store and every alternate.
func (l *Linked) Close() error {
	err := l.primary.Close()
	for _, alt := range l.alternates {
		if closer, ok := alt.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	return err
}
