package odb

import (
	"errors"
	"fmt"
	"io"
	"os"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/format/objfile"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
)

/*
	Loose objects: one zlib-compressed file per object, at
	`xx/yyyyyyyy...` under the objects dir (the first two hex digits
	of the id name a fan-out directory).
*/
type Loose struct {
	objects billy.Filesystem
}

// A loose store over a filesystem rooted at an objects dir.
func NewLoose(objects billy.Filesystem) *Loose {
	return &Loose{objects}
}

func OpenLoose(objectsDir fs.AbsolutePath) *Loose {
	return NewLoose(osfs.New(objectsDir.String()))
}

func (l *Loose) path(id plumbing.Hash) string {
	hex := id.String()
	return l.objects.Join(hex[:2], hex[2:])
}

func (l *Loose) Resolve(id plumbing.Hash, _ PackCache) (Object, bool, error) {
	f, err := l.objects.Open(l.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Object{}, false, nil
		}
		return Object{}, false, l.corrupt(id, "cannot open", err)
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return Object{}, false, l.corrupt(id, "cannot inflate", err)
	}
	defer r.Close()
	kind, size, err := r.Header()
	if err != nil {
		return Object{}, false, l.corrupt(id, "bad header in", err)
	}
	if size < 0 {
		return Object{}, false, l.corrupt(id, "bad header in", fmt.Errorf("negative size %d", size))
	}
	// The header is untrusted; let the stream bound the allocation, not the claimed size.
	data, err := io.ReadAll(io.LimitReader(r, size+1))
	if err != nil {
		return Object{}, false, l.corrupt(id, "cannot read", err)
	}
	if int64(len(data)) != size {
		return Object{}, false, l.corrupt(id, "size mismatch in", fmt.Errorf("header says %d bytes, body has %d", size, len(data)))
	}
	return Object{Kind: kind, Data: data}, true, nil
}

func (l *Loose) corrupt(id plumbing.Hash, what string, cause error) error {
	return ErrorDetailed(scry.ErrBackendResolutionFailed,
		what+" loose object "+id.String()+": "+cause.Error(),
		map[string]string{
			"hash": id.String(),
			"path": l.objects.Join(l.objects.Root(), l.path(id)),
		})
}
