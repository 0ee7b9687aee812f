/*
	Object database access: backends that resolve content-addressed git
	objects, and the Handle that callers look objects up through.

	Backends are immutable once opened and may be shared by any number of
	goroutines.  Handles are not: each carries its own private caches.
	To look up objects from N goroutines, make N Handles (see `Handle.Clone`),
	all over the same backend.
*/
package odb

import (
	"bytes"
	"io"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	"go.polydawn.net/scry"
)

// A raw object: its kind, and its body without the "<kind> <size>\0" header.
type Object struct {
	Kind plumbing.ObjectType
	Data []byte
}

func (o Object) Size() int64 {
	return int64(len(o.Data))
}

// True if the object hashes to id.
func (o Object) Verify(id plumbing.Hash) bool {
	return plumbing.ComputeHash(o.Kind, o.Data) == id
}

// The object in go-git's encoded form, for handing to go-git codecs and caches.
func (o Object) Encoded() plumbing.EncodedObject {
	mo := &plumbing.MemoryObject{}
	mo.SetType(o.Kind)
	mo.Write(o.Data) // MemoryObject writes can't fail.
	return mo
}

/*
	Parse the object into a commit, tree, blob or tag.

	The result is detached from any storage, so methods that walk to other
	objects (like `Commit.Tree()`) won't work; look those up by hash instead.
*/
func (o Object) Decode() (object.Object, error) {
	decoded, err := object.DecodeObject(nil, o.Encoded())
	if err != nil {
		return nil, Errorf(scry.ErrBackendResolutionFailed, "cannot decode %s object: %s", o.Kind, err)
	}
	return decoded, nil
}

func objectFromEncoded(eo plumbing.EncodedObject) (Object, error) {
	r, err := eo.Reader()
	if err != nil {
		return Object{}, err
	}
	defer r.Close()
	buf := bytes.NewBuffer(make([]byte, 0, eo.Size()))
	if _, err := io.Copy(buf, r); err != nil {
		return Object{}, err
	}
	return Object{Kind: eo.Type(), Data: buf.Bytes()}, nil
}
