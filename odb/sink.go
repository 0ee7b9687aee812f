package odb

import (
	"io"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"go.polydawn.net/scry"
)

/*
	Sink is a backend that holds nothing.

	Every lookup misses.  Writes are accepted, hashed, and thrown away;
	this makes Sink a stand-in wherever something needs a valid object
	store but never needs to read back what it stored.
*/
type Sink struct{}

func (Sink) Resolve(plumbing.Hash, PackCache) (Object, bool, error) {
	return Object{}, false, nil
}

// Returns the id the object would have been stored under.
func (Sink) Write(obj Object) (plumbing.Hash, error) {
	return plumbing.ComputeHash(obj.Kind, obj.Data), nil
}

/*
	Like Write, but streaming: size bytes are read from r and discarded.

	The object's declared size must match what r yields.
*/
func (Sink) WriteStream(kind plumbing.ObjectType, size int64, r io.Reader) (plumbing.Hash, error) {
	hasher := plumbing.NewHasher(kind, size)
	n, err := io.Copy(hasher, r)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if n != size {
		return plumbing.ZeroHash, Errorf(scry.ErrUsage, "object declared %d bytes but had %d", size, n)
	}
	return hasher.Sum(), nil
}
