package odb

import (
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
)

/*
	PackCache holds delta bases decoded while reading packs,
	so that resolving a chain of deltas doesn't re-inflate the same bases.

	It is per-Handle state; backends only borrow it for the span of one call.
*/
type PackCache = cache.Object

/*
	Backend resolves objects by id.

	A miss is `(Object{}, false, nil)`; errors are reserved for storage that
	is broken or unreadable, and are of category `scry.ErrBackendResolutionFailed`.

	Implementations must be safe for concurrent calls from many Handles.
	packCache may be nil.
*/
type Backend interface {
	Resolve(id plumbing.Hash, packCache PackCache) (Object, bool, error)
}

var (
	_ Backend = &Loose{}
	_ Backend = &Compound{}
	_ Backend = &Linked{}
	_ Backend = Sink{}
)
