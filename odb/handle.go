package odb

import (
	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/log"
)

/*
	Handle is one caller's view of a shared backend.

	It owns a pack cache and an object cache, each built on first use from
	its factory.  A Handle is not safe for concurrent use; give each
	goroutine its own (see Clone).  The backend is shared by all clones.
*/
type Handle struct {
	backend        Backend
	newPackCache   NewPackCacheFunc
	newObjectCache NewObjectCacheFunc

	cachesBuilt bool
	packCache   PackCache
	objectCache ObjectCache

	// Receives a debug event whenever the object cache turns an entry away.
	Monitor scry.Monitor
}

// Either factory may be nil, for no cache of that kind.
func NewHandle(backend Backend, newPackCache NewPackCacheFunc, newObjectCache NewObjectCacheFunc) *Handle {
	return &Handle{
		backend:        backend,
		newPackCache:   newPackCache,
		newObjectCache: newObjectCache,
	}
}

/*
	A new Handle over the same backend, with the same cache factories,
	but with caches of its own (not yet built).
*/
func (h *Handle) Clone() *Handle {
	clone := NewHandle(h.backend, h.newPackCache, h.newObjectCache)
	clone.Monitor = h.Monitor
	return clone
}

func (h *Handle) Backend() Backend {
	return h.backend
}

func (h *Handle) buildCaches() {
	if h.cachesBuilt {
		return
	}
	h.cachesBuilt = true
	if h.newPackCache != nil {
		h.packCache = h.newPackCache()
	}
	if h.newObjectCache != nil {
		h.objectCache = h.newObjectCache()
	}
}

/*
	Look up an object.

	A miss is `(Object{}, false, nil)`, and is not remembered.
	Hits are remembered in the object cache (if there is one) when it'll
	take them, and later lookups of the same id won't reach the backend.
	Errors come only from the backend.
*/
func (h *Handle) Find(id plumbing.Hash) (Object, bool, error) {
	h.buildCaches()
	if h.objectCache != nil {
		if obj, ok := h.objectCache.Get(id); ok {
			return obj, true, nil
		}
	}
	obj, ok, err := h.backend.Resolve(id, h.packCache)
	if err != nil || !ok {
		return Object{}, false, err
	}
	if h.objectCache != nil {
		if err := h.objectCache.Put(id, obj); err != nil {
			log.CacheRejected(h.Monitor, id, err)
		}
	}
	return obj, true, nil
}

// Like Find, but a miss is an error of category `scry.ErrObjectNotFound`.
func (h *Handle) Get(id plumbing.Hash) (Object, error) {
	obj, ok, err := h.Find(id)
	if err != nil {
		return Object{}, err
	}
	if !ok {
		return Object{}, ErrorDetailed(scry.ErrObjectNotFound,
			"object "+id.String()+" not found",
			map[string]string{"hash": id.String()})
	}
	return obj, nil
}

func (h *Handle) Has(id plumbing.Hash) (bool, error) {
	_, ok, err := h.Find(id)
	return ok, err
}
