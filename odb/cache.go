package odb

import (
	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"

	"go.polydawn.net/scry"
)

/*
	ObjectCache remembers resolved objects for one Handle.

	Put may refuse an entry (for example, one too big to ever fit);
	the Handle shrugs that off.  Implementations need not be safe
	for concurrent use.
*/
type ObjectCache interface {
	Get(id plumbing.Hash) (Object, bool)
	Put(id plumbing.Hash, obj Object) error
}

// Factories for per-Handle caches.  A nil factory, or one returning nil, means no cache.
type (
	NewPackCacheFunc   func() PackCache
	NewObjectCacheFunc func() ObjectCache
)

/*
	A factory for delta base caches holding up to size bytes.
	A size of zero yields a nil factory.
*/
func NewPackCacheLRU(size cache.FileSize) NewPackCacheFunc {
	if size == 0 {
		return nil
	}
	return func() PackCache { return cache.NewObjectLRU(size) }
}

/*
	A factory for object caches holding up to size bytes, evicting
	least recently used objects first.  A size of zero yields a nil factory.
*/
func NewObjectCacheLRU(size cache.FileSize) NewObjectCacheFunc {
	if size == 0 {
		return nil
	}
	return func() ObjectCache { return &objectLRU{cache.NewObjectLRU(size), size} }
}

type objectLRU struct {
	lru     *cache.ObjectLRU
	maxSize cache.FileSize
}

func (c *objectLRU) Get(id plumbing.Hash) (Object, bool) {
	eo, ok := c.lru.Get(id)
	if !ok {
		return Object{}, false
	}
	obj, err := objectFromEncoded(eo)
	if err != nil {
		return Object{}, false
	}
	return obj, true
}

func (c *objectLRU) Put(id plumbing.Hash, obj Object) error {
	if cache.FileSize(obj.Size()) > c.maxSize {
		return Errorf(scry.ErrUsage, "object of %d bytes exceeds cache capacity of %d", obj.Size(), c.maxSize)
	}
	// Keyed by the hash of the content, which for any object a backend resolved is id.
	c.lru.Put(obj.Encoded())
	return nil
}
