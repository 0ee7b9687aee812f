/*
	Glue from discovery to object lookup.

	A Repository is what Discover (or Open) hands back: where the repository
	is, how far it's trusted, and an opened object store that any number of
	Handles can share.
*/
package repository

import (
	"go.polydawn.net/scry/config"
	"go.polydawn.net/scry/discover"
	"go.polydawn.net/scry/odb"
	"go.polydawn.net/scry/trust"
)

type Repository struct {
	Path  discover.Path
	Trust trust.Level

	backend        *odb.Linked
	newPackCache   odb.NewPackCacheFunc
	newObjectCache odb.NewObjectCacheFunc
}

/*
	Find the repository containing directory (see `discover.Upwards`)
	and open its object store.
*/
func Discover(directory string, opts discover.Options) (*Repository, error) {
	path, level, err := discover.Upwards(directory, opts)
	if err != nil {
		return nil, err
	}
	return Open(path, level)
}

/*
	Open the object store of an already-located repository,
	following its alternates.

	Cache sizes for the Handles come from `config`;
	a malformed size setting is an `scry.ErrUsage` error.
*/
func Open(path discover.Path, level trust.Level) (*Repository, error) {
	objectCacheSize, err := config.GetObjectCacheSize()
	if err != nil {
		return nil, err
	}
	packCacheSize, err := config.GetPackCacheSize()
	if err != nil {
		return nil, err
	}
	backend, err := odb.OpenLinked(path.ObjectsDir(), odb.PackedFirst)
	if err != nil {
		return nil, err
	}
	return &Repository{
		Path:           path,
		Trust:          level,
		backend:        backend,
		newPackCache:   odb.NewPackCacheLRU(packCacheSize),
		newObjectCache: odb.NewObjectCacheLRU(objectCacheSize),
	}, nil
}

/*
	A fresh Handle over the repository's object store.

	Handles are cheap; make one per goroutine.
*/
func (r *Repository) Handle() *odb.Handle {
	return odb.NewHandle(r.backend, r.newPackCache, r.newObjectCache)
}

func (r *Repository) Backend() odb.Backend {
	return r.backend
}

// Release the object store.  Handles made from this Repository must not be used afterwards.
func (r *Repository) Close() error {
	return r.backend.Close()
}
