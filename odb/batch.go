package odb

import (
	"github.com/sourcegraph/conc"
	"gopkg.in/src-d/go-git.v4/plumbing"
)

// The outcome of looking up one id in a batch.
type Result struct {
	ID     plumbing.Hash
	Object Object
	Found  bool
	Err    error
}

/*
	Look up many ids at once, using up to workers goroutines.

	The first worker uses h itself; the others use clones of it, so each
	goroutine has caches of its own over the shared backend.  h must not
	be used by anyone else until FindAll returns.
	Results are in the same order as ids.
*/
func FindAll(h *Handle, ids []plumbing.Hash, workers int) []Result {
	results := make([]Result, len(ids))
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}
	var wg conc.WaitGroup
	for w := 0; w < workers; w++ {
		w, handle := w, h
		if w > 0 {
			handle = h.Clone()
		}
		wg.Go(func() {
			for i := w; i < len(ids); i += workers {
				obj, ok, err := handle.Find(ids[i])
				results[i] = Result{ids[i], obj, ok, err}
			}
		})
	}
	wg.Wait()
	return results
}
