package odb

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	. "github.com/warpfork/go-errcat"
	"go.uber.org/multierr"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/plumbing/format/idxfile"
	"gopkg.in/src-d/go-git.v4/plumbing/format/packfile"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
)

/*
	Which half of a Compound answers first, for objects present in both.

	Git itself never lets the two disagree (an id names the same bytes
	either way), so this only decides which lookup is paid for first.
*/
type Precedence uint8

const (
	PackedFirst Precedence = iota // most objects in a settled repository are packed
	LooseFirst                    // for repositories that mostly see fresh writes
)

func (p Precedence) String() string {
	switch p {
	case PackedFirst:
		return "packed-first"
	case LooseFirst:
		return "loose-first"
	default:
		return "invalid"
	}
}

/*
	Compound is the complete contents of one objects dir:
	its loose objects, plus every pack listed in `pack/`.

	Pack indexes are read when the Compound is opened, and the pack files
	stay open until Close.  The set of packs is fixed at that time;
	reopen to see new packs.
*/
type Compound struct {
	loose      *Loose
	packs      []*pack
	precedence Precedence
}

type pack struct {
	name  string
	index *idxfile.MemoryIndex
	file  billy.File

	// Guards the index's lazily built reverse lookup table
	// and the file offset, both of which a read mutates.
	mu sync.Mutex
}

/*
	Open every pack under `pack/` of the given objects dir filesystem.

	Errors are of category `scry.ErrBackendResolutionFailed`,
	naming the pack that couldn't be read.
*/
func NewCompound(objects billy.Filesystem, precedence Precedence) (*Compound, error) {
	c := &Compound{
		loose:      NewLoose(objects),
		precedence: precedence,
	}
	infos, err := objects.ReadDir("pack")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, ErrorDetailed(scry.ErrBackendResolutionFailed,
			"cannot list packs: "+err.Error(),
			map[string]string{"path": objects.Join(objects.Root(), "pack")})
	}
	var names []string
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, "pack-") && strings.HasSuffix(name, ".idx") {
			names = append(names, strings.TrimSuffix(name, ".idx"))
		}
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := openPack(objects, name)
		if err != nil {
			c.Close()
			return nil, ErrorDetailed(scry.ErrBackendResolutionFailed,
				"cannot open pack: "+err.Error(),
				map[string]string{"path": objects.Join(objects.Root(), "pack", name+".pack")})
		}
		c.packs = append(c.packs, p)
	}
	return c, nil
}

func OpenCompound(objectsDir fs.AbsolutePath, precedence Precedence) (*Compound, error) {
	return NewCompound(osfs.New(objectsDir.String()), precedence)
}

func openPack(objects billy.Filesystem, name string) (*pack, error) {
	idxFile, err := objects.Open(objects.Join("pack", name+".idx"))
	if err != nil {
		return nil, err
	}
	defer idxFile.Close()
	index := idxfile.NewMemoryIndex()
	if err := idxfile.NewDecoder(idxFile).Decode(index); err != nil {
		return nil, err
	}
	packFile, err := objects.Open(objects.Join("pack", name+".pack"))
	if err != nil {
		return nil, err
	}
	return &pack{name: name, index: index, file: packFile}, nil
}

// The number of packs this Compound reads from.
func (c *Compound) PackCount() int {
	return len(c.packs)
}

func (c *Compound) Precedence() Precedence {
	return c.precedence
}

func (c *Compound) Resolve(id plumbing.Hash, packCache PackCache) (Object, bool, error) {
	if c.precedence == LooseFirst {
		if obj, ok, err := c.loose.Resolve(id, packCache); ok || err != nil {
			return obj, ok, err
		}
		return c.resolvePacked(id, packCache)
	}
	if obj, ok, err := c.resolvePacked(id, packCache); ok || err != nil {
		return obj, ok, err
	}
	return c.loose.Resolve(id, packCache)
}

func (c *Compound) resolvePacked(id plumbing.Hash, packCache PackCache) (Object, bool, error) {
	for _, p := range c.packs {
		obj, ok, err := p.resolve(id, packCache)
		if ok || err != nil {
			return obj, ok, err
		}
	}
	return Object{}, false, nil
}

func (p *pack) resolve(id plumbing.Hash, packCache PackCache) (Object, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok, err := p.index.Contains(id); err != nil {
		return Object{}, false, p.corrupt(id, err)
	} else if !ok {
		return Object{}, false, nil
	}
	if packCache == nil {
		packCache = cache.NewObjectLRU(0)
	}
	// Without a filesystem, the packfile reader inflates objects fully
	// instead of handing back lazy readers over the shared file.
	pf := packfile.NewPackfileWithCache(p.index, nil, p.file, packCache)
	eo, err := pf.Get(id)
	if err != nil {
		return Object{}, false, p.corrupt(id, err)
	}
	obj, err := objectFromEncoded(eo)
	if err != nil {
		return Object{}, false, p.corrupt(id, err)
	}
	return obj, true, nil
}

func (p *pack) corrupt(id plumbing.Hash, cause error) error {
	return ErrorDetailed(scry.ErrBackendResolutionFailed,
		"cannot read object "+id.String()+" from pack: "+cause.Error(),
		map[string]string{"hash": id.String(), "pack": p.name})
}

// Release the open pack files.
func (c *Compound) Close() error {
	var err error
	for _, p := range c.packs {
		err = multierr.Append(err, p.file.Close())
	}
	c.packs = nil
	return err
}
