package odb

import (
	"fmt"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/testutil"
)

// Blobs similar enough that the pack encoder will store most of them as deltas.
func similarBlobs(n int) []testutil.RawObject {
	base := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 64)
	blobs := make([]testutil.RawObject, n)
	for i := range blobs {
		blobs[i] = testutil.Blob(fmt.Sprintf("%s-- revision %d\n", base, i))
	}
	return blobs
}

func TestCompound(t *testing.T) {
	Convey("Compound stores", t, func() {
		objects := memfs.New()

		Convey("with nothing in them", func() {
			c, err := NewCompound(objects, PackedFirst)
			So(err, ShouldBeNil)
			So(c.PackCount(), ShouldEqual, 0)
			_, ok, err := c.Resolve(testutil.Blob("x").Hash(), nil)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("with packs and loose objects", func() {
			blobs := similarBlobs(8)
			testutil.WritePack(objects, blobs[:5]...)
			testutil.WritePack(objects, blobs[5:7]...)
			testutil.WriteLooseObject(objects, blobs[7])
			c, err := NewCompound(objects, PackedFirst)
			So(err, ShouldBeNil)
			defer c.Close()
			So(c.PackCount(), ShouldEqual, 2)

			Convey("everything resolves, deltas included", func() {
				packCache := cache.NewObjectLRU(cache.MiByte)
				for _, blob := range blobs {
					obj, ok, err := c.Resolve(blob.Hash(), packCache)
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(obj.Verify(blob.Hash()), ShouldBeTrue)
				}
			})
			Convey("a nil pack cache is fine too", func() {
				obj, ok, err := c.Resolve(blobs[4].Hash(), nil)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(obj.Verify(blobs[4].Hash()), ShouldBeTrue)
			})
			Convey("unknown ids miss", func() {
				_, ok, err := c.Resolve(testutil.Blob("x").Hash(), nil)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
			Convey("concurrent handles agree", func() {
				h := NewHandle(c, NewPackCacheLRU(cache.MiByte), NewObjectCacheLRU(cache.MiByte))
				var all []testutil.RawObject
				for i := 0; i < 20; i++ {
					all = append(all, blobs...)
				}
				results := FindAll(h, hashesOf(all), 4)
				for i, res := range results {
					So(res.Err, ShouldBeNil)
					So(res.Found, ShouldBeTrue)
					So(res.Object.Verify(all[i].Hash()), ShouldBeTrue)
				}
			})
		})

		Convey("precedence is fixed at construction", func() {
			packed := testutil.Blob("the packed one")
			testutil.WritePack(objects, packed)
			testutil.WriteLooseObjectAs(objects, packed.Hash(), testutil.Blob("the loose one"))

			c, err := NewCompound(objects, PackedFirst)
			So(err, ShouldBeNil)
			obj, _, _ := c.Resolve(packed.Hash(), nil)
			So(string(obj.Data), ShouldEqual, "the packed one")
			c.Close()

			c, err = NewCompound(objects, LooseFirst)
			So(err, ShouldBeNil)
			So(c.Precedence(), ShouldEqual, LooseFirst)
			obj, _, _ = c.Resolve(packed.Hash(), nil)
			So(string(obj.Data), ShouldEqual, "the loose one")
			c.Close()
		})

		Convey("a broken index fails the open", func() {
			So(util.WriteFile(objects, objects.Join("pack", "pack-0000.idx"), []byte("garbage"), 0644), ShouldBeNil)
			_, err := NewCompound(objects, PackedFirst)
			So(err, errcat.ErrorShouldHaveCategory, scry.ErrBackendResolutionFailed)
		})
		Convey("an index without its pack fails the open", func() {
			sum := testutil.WritePack(objects, testutil.Blob("lonely"))
			So(objects.Remove(objects.Join("pack", "pack-"+sum.String()+".pack")), ShouldBeNil)
			_, err := NewCompound(objects, PackedFirst)
			So(err, errcat.ErrorShouldHaveCategory, scry.ErrBackendResolutionFailed)
		})
	})
}
