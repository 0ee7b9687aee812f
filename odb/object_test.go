package odb

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/testutil"
)

func TestObject(t *testing.T) {
	Convey("Objects", t, func() {
		raw := testutil.Blob("hello\n")
		obj := Object{raw.Kind, raw.Data}

		Convey("verify against their own id", func() {
			So(obj.Verify(plumbing.NewHash("ce013625030ba8dba906f756967f9e9ca394464a")), ShouldBeTrue)
			So(obj.Verify(testutil.Blob("other").Hash()), ShouldBeFalse)
		})
		Convey("a blob decodes to a blob", func() {
			decoded, err := obj.Decode()
			So(err, ShouldBeNil)
			blob, ok := decoded.(*object.Blob)
			So(ok, ShouldBeTrue)
			So(blob.Size, ShouldEqual, 6)
		})
		Convey("a commit decodes to a commit", func() {
			commit := Object{plumbing.CommitObject, []byte("" +
				"tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
				"author A U Thor <author@example.com> 1112911993 -0700\n" +
				"committer C O Mitter <committer@example.com> 1112911993 -0700\n" +
				"\n" +
				"initial\n")}
			decoded, err := commit.Decode()
			So(err, ShouldBeNil)
			c, ok := decoded.(*object.Commit)
			So(ok, ShouldBeTrue)
			So(c.TreeHash.String(), ShouldEqual, "4b825dc642cb6eb9a060e54bf8d69288fbee4904")
			So(c.Author.Email, ShouldEqual, "author@example.com")
			So(c.Message, ShouldEqual, "initial\n")
		})
		Convey("a garbage tree fails to decode", func() {
			_, err := Object{plumbing.TreeObject, []byte("zz name\x00")}.Decode()
			So(err, errcat.ErrorShouldHaveCategory, scry.ErrBackendResolutionFailed)
		})
	})
}
