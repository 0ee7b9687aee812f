package odb

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/testutil"
)

func TestSink(t *testing.T) {
	Convey("The sink", t, func() {
		raw := testutil.Blob("into the void")
		sink := Sink{}

		Convey("accepts writes and reports their ids", func() {
			id, err := sink.Write(Object{raw.Kind, raw.Data})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, raw.Hash())

			id, err = sink.WriteStream(raw.Kind, int64(len(raw.Data)), strings.NewReader(string(raw.Data)))
			So(err, ShouldBeNil)
			So(id, ShouldEqual, raw.Hash())
		})
		Convey("rejects streams of the wrong length", func() {
			_, err := sink.WriteStream(plumbing.BlobObject, 99, strings.NewReader("short"))
			So(err, errcat.ErrorShouldHaveCategory, scry.ErrUsage)
		})
		Convey("never has anything, even what was just written to it", func() {
			sink.Write(Object{raw.Kind, raw.Data})
			_, ok, err := NewHandle(sink, nil, NewObjectCacheLRU(1024)).Find(raw.Hash())
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}
