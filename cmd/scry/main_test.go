package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/config"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/testutil"
)

func run(args ...string) (scry.ExitCode, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	stdin := &bytes.Buffer{}
	exitCode := Main(context.Background(), append([]string{"scry"}, args...), stdin, stdout, stderr)
	return exitCode, stdout.String(), stderr.String()
}

func TestWithoutArgs(t *testing.T) {
	Convey("scry: usage printed to stderr", t, func() {
		args := []string{"scry"}
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		stdin := &bytes.Buffer{}
		ctx := context.Background()
		exitCode := Main(ctx, args, stdin, stdout, stderr)
		t.Log(string(stdout.Bytes()))
		t.Log(string(stderr.Bytes()))
		So(string(stdout.Bytes()), ShouldBeBlank)
		So(string(stderr.Bytes()), ShouldNotBeBlank)
		firstLine, err := stderr.ReadString('\n')
		So(err, ShouldBeNil)
		So(string(firstLine), ShouldContainSubstring, "usage: scry [<flags>] <command> [<args> ...]")
		So(string(stderr.Bytes()), ShouldNotContainSubstring, "usage: scry [<flags>] <command> [<args> ...]")
		So(exitCode, ShouldEqual, scry.ExitUsage)
	})
}

func TestCommands(t *testing.T) {
	Convey("scry commands", t, func() {
		t.Setenv(config.EnvCeilingDirectories, "")
		testutil.WithTmpdir(func(tmpDir fs.AbsolutePath) {
			work := tmpDir.Join(fs.MustRelPath("work"))
			objects := testutil.MakeWorkTree(work)
			blob := testutil.Blob("hello\n")
			testutil.WritePack(osfs.New(objects.String()), blob)
			sub := work.Join(fs.MustRelPath("sub"))
			testutil.Mkdirs(sub)

			Convey("discover prints the git dir", func() {
				exitCode, stdout, stderr := run("discover", "--cross-fs=yes", sub.String())
				t.Log(stderr)
				So(exitCode, ShouldEqual, scry.ExitSuccess)
				So(stdout, ShouldEqual, work.Join(fs.MustRelPath(".git")).String()+"\n")
			})
			Convey("discover can report json", func() {
				exitCode, stdout, _ := run("--format=json", "discover", "--cross-fs=yes", sub.String())
				So(exitCode, ShouldEqual, scry.ExitSuccess)
				So(stdout, ShouldContainSubstring, `"Kind":"worktree"`)
				So(stdout, ShouldContainSubstring, `"Trust":"full"`)
				So(stdout, ShouldContainSubstring, `"WorkDir":"`+work.String()+`"`)
			})
			Convey("discover reports failure categories", func() {
				exitCode, stdout, _ := run("--format=json", "discover", "--cross-fs=yes", tmpDir.String())
				So(exitCode, ShouldEqual, scry.ExitNotFound)
				So(stdout, ShouldContainSubstring, string(scry.ErrNoRepository))
			})
			Convey("discover honors ceilings", func() {
				exitCode, _, stderr := run("discover", "--cross-fs=yes", "--ceiling-dirs=/unrelated", sub.String())
				So(exitCode, ShouldEqual, scry.ExitUsage)
				So(stderr, ShouldContainSubstring, "ceiling")

				exitCode, _, _ = run("discover", "--cross-fs=yes", "--ceiling-dirs=/unrelated", "--no-match-ceiling", sub.String())
				So(exitCode, ShouldEqual, scry.ExitSuccess)
			})
			Convey("discover rejects a bad boolean", func() {
				exitCode, _, _ := run("discover", "--cross-fs=perhaps", sub.String())
				So(exitCode, ShouldEqual, scry.ExitUsage)
			})
			Convey("verbose mode logs to stderr", func() {
				exitCode, _, stderr := run("-v", "discover", "--cross-fs=yes", sub.String())
				So(exitCode, ShouldEqual, scry.ExitSuccess)
				So(stderr, ShouldContainSubstring, "debug: found worktree repository")
			})
			Convey("cat prints an object's body", func() {
				exitCode, stdout, _ := run("cat", "--cross-fs=yes", "--dir="+sub.String(), blob.Hash().String())
				So(exitCode, ShouldEqual, scry.ExitSuccess)
				So(stdout, ShouldEqual, "hello\n")
			})
			Convey("cat of a missing object is not found", func() {
				exitCode, _, _ := run("cat", "--cross-fs=yes", "--dir="+sub.String(), testutil.Blob("nope").Hash().String())
				So(exitCode, ShouldEqual, scry.ExitNotFound)
			})
			Convey("cat rejects things that aren't ids", func() {
				exitCode, _, stderr := run("cat", "--cross-fs=yes", "--dir="+sub.String(), "HEAD")
				So(exitCode, ShouldEqual, scry.ExitUsage)
				So(stderr, ShouldContainSubstring, "not an object id")
			})
			Convey("has reports each id", func() {
				missing := testutil.Blob("nope").Hash().String()
				exitCode, stdout, _ := run("has", "--cross-fs=yes", "--dir="+sub.String(), blob.Hash().String(), missing)
				So(exitCode, ShouldEqual, scry.ExitNotFound)
				So(strings.Split(strings.TrimSpace(stdout), "\n"), ShouldResemble, []string{
					blob.Hash().String() + " true",
					missing + " false",
				})
			})
		})
	})
}
