package discover

import (
	"errors"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"
	"golang.org/x/sys/unix"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/testutil"
	"go.polydawn.net/scry/trust"
)

func detailsOf(err error) map[string]string {
	if e, ok := err.(errcat.Error); ok {
		return e.Details()
	}
	return nil
}

// Options for tests on the real filesystem: the tmpdir may well be on its own mount.
func crossFSOptions() Options {
	opts := DefaultOptions()
	opts.CrossFS = true
	return opts
}

// A probe that reports anything at or below one of the given paths as owned by a stranger.
func probeDistrusting(paths ...fs.AbsolutePath) Probe {
	probe := OSProbe()
	probe.Trust = func(p fs.AbsolutePath) (trust.Level, error) {
		for _, untrusted := range paths {
			if _, ok := p.HeightBelow(untrusted); ok {
				return trust.Reduced, nil
			}
		}
		return trust.Full, nil
	}
	return probe
}

// A probe that reports everything outside of `inner` as being on another device.
func probeWithMountAt(inner fs.AbsolutePath) Probe {
	probe := OSProbe()
	realStat := probe.Stat
	probe.Stat = func(p fs.AbsolutePath) (*fs.Metadata, error) {
		fmeta, err := realStat(p)
		if err != nil {
			return nil, err
		}
		if _, ok := p.HeightBelow(inner); !ok {
			fmeta.Dev++
		}
		return fmeta, nil
	}
	return probe
}

func TestUpwards(t *testing.T) {
	Convey("Upward discovery", t, func() {
		testutil.WithTmpdir(func(tmpDir fs.AbsolutePath) {
			repo := tmpDir.Join(fs.MustRelPath("repo"))
			deep := repo.Join(fs.MustRelPath("a/b/c"))
			testutil.Mkdirs(deep)

			Convey("with no repository anywhere above", func() {
				_, _, err := Upwards(deep.String(), crossFSOptions())
				So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepository)
				So(detailsOf(err)["path"], ShouldEqual, deep.String())
			})

			Convey("with a work tree above", func() {
				testutil.MakeWorkTree(repo)

				Convey("it is found from deep inside", func() {
					path, level, err := Upwards(deep.String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(level, ShouldEqual, trust.Full)
					So(path.Kind, ShouldEqual, Kind_WorkTree)
					So(path.GitDir, ShouldResemble, repo.Join(fs.MustRelPath(".git")))
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("it is found from the work tree root", func() {
					path, _, err := Upwards(repo.String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("it is found from inside the git dir", func() {
					path, _, err := Upwards(repo.Join(fs.MustRelPath(".git/refs/heads")).String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(path.Kind, ShouldEqual, Kind_WorkTree)
					So(path.GitDir, ShouldResemble, repo.Join(fs.MustRelPath(".git")))
				})
				Convey("relative starts resolve against the given current dir", func() {
					opts := crossFSOptions()
					opts.CurrentDir = deep.String()
					path, _, err := Upwards("../b", opts)
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("an empty start means the current dir", func() {
					probe := OSProbe()
					probe.Getwd = func() (string, error) { return deep.String(), nil }
					path, _, err := probe.Upwards("", crossFSOptions())
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("the nearest repository wins", func() {
					nested := repo.Join(fs.MustRelPath("a/b"))
					testutil.MakeWorkTree(nested)
					path, _, err := Upwards(deep.String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, nested)
				})
			})

			Convey("with a bare repository above", func() {
				bare := tmpDir.Join(fs.MustRelPath("bare.git"))
				testutil.MakeGitDir(bare)
				path, _, err := Upwards(bare.Join(fs.MustRelPath("objects/pack")).String(), crossFSOptions())
				So(err, ShouldBeNil)
				So(path.Kind, ShouldEqual, Kind_Bare)
				So(path.GitDir, ShouldResemble, bare)
			})

			Convey("bad starting points", func() {
				Convey("a relative path climbing out of the root is rejected", func() {
					opts := crossFSOptions()
					opts.CurrentDir = "/one/two"
					_, _, err := Upwards("../../../etc", opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrInvalidRelativeInput)
				})
				Convey("a relative current dir is rejected", func() {
					opts := crossFSOptions()
					opts.CurrentDir = "nope"
					_, _, err := Upwards("x", opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrInvalidRelativeInput)
				})
				Convey("an unobtainable working directory is fatal", func() {
					probe := OSProbe()
					probe.Getwd = func() (string, error) { return "", errors.New("deleted") }
					_, _, err := probe.Upwards("relative", crossFSOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrCurrentDirUnavailable)
				})
				Convey("the working directory isn't asked for when not needed", func() {
					probe := OSProbe()
					probe.Getwd = func() (string, error) { panic("should not be called") }
					_, _, err := probe.Upwards(deep.String(), crossFSOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepository)
				})
				Convey("a missing directory is inaccessible", func() {
					_, _, err := Upwards(tmpDir.Join(fs.MustRelPath("nope")).String(), crossFSOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrInaccessibleDirectory)
				})
				Convey("a file is inaccessible", func() {
					file := tmpDir.Join(fs.MustRelPath("file"))
					So(os.WriteFile(file.String(), nil, 0644), ShouldBeNil)
					_, _, err := Upwards(file.String(), crossFSOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrInaccessibleDirectory)
				})
			})

			Convey("trust", func() {
				testutil.MakeWorkTree(repo)
				probe := probeDistrusting(repo)

				Convey("a stranger's repository is rejected when full trust is required", func() {
					opts := crossFSOptions()
					opts.RequiredTrust = trust.Full
					_, _, err := probe.Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoTrustedRepository)
					So(detailsOf(err)["candidate"], ShouldEqual, repo.Join(fs.MustRelPath(".git")).String())
				})
				Convey("the same repository is accepted at reduced trust", func() {
					path, level, err := probe.Upwards(deep.String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(level, ShouldEqual, trust.Reduced)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("an untrusted repository is skipped in favor of a trusted one further up", func() {
					testutil.MakeWorkTree(tmpDir)
					opts := crossFSOptions()
					opts.RequiredTrust = trust.Full
					path, level, err := probe.Upwards(deep.String(), opts)
					So(err, ShouldBeNil)
					So(level, ShouldEqual, trust.Full)
					So(path.WorkDir, ShouldResemble, tmpDir)
				})
				Convey("skipped candidates are reported on the monitor", func() {
					ch := make(chan scry.Event, 10)
					opts := crossFSOptions()
					opts.RequiredTrust = trust.Full
					opts.Monitor = scry.Monitor{Chan: ch}
					probe.Upwards(deep.String(), opts)
					close(ch)
					var warnings []string
					for evt := range ch {
						if evt.Log != nil && evt.Log.Level == scry.LogWarn {
							warnings = append(warnings, evt.Log.Msg)
						}
					}
					So(warnings, ShouldHaveLength, 1)
					So(warnings[0], ShouldContainSubstring, repo.Join(fs.MustRelPath(".git")).String())
				})
				Convey("a failing ownership check is fatal", func() {
					probe.Trust = func(fs.AbsolutePath) (trust.Level, error) { return trust.Reduced, errors.New("EIO") }
					_, _, err := probe.Upwards(deep.String(), crossFSOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrTrustCheckFailed)
				})
				Convey("a real stranger-owned repository", testutil.Requires(
					testutil.RequiresCanManageOwnership,
					func() {
						gitDir := repo.Join(fs.MustRelPath(".git"))
						So(os.Lchown(gitDir.String(), testutil.StrangerUID, testutil.StrangerUID), ShouldBeNil)
						if os.Getenv("SUDO_UID") != "" {
							return
						}
						opts := crossFSOptions()
						opts.RequiredTrust = trust.Full
						_, _, err := Upwards(deep.String(), opts)
						So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoTrustedRepository)
						_, level, err := Upwards(deep.String(), crossFSOptions())
						So(err, ShouldBeNil)
						So(level, ShouldEqual, trust.Reduced)
					},
				))
			})

			Convey("ceilings", func() {
				testutil.MakeWorkTree(repo)

				Convey("a ceiling unrelated to the repository is an error", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{fs.MustAbsolutePath("/unrelated")}
					_, _, err := Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoMatchingCeilingDirectory)
				})
				Convey("an unrelated ceiling is tolerated when matching isn't demanded", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{fs.MustAbsolutePath("/unrelated")}
					opts.MatchCeilingDirOrError = false
					path, _, err := Upwards(deep.String(), opts)
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("the ceiling directory itself is still examined", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{repo}
					path, _, err := Upwards(deep.String(), opts)
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("a ceiling below the repository stops the search", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{
						fs.MustAbsolutePath("/unrelated"),
						tmpDir,
						repo.Join(fs.MustRelPath("a")),
					}
					_, _, err := Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepositoryWithinCeiling)
					So(detailsOf(err)["ceilingHeight"], ShouldEqual, "2")
				})
				Convey("a ceiling equal to the start examines only the start", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{deep, tmpDir}
					_, _, err := Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepositoryWithinCeiling)
					So(detailsOf(err)["ceilingHeight"], ShouldEqual, "0")

					opts.MatchCeilingDirOrError = false
					_, _, err = Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepositoryWithinCeiling)
				})
				Convey("a ceiling equal to the start still finds a repository there", func() {
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{repo}
					path, _, err := Upwards(repo.String(), opts)
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("a ceiling naming the git dir itself matches the work tree found there", func() {
					gitDir := repo.Join(fs.MustRelPath(".git"))
					opts := crossFSOptions()
					opts.CeilingDirs = []fs.AbsolutePath{gitDir}
					path, _, err := Upwards(repo.String(), opts)
					So(err, ShouldBeNil)
					So(path.GitDir, ShouldResemble, gitDir)
				})
				Convey("skipped candidates still win over the ceiling as the reason", func() {
					nested := repo.Join(fs.MustRelPath("a"))
					testutil.MakeWorkTree(nested)
					opts := crossFSOptions()
					opts.RequiredTrust = trust.Full
					opts.CeilingDirs = []fs.AbsolutePath{nested}
					_, _, err := probeDistrusting(nested).Upwards(deep.String(), opts)
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoTrustedRepository)
				})
			})

			Convey("filesystem boundaries", func() {
				testutil.MakeWorkTree(repo)
				inner := repo.Join(fs.MustRelPath("a"))
				probe := probeWithMountAt(inner)

				Convey("stop the search by default", func() {
					_, _, err := probe.Upwards(deep.String(), DefaultOptions())
					So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepositoryWithinFilesystem)
					So(detailsOf(err)["limit"], ShouldEqual, repo.String())
				})
				Convey("can be crossed on request", func() {
					path, _, err := probe.Upwards(deep.String(), crossFSOptions())
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, repo)
				})
				Convey("don't matter for a repository on the same device", func() {
					testutil.MakeWorkTree(inner)
					path, _, err := probe.Upwards(deep.String(), DefaultOptions())
					So(err, ShouldBeNil)
					So(path.WorkDir, ShouldResemble, inner)
				})
				Convey("a real tmpfs below the repository", testutil.Requires(
					testutil.RequiresCanMountAny,
					testutil.RequiresEnvBlank("SCRY_TEST_SKIP_MOUNTS"),
					func() {
						So(unix.Mount("tmpfs", inner.String(), "tmpfs", 0, "size=1m"), ShouldBeNil)
						defer unix.Unmount(inner.String(), 0)
						start := inner.Join(fs.MustRelPath("x"))
						testutil.Mkdirs(start)
						_, _, err := Upwards(start.String(), DefaultOptions())
						So(scry.CategoryOf(err), ShouldEqual, scry.ErrNoRepositoryWithinFilesystem)
						So(strings.HasPrefix(detailsOf(err)["limit"], tmpDir.String()), ShouldBeTrue)
					},
				))
			})
		})
	})
}

func TestCeilingHeight(t *testing.T) {
	Convey("Ceiling height", t, func() {
		start := fs.MustAbsolutePath("/a/b/c/d")
		Convey("no ceilings means unbounded", func() {
			_, bounded := ceilingHeight(start, nil)
			So(bounded, ShouldBeFalse)
		})
		Convey("the nearest containing ceiling wins", func() {
			height, bounded := ceilingHeight(start, []fs.AbsolutePath{
				fs.MustAbsolutePath("/"),
				fs.MustAbsolutePath("/a/b"),
				fs.MustAbsolutePath("/a"),
				fs.MustAbsolutePath("/a/bb"),
				fs.MustAbsolutePath("/a/b/c/d/e"),
			})
			So(bounded, ShouldBeTrue)
			So(height, ShouldEqual, 2)
		})
		Convey("the start itself is a ceiling of height zero", func() {
			height, bounded := ceilingHeight(start, []fs.AbsolutePath{fs.MustAbsolutePath("/a"), start})
			So(bounded, ShouldBeTrue)
			So(height, ShouldEqual, 0)
		})
	})
}
