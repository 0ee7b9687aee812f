/*
	Trust levels for discovered repositories.

	A repository found on disk may have been planted there by someone else
	(think: a shared /tmp, or a checkout on a mounted volume), and its
	config can cause arbitrary commands to run.  So before honoring
	anything in a repository we classify how much we trust it, and the
	classification is derived purely from file ownership.
*/
package trust

import (
	"os"
	"strconv"

	. "github.com/warpfork/go-errcat"
	"golang.org/x/sys/unix"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
	"go.polydawn.net/scry/fs/osfs"
)

// Ordered: Full is more trusted than Reduced.  The zero value is Reduced.
type Level uint8

const (
	Reduced Level = iota // Owned by someone else.  Look, but don't run anything it says.
	Full                 // Owned by us.
)

// True if this level satisfies the required one.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

func (l Level) String() string {
	switch l {
	case Reduced:
		return "reduced"
	case Full:
		return "full"
	default:
		return "invalid"
	}
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "reduced":
		return Reduced, nil
	case "full":
		return Full, nil
	default:
		return Reduced, Errorf(scry.ErrUsage, "unknown trust level %q (want \"reduced\" or \"full\")", s)
	}
}

/*
	Classify a path by who owns it.

	Full if the path is owned by our effective uid.  When running as root
	via sudo, the invoking user (`SUDO_UID`) also counts as us, so that
	`sudo scry ...` inside one's own checkout behaves as expected.

	Errors are of category `scry.ErrTrustCheckFailed`.
*/
func FromPathOwnership(path fs.AbsolutePath) (Level, error) {
	fmeta, err := osfs.Stat(path)
	if err != nil {
		return Reduced, ErrorDetailed(scry.ErrTrustCheckFailed,
			"could not determine trust level for path: "+err.Error(),
			map[string]string{"path": path.String()})
	}
	if isCurrentUser(fmeta.Uid, unix.Geteuid(), os.Getenv("SUDO_UID")) {
		return Full, nil
	}
	return Reduced, nil
}

func isCurrentUser(owner uint32, euid int, sudoUID string) bool {
	if int64(owner) == int64(euid) {
		return true
	}
	if euid != 0 || sudoUID == "" {
		return false
	}
	uid, err := strconv.ParseUint(sudoUID, 10, 32)
	return err == nil && uint32(uid) == owner
}
