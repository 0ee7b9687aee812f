/*
	Provides helper functions for checking if we have some functional sets of capabilities.

	Scry itself never needs privileges; these are used to decide whether
	tests which fabricate foreign ownership or device boundaries can run.
*/
package caps

import (
	"os"
	"runtime"

	"github.com/syndtr/gocapability/capability"
)

func Scan() *Fulcrum {
	var err error
	f := &Fulcrum{}
	f.onLinux = runtime.GOOS == "linux"
	f.ourUID = os.Getuid()
	if f.onLinux {
		f.ourCaps, err = capability.NewPid(0) // zero means self
		if err != nil {
			panic(err)
		}
	}
	return f
}

type Fulcrum struct {
	onLinux bool
	ourUID  int
	ourCaps capability.Capabilities // valid on linux; nil on mac (causing completely different logic).
}

// Whether we can hand files to another owner.
// This requires "have CAP_CHOWN";
// or, on mac, is uid==0.
func (f Fulcrum) CanManageOwnership() bool {
	if !f.onLinux {
		return f.ourUID == 0
	}
	return f.ourCaps.Get(capability.EFFECTIVE, capability.CAP_CHOWN)
}

// Whether we can mount things, which is how tests get a second device.
// This requires "have CAP_SYS_ADMIN";
// or, on mac, is uid==0.
func (f Fulcrum) CanMountAny() bool {
	if !f.onLinux {
		return f.ourUID == 0
	}
	return f.ourCaps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN)
}
