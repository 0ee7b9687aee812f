/*
	Helper functions for emitting structured logs to a scry.Monitor.

	These cover the events worth telling a user about when a search or a
	lookup doesn't go the obvious way; using them keeps the wording and the
	detail keys the same everywhere.
	Callers can of course also write their own log events raw; it is freetext.
*/
package log

import (
	"fmt"
	"time"

	"go.polydawn.net/scry"
)

func emit(mon scry.Monitor, level scry.LogLevel, msg string, detail ...[2]string) {
	if mon.Chan == nil {
		return
	}
	mon.Chan <- scry.Event{
		Log: &scry.Event_Log{
			Time:   time.Now(),
			Level:  level,
			Msg:    msg,
			Detail: detail,
		},
	}
}

// A repository-shaped directory was skipped because its owner isn't trusted enough.
func CandidateDiscarded(mon scry.Monitor, candidate fmt.Stringer, observed, required fmt.Stringer) {
	emit(mon, scry.LogWarn,
		fmt.Sprintf("skipping repository at %s: trust %s is below required %s", candidate, observed, required),
		[2]string{"candidate", candidate.String()},
		[2]string{"trust", observed.String()},
		[2]string{"required", required.String()},
	)
}

// The search will not look above this directory because of a ceiling.
func CeilingApplied(mon scry.Monitor, start fmt.Stringer, height int) {
	emit(mon, scry.LogDebug,
		fmt.Sprintf("ceiling directories limit the search to %d levels above %s", height, start),
		[2]string{"start", start.String()},
		[2]string{"ceilingHeight", fmt.Sprint(height)},
	)
}

// The search stopped at a device boundary.
func DeviceBoundary(mon scry.Monitor, start, limit fmt.Stringer) {
	emit(mon, scry.LogInfo,
		fmt.Sprintf("not crossing filesystem boundary at %s", limit),
		[2]string{"start", start.String()},
		[2]string{"limit", limit.String()},
	)
}

// A repository was accepted.
func RepositoryFound(mon scry.Monitor, gitDir fmt.Stringer, kind, level fmt.Stringer) {
	emit(mon, scry.LogDebug,
		fmt.Sprintf("found %s repository at %s", kind, gitDir),
		[2]string{"gitDir", gitDir.String()},
		[2]string{"kind", kind.String()},
		[2]string{"trust", level.String()},
	)
}

// An object cache declined to keep a freshly resolved object.
func CacheRejected(mon scry.Monitor, hash fmt.Stringer, err error) {
	emit(mon, scry.LogDebug,
		fmt.Sprintf("object cache declined %s: %s", hash, err),
		[2]string{"hash", hash.String()},
		[2]string{"error", err.Error()},
	)
}
