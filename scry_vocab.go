package scry

// Types in this file are all serializable.
// They are what the CLI emits, and what a Monitor receives.

import (
	"time"
)

type LogLevel int8

const (
	LogError LogLevel = 4
	LogWarn  LogLevel = 3
	LogInfo  LogLevel = 2
	LogDebug LogLevel = 1
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogWarn:
		return "warn"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "unknown"
	}
}

/*
	Receives structured events while long-ish operations run.

	A zero Monitor (nil Chan) means nobody is listening, and emitting is a no-op.
	Sends are blocking: whoever supplies the channel must drain it.
*/
type Monitor struct {
	Chan chan<- Event
}

// Union type: exactly one field is set.
type Event struct {
	Log    *Event_Log    `refmt:",omitempty"`
	Result *Event_Result `refmt:",omitempty"`
}

type Event_Log struct {
	Time   time.Time
	Level  LogLevel
	Msg    string
	Detail [][2]string
}

/*
	The final word of a CLI invocation.

	Exactly one of the payload groups is meaningful, depending on the subcommand:
	discovery fills in Path/Kind/Trust; object commands fill in Objects.
*/
type Event_Result struct {
	Path    string         `refmt:",omitempty"`
	WorkDir string         `refmt:",omitempty"`
	Kind    string         `refmt:",omitempty"`
	Trust   string         `refmt:",omitempty"`
	Objects []ObjectReport `refmt:",omitempty"`
	Error   *ErrorReport   `refmt:",omitempty"`
}

type ObjectReport struct {
	Hash  string
	Kind  string `refmt:",omitempty"`
	Size  int64  `refmt:",omitempty"`
	Found bool
	Body  string `refmt:",omitempty"` // only filled in by `scry cat`
}

type ErrorReport struct {
	Category ErrorCategory
	Msg      string
	Details  map[string]string `refmt:",omitempty"`
}

func (r *Event_Result) SetError(err error) {
	if err == nil {
		return
	}
	r.Error = &ErrorReport{
		Category: CategoryOf(err),
		Msg:      err.Error(),
	}
	if detailed, ok := err.(interface{ Details() map[string]string }); ok {
		r.Error.Details = detailed.Details()
	}
}
