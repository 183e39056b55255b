package pipeline

import (
	"fmt"

	"github.com/teslashibe/go-posecam/pkg/session"
)

// State is a stage of the loop lifecycle.
type State int

const (
	StateInit State = iota
	StateOpenDevice
	StateStreaming
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOpenDevice:
		return "open_device"
	case StateStreaming:
		return "streaming"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ExitReason says why streaming ended.
type ExitReason int

const (
	ExitQuit        ExitReason = iota // quit requested through the display
	ExitInterrupted                   // context cancelled
	ExitReadFailed                    // camera stopped delivering frames
)

func (r ExitReason) String() string {
	switch r {
	case ExitQuit:
		return "quit"
	case ExitInterrupted:
		return "interrupted"
	case ExitReadFailed:
		return "read_failed"
	default:
		return fmt.Sprintf("ExitReason(%d)", int(r))
	}
}

// SessionStatus maps the exit reason to the recorded session status.
func (r ExitReason) SessionStatus() session.Status {
	switch r {
	case ExitInterrupted:
		return session.StatusInterrupted
	case ExitReadFailed:
		return session.StatusReadFailed
	default:
		return session.StatusCompleted
	}
}
