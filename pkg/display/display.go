// Package display decides where annotated frames go: a native window when the
// host can show one, otherwise the browser viewer.
package display

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/ergonomics"
	"github.com/teslashibe/go-posecam/pkg/session"
	"github.com/teslashibe/go-posecam/pkg/web"
)

var (
	// ErrUnknownMode is returned for a display mode other than auto, window or web.
	ErrUnknownMode = errors.New("display: unknown mode")

	// ErrEmptyFrame is returned when Show is handed an empty frame.
	ErrEmptyFrame = errors.New("display: empty frame")
)

// Mode is the requested display mode.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeWindow Mode = "window"
	ModeWeb    Mode = "web"
)

// ParseMode parses a mode name. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeWindow:
		return ModeWindow, nil
	case ModeWeb:
		return ModeWeb, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Kind is the backend actually in use.
type Kind int

const (
	KindWindow Kind = iota // native highgui window
	KindWeb                // browser viewer
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindWeb:
		return "web"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FrameInfo is per-frame metadata handed to the backend with the frame.
type FrameInfo struct {
	Index      int
	FPS        float64
	Detected   bool
	Landmarks  int
	Assessment ergonomics.Assessment
}

// Backend shows annotated frames.
type Backend interface {
	Kind() Kind

	// Show displays frame and reports whether the user asked to quit.
	// The frame is only borrowed for the duration of the call.
	Show(frame gocv.Mat, info FrameInfo) (quit bool, err error)

	Close() error
}

// Options configures both backends. Only the fields of the selected one are used.
type Options struct {
	WindowName  string
	Web         web.Config
	Camera      camera.Config
	JPEGQuality int
	Pause       time.Duration
	Sessions    session.Store // optional, served by the web viewer
}

// DefaultOptions returns the default backend options.
func DefaultOptions() Options {
	return Options{
		WindowName:  "posecam",
		Web:         web.DefaultConfig(),
		Camera:      camera.DefaultConfig(),
		JPEGQuality: 80,
		Pause:       10 * time.Millisecond,
	}
}

// Select resolves mode to exactly one backend. The probe only runs for ModeAuto,
// and only once.
func Select(mode Mode, probe Prober, opts Options) (Backend, error) {
	switch mode {
	case ModeWindow:
		return NewWindow(opts.WindowName), nil
	case ModeWeb:
		return NewWeb(opts)
	case ModeAuto:
		if probe == nil {
			probe = Probe
		}
		if probe() {
			log.Debug("native display available")
			return NewWindow(opts.WindowName), nil
		}
		log.Info("no native display, falling back to web viewer", "addr", opts.Web.Addr())
		return NewWeb(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
}
