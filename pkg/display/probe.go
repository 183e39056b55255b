package display

import (
	"os"
	"runtime"

	"gocv.io/x/gocv"
)

// Prober reports whether a native window can be shown.
type Prober func() bool

// Probe tries to open and close a throwaway highgui window.
// Any failure means no native display.
func Probe() (ok bool) {
	if !hasDisplayServer() {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	w := gocv.NewWindow("posecam-probe")
	w.Close()
	return true
}

// hasDisplayServer is false on Linux without X11 or Wayland, where GTK
// would abort the process instead of failing.
func hasDisplayServer() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}
