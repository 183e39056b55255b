package display

import "gocv.io/x/gocv"

// Window shows frames in a native highgui window. Press q to quit.
type Window struct {
	name string
	win  *gocv.Window
}

// NewWindow returns a window backend. The window itself is created on the first Show.
func NewWindow(name string) *Window {
	if name == "" {
		name = "posecam"
	}
	return &Window{name: name}
}

func (w *Window) Kind() Kind { return KindWindow }

// Show displays the frame and polls the keyboard for 1ms.
func (w *Window) Show(frame gocv.Mat, _ FrameInfo) (bool, error) {
	if frame.Empty() {
		return false, ErrEmptyFrame
	}
	if w.win == nil {
		w.win = gocv.NewWindow(w.name)
	}

	w.win.IMShow(frame)
	key := w.win.WaitKey(1)
	return key&0xFF == 'q', nil
}

// Close destroys the window if it was ever created.
func (w *Window) Close() error {
	if w.win != nil {
		w.win.Close()
		w.win = nil
	}
	return nil
}
