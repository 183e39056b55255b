package display

import (
	"fmt"
	"net"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posecam/pkg/web"
)

// Web publishes frames to the browser viewer.
type Web struct {
	server  *web.Server
	quality int
	pause   time.Duration
}

// NewWeb starts the viewer server described by opts.
func NewWeb(opts Options) (*Web, error) {
	srv := web.NewServer(opts.Web, opts.Camera)
	if opts.Sessions != nil {
		srv.SetSessions(opts.Sessions)
	}
	if err := srv.Start(); err != nil {
		srv.Shutdown()
		return nil, err
	}

	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultOptions().JPEGQuality
	}
	return &Web{server: srv, quality: quality, pause: opts.Pause}, nil
}

func (w *Web) Kind() Kind { return KindWeb }

// Server returns the underlying viewer server.
func (w *Web) Server() *web.Server { return w.server }

// URL is where a browser can reach the viewer.
func (w *Web) URL() string {
	_, port, err := net.SplitHostPort(w.server.Addr())
	if err != nil {
		return "http://" + w.server.Addr()
	}
	return "http://localhost:" + port
}

// Show replaces the viewer's frame and status, then pauses so viewers can refresh.
// Quit is reported once a viewer has requested a stop.
func (w *Web) Show(frame gocv.Mat, info FrameInfo) (bool, error) {
	if frame.Empty() {
		return false, ErrEmptyFrame
	}

	jpeg, err := encodeJPEG(frame, w.quality)
	if err != nil {
		return false, err
	}
	w.server.PublishFrame(jpeg)
	w.server.PublishStatus(func(st *web.Status) {
		st.Streaming = true
		st.Frame = info.Index
		st.FPS = info.FPS
		st.Detected = info.Detected
		st.Landmarks = info.Landmarks
		st.REBA = info.Assessment.REBA
		st.RULA = info.Assessment.RULA
	})

	if w.pause > 0 {
		time.Sleep(w.pause)
	}
	return w.server.StopRequested(), nil
}

// Close stops the viewer server.
func (w *Web) Close() error {
	w.server.PublishStatus(func(st *web.Status) { st.Streaming = false })
	return w.server.Shutdown()
}

// encodeJPEG returns a Go-owned copy of the encoded frame.
func encodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("display: encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
