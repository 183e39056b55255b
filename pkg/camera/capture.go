package camera

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Sentinel errors for capture failures.
var (
	// ErrOpenFailed is returned when the capture device cannot be opened.
	ErrOpenFailed = errors.New("camera: could not open device")

	// ErrReadFailed is returned when a frame cannot be read from an open device.
	ErrReadFailed = errors.New("camera: could not read frame")

	// ErrClosed is returned when reading from a released device.
	ErrClosed = errors.New("camera: device closed")
)

// Source is a frame producer. Read fills dst with the next BGR frame.
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// Sizer is implemented by sources that can report the resolution the
// driver actually granted.
type Sizer interface {
	ActualSize() (width, height int)
}

// Opener opens a Source for the given configuration.
type Opener func(cfg Config) (Source, error)

// Device is a local webcam backed by an OpenCV VideoCapture.
type Device struct {
	cap    *gocv.VideoCapture
	config Config
	closed bool
}

// Open opens the capture device and applies the requested resolution.
// The driver may ignore the request; ActualSize reports what was granted.
func Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid config: %v", ErrOpenFailed, errs)
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrOpenFailed, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", ErrOpenFailed, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &Device{cap: vc, config: cfg}, nil
}

// Read grabs the next frame into dst.
func (d *Device) Read(dst *gocv.Mat) error {
	if d.closed {
		return ErrClosed
	}
	if ok := d.cap.Read(dst); !ok || dst.Empty() {
		return ErrReadFailed
	}
	if d.config.Mirror {
		gocv.Flip(*dst, dst, 1)
	}
	return nil
}

// ActualSize returns the resolution the driver actually granted.
func (d *Device) ActualSize() (width, height int) {
	if d.closed {
		return 0, 0
	}
	return int(d.cap.Get(gocv.VideoCaptureFrameWidth)), int(d.cap.Get(gocv.VideoCaptureFrameHeight))
}

// Close releases the device. Safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.cap.Close()
}
