package pose

import (
	"errors"

	"gocv.io/x/gocv"
)

// Sentinel errors for estimator setup and inference.
var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("pose: model file not found")

	// ErrModelLoad is returned when the model cannot be loaded.
	ErrModelLoad = errors.New("pose: failed to load model")

	// ErrEmptyFrame is returned when asked to estimate on an empty frame.
	ErrEmptyFrame = errors.New("pose: empty frame")

	// ErrUnexpectedOutput is returned when the model output shape is not a pose head.
	ErrUnexpectedOutput = errors.New("pose: unexpected model output shape")
)

// Estimator finds at most one person in an RGB frame.
// A nil Pose with a nil error means nobody was detected.
type Estimator interface {
	// Estimate runs inference once, synchronously.
	Estimate(rgb gocv.Mat) (*Pose, error)

	// Close releases resources
	Close() error
}
