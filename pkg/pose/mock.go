package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// Mock implements Estimator for testing.
type Mock struct {
	// EstimateFunc is called when Estimate is invoked.
	EstimateFunc func(rgb gocv.Mat) (*Pose, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	calls  int
	closed int
}

// NewMock creates a mock that always detects the given pose (nil = nobody).
func NewMock(p *Pose) *Mock {
	return &Mock{
		EstimateFunc: func(rgb gocv.Mat) (*Pose, error) {
			if p == nil {
				return nil, nil
			}
			cp := *p
			return &cp, nil
		},
	}
}

// Estimate calls EstimateFunc and records the call.
func (m *Mock) Estimate(rgb gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.EstimateFunc != nil {
		return m.EstimateFunc(rgb)
	}
	return nil, nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns how many times Estimate was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// CloseCount returns how many times Close was invoked.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// StandingPose returns an upright, fully visible person facing the camera.
// Useful as a fixture for drawing and scoring.
func StandingPose() *Pose {
	lm := make([]Landmark, NumKeypoints)
	set := func(i int, x, y float64) { lm[i] = Landmark{X: x, Y: y, Visibility: 0.9} }

	set(Nose, 0.50, 0.15)
	set(LeftEye, 0.52, 0.13)
	set(RightEye, 0.48, 0.13)
	set(LeftEar, 0.54, 0.14)
	set(RightEar, 0.46, 0.14)
	set(LeftShoulder, 0.58, 0.28)
	set(RightShoulder, 0.42, 0.28)
	set(LeftElbow, 0.59, 0.42)
	set(RightElbow, 0.41, 0.42)
	set(LeftWrist, 0.59, 0.55)
	set(RightWrist, 0.41, 0.55)
	set(LeftHip, 0.55, 0.55)
	set(RightHip, 0.45, 0.55)
	set(LeftKnee, 0.55, 0.72)
	set(RightKnee, 0.45, 0.72)
	set(LeftAnkle, 0.55, 0.90)
	set(RightAnkle, 0.45, 0.90)

	return &Pose{
		Landmarks: lm,
		Box:       Box{X: 0.40, Y: 0.10, W: 0.20, H: 0.82},
		Score:     0.92,
	}
}
