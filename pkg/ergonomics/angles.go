package ergonomics

import (
	"math"

	"github.com/teslashibe/go-posecam/pkg/pose"
)

// point is a landmark in aspect-corrected frame space.
type point struct {
	X, Y float64
}

// jointAngle returns the angle at vertex b formed by a-b-c, in degrees (0-180).
func jointAngle(a, b, c point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360 - angle
	}
	return angle
}

// angleFromVertical returns the angle of the segment from->to against straight down, in degrees.
// 0 = to is directly below from, 90 = horizontal, 180 = directly above.
func angleFromVertical(from, to point) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	return math.Abs(math.Atan2(dx, dy) * 180.0 / math.Pi)
}

func midpoint(a, b point) point {
	return point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// smoother is a fixed-size moving average.
type smoother struct {
	size   int
	values []float64
}

func (s *smoother) add(v float64) float64 {
	s.values = append(s.values, v)
	if len(s.values) > s.size {
		s.values = s.values[1:]
	}
	sum := 0.0
	for _, x := range s.values {
		sum += x
	}
	return sum / float64(len(s.values))
}

// landmarks resolves visible keypoints with the x axis scaled by the frame aspect ratio,
// so angles are measured in square pixels.
type landmarks struct {
	pose          *pose.Pose
	aspect        float64
	minVisibility float64
}

func (l landmarks) get(idx ...int) ([]point, bool) {
	pts := make([]point, len(idx))
	for i, k := range idx {
		lm, ok := l.pose.Landmark(k, l.minVisibility)
		if !ok {
			return nil, false
		}
		pts[i] = point{X: lm.X * l.aspect, Y: lm.Y}
	}
	return pts, true
}
