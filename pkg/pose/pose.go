// Package pose provides human pose estimation on camera frames and skeleton overlay drawing.
package pose

// Keypoint indices in the COCO 17-keypoint layout.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumKeypoints is the number of landmarks in a full pose.
	NumKeypoints
)

// DefaultVisibility is the minimum visibility for a landmark to be drawn or scored.
const DefaultVisibility = 0.5

// Landmark is a single estimated keypoint.
type Landmark struct {
	X, Y       float64 // Position (0-1 normalized to frame size)
	Visibility float64 // Keypoint confidence (0-1)
}

// Box is a person bounding box, top-left corner plus size, normalized 0-1.
type Box struct {
	X, Y, W, H float64
}

// Area returns the area of the bounding box
func (b Box) Area() float64 {
	return b.W * b.H
}

// Pose is the estimator result for one person.
type Pose struct {
	Landmarks []Landmark
	Box       Box
	Score     float64 // Person confidence (0-1)
}

// Landmark returns landmark i if it exists and is at least minVisibility.
func (p *Pose) Landmark(i int, minVisibility float64) (Landmark, bool) {
	if p == nil || i < 0 || i >= len(p.Landmarks) {
		return Landmark{}, false
	}
	lm := p.Landmarks[i]
	if lm.Visibility < minVisibility {
		return Landmark{}, false
	}
	return lm, true
}

// VisibleCount returns how many landmarks meet minVisibility.
func (p *Pose) VisibleCount(minVisibility float64) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, lm := range p.Landmarks {
		if lm.Visibility >= minVisibility {
			n++
		}
	}
	return n
}

// Connection is an edge of the skeleton between two keypoint indices.
type Connection struct {
	From, To int
}

// Connections is the COCO skeleton topology.
var Connections = []Connection{
	// Legs
	{LeftAnkle, LeftKnee}, {LeftKnee, LeftHip},
	{RightAnkle, RightKnee}, {RightKnee, RightHip},
	// Torso
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftShoulder, RightShoulder},
	// Arms
	{LeftShoulder, LeftElbow}, {RightShoulder, RightElbow},
	{LeftElbow, LeftWrist}, {RightElbow, RightWrist},
	// Face
	{LeftEye, RightEye},
	{Nose, LeftEye}, {Nose, RightEye},
	{LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftEar, LeftShoulder}, {RightEar, RightShoulder},
}

// SelectBest picks the best person from multiple poses.
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(poses []Pose) *Pose {
	if len(poses) == 0 {
		return nil
	}

	if len(poses) == 1 {
		return &poses[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, p := range poses {
		if p.Box.Area() > maxArea {
			maxArea = p.Box.Area()
		}
	}

	bestScore := -1.0
	var best *Pose

	for i := range poses {
		areaScore := 0.0
		if maxArea > 0 {
			areaScore = poses[i].Box.Area() / maxArea
		}
		score := poses[i].Score*0.7 + areaScore*0.3
		if score > bestScore {
			bestScore = score
			best = &poses[i]
		}
	}

	return best
}
