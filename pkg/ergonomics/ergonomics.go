// Package ergonomics scores working posture from pose landmarks using simplified
// REBA (Rapid Entire Body Assessment) and RULA (Rapid Upper Limb Assessment) tables.
package ergonomics

import (
	"image/color"

	"github.com/teslashibe/go-posecam/pkg/pose"
)

// Risk is the action level for a score.
type Risk string

const (
	RiskNA             Risk = "N/A"
	RiskAcceptable     Risk = "Acceptable"
	RiskInvestigate    Risk = "Investigate"
	RiskActionRequired Risk = "Action Required"
)

// Color returns the display color for the risk level.
func (r Risk) Color() color.RGBA {
	switch r {
	case RiskAcceptable:
		return color.RGBA{R: 16, G: 185, B: 129, A: 255} // Green
	case RiskInvestigate:
		return color.RGBA{R: 245, G: 158, B: 11, A: 255} // Orange
	case RiskActionRequired:
		return color.RGBA{R: 239, G: 68, B: 68, A: 255} // Red
	default:
		return color.RGBA{R: 153, G: 153, B: 153, A: 255}
	}
}

// Components are the per-body-part posture scores.
type Components struct {
	Neck  int `json:"neck"`  // 1-4
	Trunk int `json:"trunk"` // 1-4
	Arm   int `json:"arm"`   // 1-4, worst side
	Wrist int `json:"wrist"` // 1-3, worst side
	Leg   int `json:"leg"`   // 1-4, worst side
}

// Score is a REBA or RULA result.
type Score struct {
	Score      int        `json:"score"`
	Risk       Risk       `json:"risk"`
	Components Components `json:"components"`
}

// Assessment holds both scores for one frame.
type Assessment struct {
	REBA Score `json:"reba"`
	RULA Score `json:"rula"`
}

// NotAvailable is the assessment when no person is detected.
func NotAvailable() Assessment {
	return Assessment{
		REBA: Score{Risk: RiskNA},
		RULA: Score{Risk: RiskNA},
	}
}

// HistorySize is the number of frames each joint angle is averaged over.
const HistorySize = 5

// Assessor scores consecutive frames of one person. Joint angles are smoothed
// across calls, so use one Assessor per stream. Not safe for concurrent use.
type Assessor struct {
	// Aspect is frame width / height. Landmarks are normalized per axis,
	// so angles are skewed on non-square frames unless this is set.
	Aspect float64

	// MinVisibility is the threshold below which a landmark is treated as missing.
	MinVisibility float64

	history map[string]*smoother
}

// NewAssessor creates an assessor for frames of the given size.
func NewAssessor(width, height int) *Assessor {
	aspect := 1.0
	if width > 0 && height > 0 {
		aspect = float64(width) / float64(height)
	}
	return &Assessor{
		Aspect:        aspect,
		MinVisibility: pose.DefaultVisibility,
		history:       make(map[string]*smoother),
	}
}

func (a *Assessor) smooth(key string, v float64) float64 {
	s, ok := a.history[key]
	if !ok {
		s = &smoother{size: HistorySize}
		a.history[key] = s
	}
	return s.add(v)
}

// Assess scores a pose. A nil pose yields NotAvailable.
func (a *Assessor) Assess(p *pose.Pose) Assessment {
	if p == nil || len(p.Landmarks) < pose.NumKeypoints {
		return NotAvailable()
	}

	lm := landmarks{pose: p, aspect: a.Aspect, minVisibility: a.MinVisibility}
	c := Components{
		Neck:  a.neck(lm),
		Trunk: a.trunk(lm),
		Arm:   max(a.arm(lm, "left"), a.arm(lm, "right")),
		Wrist: 1, // COCO keypoints carry no hand landmarks, wrists are scored neutral
		Leg:   max(a.leg(lm, "left"), a.leg(lm, "right")),
	}

	return Assessment{
		REBA: reba(c),
		RULA: rula(c),
	}
}

// neck scores head flexion from the shoulder midpoint to the nose.
func (a *Assessor) neck(lm landmarks) int {
	pts, ok := lm.get(pose.Nose, pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return 1
	}
	angle := a.smooth("neck", angleFromVertical(midpoint(pts[1], pts[2]), pts[0]))

	// Upright head points straight up (~180)
	switch {
	case angle < 15 || angle > 165:
		return 1
	case angle < 30 || angle > 150:
		return 2
	case angle < 45 || angle > 135:
		return 3
	default:
		return 4
	}
}

// trunk scores forward lean from the shoulder midpoint down to the hip midpoint.
func (a *Assessor) trunk(lm landmarks) int {
	pts, ok := lm.get(pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip)
	if !ok {
		return 1
	}
	angle := a.smooth("trunk", angleFromVertical(midpoint(pts[0], pts[1]), midpoint(pts[2], pts[3])))

	switch {
	case angle < 20:
		return 1
	case angle < 45:
		return 2
	case angle < 60:
		return 3
	default:
		return 4
	}
}

// arm scores upper arm elevation from shoulder to elbow.
func (a *Assessor) arm(lm landmarks, side string) int {
	shoulder, elbow := pose.LeftShoulder, pose.LeftElbow
	if side == "right" {
		shoulder, elbow = pose.RightShoulder, pose.RightElbow
	}
	pts, ok := lm.get(shoulder, elbow)
	if !ok {
		return 1
	}
	angle := a.smooth(side+"Arm", angleFromVertical(pts[0], pts[1]))

	switch {
	case angle < 20 || angle > 160:
		return 1
	case angle < 45 || angle > 135:
		return 2
	case angle < 80 || angle > 100:
		return 3
	default:
		return 4 // Raised to about shoulder height
	}
}

// leg scores knee flexion from the hip-knee-ankle angle.
func (a *Assessor) leg(lm landmarks, side string) int {
	hip, knee, ankle := pose.LeftHip, pose.LeftKnee, pose.LeftAnkle
	if side == "right" {
		hip, knee, ankle = pose.RightHip, pose.RightKnee, pose.RightAnkle
	}
	pts, ok := lm.get(hip, knee, ankle)
	if !ok {
		return 1
	}
	angle := a.smooth(side+"Leg", jointAngle(pts[0], pts[1], pts[2]))

	switch {
	case angle >= 160:
		return 1
	case angle >= 120:
		return 2
	case angle >= 90:
		return 3
	default:
		return 4
	}
}

// reba combines group A (trunk + leg), group B (arm + wrist) and neck into a 1-15 score.
func reba(c Components) Score {
	groupA := c.Trunk + c.Leg
	groupB := c.Arm + c.Wrist

	score := 7
	for base := 1; base <= 6; base++ {
		if groupA <= base+1 && groupB <= base+1 {
			score = base
			break
		}
	}
	score += c.Neck - 1
	score = clampInt(score, 1, 15)

	var risk Risk
	switch {
	case score <= 3:
		risk = RiskAcceptable
	case score <= 7:
		risk = RiskInvestigate
	default:
		risk = RiskActionRequired
	}

	return Score{Score: score, Risk: risk, Components: c}
}

// rula combines upper limb (arm + wrist) and body (neck + trunk) into a 1-7 score.
func rula(c Components) Score {
	upperLimb := c.Arm + c.Wrist
	body := c.Neck + c.Trunk

	score := 6
	for base := 1; base <= 5; base++ {
		if upperLimb <= base+1 && body <= base+1 {
			score = base
			break
		}
	}
	score = clampInt(score, 1, 7)

	var risk Risk
	switch {
	case score <= 2:
		risk = RiskAcceptable
	case score <= 4:
		risk = RiskInvestigate
	default:
		risk = RiskActionRequired
	}

	// RULA has no leg component
	c.Leg = 0
	return Score{Score: score, Risk: risk, Components: c}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
