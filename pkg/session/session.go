// Package session records one row per streaming run: when it ran, how long,
// and the latest posture scores.
package session

import (
	"time"

	"github.com/teslashibe/go-posecam/pkg/ergonomics"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"   // user quit
	StatusInterrupted Status = "interrupted" // SIGINT / SIGTERM
	StatusReadFailed  Status = "read_failed" // camera stopped delivering frames
)

// Session is a single streaming run.
type Session struct {
	ID             string                `json:"id"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time,omitzero"`
	LastUpdate     time.Time             `json:"last_update"`
	Duration       time.Duration         `json:"duration"`
	Frames         int                   `json:"frames"`
	Detections     int                   `json:"detections"`
	REBAScore      int                   `json:"reba_score"`
	RULAScore      int                   `json:"rula_score"`
	REBARisk       ergonomics.Risk       `json:"reba_risk"`
	RULARisk       ergonomics.Risk       `json:"rula_risk"`
	REBAComponents ergonomics.Components `json:"reba_components"`
	RULAComponents ergonomics.Components `json:"rula_components"`
	Status         Status                `json:"status"`
}

// NewSession creates an active session starting at start.
func NewSession(id string, start time.Time) *Session {
	return &Session{
		ID:         id,
		StartTime:  start,
		LastUpdate: start,
		REBARisk:   ergonomics.RiskNA,
		RULARisk:   ergonomics.RiskNA,
		Status:     StatusActive,
	}
}

// Apply copies the scores of an assessment, with their per-body-part
// breakdown, into the session.
func (s *Session) Apply(a ergonomics.Assessment) {
	s.REBAScore = a.REBA.Score
	s.RULAScore = a.RULA.Score
	s.REBARisk = a.REBA.Risk
	s.RULARisk = a.RULA.Risk
	s.REBAComponents = a.REBA.Components
	s.RULAComponents = a.RULA.Components
}

// Finished reports whether the session has ended.
func (s *Session) Finished() bool {
	return s.Status != StatusActive
}
