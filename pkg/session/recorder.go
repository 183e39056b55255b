package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/ergonomics"
)

// DefaultSaveInterval is the minimum time between saves while streaming.
const DefaultSaveInterval = 5 * time.Second

// ErrNotStarted is returned by Update and Finish before Start.
var ErrNotStarted = errors.New("session: recorder not started")

// Recorder tracks the session of the current run and persists it to a Store.
type Recorder struct {
	store    Store
	interval time.Duration
	now      func() time.Time

	current  *Session
	lastSave time.Time
}

// NewRecorder creates a recorder that saves into store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:    store,
		interval: DefaultSaveInterval,
		now:      time.Now,
	}
}

// Start opens a new active session and saves it.
func (r *Recorder) Start() error {
	now := r.now()
	r.current = NewSession(uuid.New().String(), now)
	r.lastSave = now

	log.Info("session started", "id", r.current.ID)
	return r.store.Save(r.current)
}

// Update records progress. Scores are taken only from frames with a person,
// and the session is saved at most once per interval.
func (r *Recorder) Update(frames int, detected bool, a ergonomics.Assessment) error {
	if r.current == nil {
		return ErrNotStarted
	}

	now := r.now()
	r.current.Frames = frames
	if !detected {
		return nil
	}

	r.current.Detections++
	r.current.Apply(a)

	if now.Sub(r.lastSave) < r.interval {
		return nil
	}
	r.current.LastUpdate = now
	r.current.Duration = now.Sub(r.current.StartTime)
	r.lastSave = now
	return r.store.Save(r.current)
}

// Finish ends the session with status and saves it. Later calls are no-ops.
func (r *Recorder) Finish(status Status, frames int) error {
	if r.current == nil {
		return ErrNotStarted
	}
	if r.current.Finished() {
		return nil
	}

	now := r.now()
	r.current.Frames = frames
	r.current.EndTime = now
	r.current.LastUpdate = now
	r.current.Duration = now.Sub(r.current.StartTime)
	r.current.Status = status

	log.Info("session finished",
		"id", r.current.ID,
		"status", status,
		"duration", r.current.Duration.Truncate(time.Second),
		"frames", frames,
	)
	return r.store.Save(r.current)
}

// Current returns a copy of the session in progress, or nil before Start.
func (r *Recorder) Current() *Session {
	if r.current == nil {
		return nil
	}
	c := *r.current
	return &c
}
