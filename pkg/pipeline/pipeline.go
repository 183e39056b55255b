// Package pipeline runs the capture, annotate and display loop.
//
// The loop is single-threaded: each iteration reads one frame, converts a copy
// to RGB for the estimator, draws the detected skeleton on the original and
// hands it to the display backend. It ends when the backend reports a quit,
// the context is cancelled, or the camera stops delivering frames.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/display"
	"github.com/teslashibe/go-posecam/pkg/ergonomics"
	"github.com/teslashibe/go-posecam/pkg/pose"
	"github.com/teslashibe/go-posecam/pkg/session"
)

// ErrMissingDependency is returned when Deps lacks a required collaborator.
var ErrMissingDependency = errors.New("pipeline: missing dependency")

// Config controls what the loop draws.
type Config struct {
	Camera     camera.Config
	Overlay    pose.Overlay
	HUD        bool // FPS and score text
	Ergonomics bool // REBA / RULA scoring
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		Camera:     camera.DefaultConfig(),
		Overlay:    pose.DefaultOverlay(),
		HUD:        true,
		Ergonomics: true,
	}
}

// Recorder receives session progress. *session.Recorder implements it.
type Recorder interface {
	Start() error
	Update(frames int, detected bool, a ergonomics.Assessment) error
	Finish(status session.Status, frames int) error
}

// Deps are the collaborators of the loop. Recorder, Now and Logger are optional.
type Deps struct {
	Open      camera.Opener
	Estimator pose.Estimator
	Backend   display.Backend
	Recorder  Recorder
	Now       func() time.Time
	Logger    *slog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Open == nil:
		return fmt.Errorf("%w: camera opener", ErrMissingDependency)
	case d.Estimator == nil:
		return fmt.Errorf("%w: estimator", ErrMissingDependency)
	case d.Backend == nil:
		return fmt.Errorf("%w: display backend", ErrMissingDependency)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Reason     ExitReason
	Frames     int     // frames displayed
	Detections int     // frames with a person
	FPS        float64 // last measured rate

	// Resolution granted by the device, or the requested one when the
	// source cannot tell.
	Width, Height int
}

// Run opens the camera and streams until quit, cancellation or a read failure.
// The backend is owned by Run from here on and closed on every path. The
// estimator stays owned by the caller.
//
// A camera that cannot be opened returns an error wrapping camera.ErrOpenFailed
// and nothing is displayed. Every other ending is a normal Result.
func Run(ctx context.Context, cfg Config, deps Deps) (Result, error) {
	if err := deps.validate(); err != nil {
		if deps.Backend != nil {
			deps.Backend.Close()
		}
		return Result{}, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.L()
	}

	s := &stream{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "pipeline", "backend", deps.Backend.Kind().String()),
		fps:    newFPSCounter(deps.Now),
		width:  cfg.Camera.Width,
		height: cfg.Camera.Height,
	}

	if err := s.open(); err != nil {
		s.closeBackend()
		return Result{}, err
	}

	var (
		res      Result
		finished bool
	)
	defer func() {
		// A panic leaves res unset; record the run as interrupted
		if !finished {
			res = s.result(ExitInterrupted)
		}
		s.shutdown(res)
	}()

	res = s.run(ctx)
	finished = true
	return res, nil
}

// stream holds the state of one run.
type stream struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	state  State

	src      camera.Source
	frame    gocv.Mat // BGR, annotated in place
	rgb      gocv.Mat // estimator input
	assessor *ergonomics.Assessor
	fps      *fpsCounter

	frames        int
	detections    int
	lastFPS       float64
	width, height int

	shutdownOnce sync.Once
}

// setState moves the lifecycle forward. A stream starts in StateInit.
func (s *stream) setState(st State) {
	s.logger.Debug("state", "from", s.state.String(), "state", st.String())
	s.state = st
}

func (s *stream) open() error {
	s.setState(StateOpenDevice)
	s.logger.Debug("opening camera", "camera", s.cfg.Camera.String())

	src, err := s.deps.Open(s.cfg.Camera)
	if err != nil {
		if !errors.Is(err, camera.ErrOpenFailed) {
			err = fmt.Errorf("%w: %w", camera.ErrOpenFailed, err)
		}
		s.logger.Error("camera open failed", "error", err)
		return err
	}

	s.src = src
	if sz, ok := src.(camera.Sizer); ok {
		if w, h := sz.ActualSize(); w > 0 && h > 0 {
			if w != s.width || h != s.height {
				s.logger.Info("driver changed resolution",
					"requested", fmt.Sprintf("%dx%d", s.width, s.height),
					"granted", fmt.Sprintf("%dx%d", w, h))
			}
			s.width, s.height = w, h
		}
	}
	s.frame = gocv.NewMat()
	s.rgb = gocv.NewMat()
	return nil
}

func (s *stream) run(ctx context.Context) Result {
	s.setState(StateStreaming)
	s.logger.Info("streaming started", "camera", s.cfg.Camera.String(), "size", fmt.Sprintf("%dx%d", s.width, s.height))

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Start(); err != nil {
			s.logger.Warn("session start failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return s.result(ExitInterrupted)
		default:
		}

		// ACQUIRE
		if err := s.src.Read(&s.frame); err != nil {
			s.logger.Warn("frame read failed", "error", err, "frames", s.frames)
			return s.result(ExitReadFailed)
		}

		quit := s.process()
		if quit {
			return s.result(ExitQuit)
		}
	}
}

// process converts, infers, draws and displays the current frame.
// Returns true when the backend asks to quit.
func (s *stream) process() bool {
	// CONVERT
	gocv.CvtColor(s.frame, &s.rgb, gocv.ColorBGRToRGB)

	// INFER
	p, err := s.deps.Estimator.Estimate(s.rgb)
	if err != nil {
		s.logger.Debug("pose estimation failed", "error", err)
		p = nil
	}

	assessment := ergonomics.NotAvailable()
	if p != nil {
		s.detections++
		if s.cfg.Ergonomics {
			if s.assessor == nil {
				s.assessor = ergonomics.NewAssessor(s.frame.Cols(), s.frame.Rows())
				s.assessor.MinVisibility = s.cfg.Overlay.MinVisibility
			}
			assessment = s.assessor.Assess(p)
		}
	}

	// DRAW
	drawn := s.cfg.Overlay.Draw(&s.frame, p)
	s.lastFPS = s.fps.tick()
	if s.cfg.HUD {
		drawHUD(&s.frame, s.lastFPS, assessment, s.cfg.Ergonomics)
	}

	// DISPLAY
	s.frames++
	info := display.FrameInfo{
		Index:      s.frames,
		FPS:        s.lastFPS,
		Detected:   p != nil,
		Landmarks:  drawn,
		Assessment: assessment,
	}
	quit, err := s.deps.Backend.Show(s.frame, info)
	if err != nil {
		s.logger.Warn("display failed", "error", err, "frame", s.frames)
	}

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Update(s.frames, p != nil, assessment); err != nil {
			s.logger.Warn("session update failed", "error", err)
		}
	}
	return quit
}

func (s *stream) result(reason ExitReason) Result {
	return Result{
		Reason:     reason,
		Frames:     s.frames,
		Detections: s.detections,
		FPS:        s.lastFPS,
		Width:      s.width,
		Height:     s.height,
	}
}

// shutdown releases everything the stream opened. Runs at most once.
func (s *stream) shutdown(res Result) {
	s.shutdownOnce.Do(func() {
		s.setState(StateShutdown)

		if s.deps.Recorder != nil {
			if err := s.deps.Recorder.Finish(res.Reason.SessionStatus(), res.Frames); err != nil {
				s.logger.Warn("session finish failed", "error", err)
			}
		}

		if err := s.src.Close(); err != nil {
			s.logger.Warn("camera close failed", "error", err)
		}
		s.closeBackend()
		s.frame.Close()
		s.rgb.Close()

		s.logger.Info("streaming stopped",
			"reason", res.Reason.String(),
			"frames", res.Frames,
			"detections", res.Detections,
		)
	})
}

func (s *stream) closeBackend() {
	if err := s.deps.Backend.Close(); err != nil {
		s.logger.Warn("display close failed", "error", err)
	}
}
