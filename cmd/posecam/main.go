// posecam - live pose estimation from a local webcam
//
// Captures frames, draws the detected skeleton with REBA / RULA posture
// scores, and shows the result in a native window or, on headless hosts,
// in a browser viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-posecam/internal/config"
	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/display"
	"github.com/teslashibe/go-posecam/pkg/pipeline"
	"github.com/teslashibe/go-posecam/pkg/pose"
	"github.com/teslashibe/go-posecam/pkg/session"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the collaborators run reaches outside the process for.
type app struct {
	open         camera.Opener
	newEstimator func(pose.YOLOConfig) (pose.Estimator, error)
	probe        display.Prober
}

func defaultApp() *app {
	return &app{
		open: camera.Open,
		newEstimator: func(cfg pose.YOLOConfig) (pose.Estimator, error) {
			y, err := pose.NewYOLO(cfg)
			if err != nil {
				return nil, err
			}
			return y, nil
		},
		probe: display.Probe,
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	return defaultApp().run(context.Background(), args, stdout, stderr)
}

// run executes one posecam process and returns its exit code. The stream
// also ends when parent is cancelled.
func (a *app) run(parent context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Configuration error: %v\n", err)
		return 1
	}
	if err := opts.apply(&cfg); err != nil {
		fmt.Fprintf(stderr, "❌ Configuration error: %v\n", err)
		return 1
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintln(stderr, "❌ Invalid configuration:")
		for _, e := range errs {
			fmt.Fprintf(stderr, "   - %s\n", e)
		}
		return 1
	}

	log.Init(cfg.LogLevel)

	fmt.Fprintln(stdout, "🎥 posecam")
	fmt.Fprintln(stdout, "==========")
	fmt.Fprintf(stdout, "Camera: %s\n", cfg.Camera)
	fmt.Fprintf(stdout, "Model:  %s\n", cfg.Model.ModelPath)

	estimator, err := a.newEstimator(cfg.Model)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Pose model: %v\n", err)
		if errors.Is(err, pose.ErrModelNotFound) {
			fmt.Fprintln(stderr, "   Export one with: yolo export model=yolov8n-pose.pt format=onnx")
		}
		return 1
	}
	defer estimator.Close()

	displayOpts := cfg.DisplayOptions()

	var recorder pipeline.Recorder
	sessionPath, err := cfg.SessionPath()
	if err != nil {
		fmt.Fprintf(stderr, "❌ Session store: %v\n", err)
		return 1
	}
	if sessionPath != "" {
		store, err := session.Open(sessionPath)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Session store: %v\n", err)
			return 1
		}
		if c, ok := store.(io.Closer); ok {
			defer c.Close()
		}
		recorder = session.NewRecorder(store)
		displayOpts.Sessions = store

		summary, err := session.Summarize(store)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Session store: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Sessions: %s (%s)\n", store.Path(), summary)
	}

	// Validate already rejected unknown modes
	mode, _ := display.ParseMode(cfg.Display.Mode)
	backend, err := display.Select(mode, a.probe, displayOpts)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Display: %v\n", err)
		return 1
	}
	if w, ok := backend.(*display.Web); ok {
		fmt.Fprintf(stdout, "🌐 Viewer: %s\n", w.URL())
	} else {
		fmt.Fprintln(stdout, "🖥️  Window: press q to quit")
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintln(stdout, "🔄 Streaming (Ctrl+C to stop)")

	res, err := pipeline.Run(ctx, pipeline.Config{
		Camera:     cfg.Camera,
		Overlay:    overlay(cfg),
		HUD:        cfg.Overlay.HUD,
		Ergonomics: cfg.Ergonomics,
	}, pipeline.Deps{
		Open:      a.open,
		Estimator: estimator,
		Backend:   backend,
		Recorder:  recorder,
	})

	code := exitCode(err)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return code
	}

	if res.Width != cfg.Camera.Width || res.Height != cfg.Camera.Height {
		fmt.Fprintf(stdout, "ℹ️  Camera delivered %dx%d\n", res.Width, res.Height)
	}
	switch res.Reason {
	case pipeline.ExitReadFailed:
		fmt.Fprintf(stdout, "⚠️  Camera stopped delivering frames after %d frames\n", res.Frames)
	default:
		fmt.Fprintf(stdout, "\n👋 Stopped (%s) after %d frames, person in %d\n", res.Reason, res.Frames, res.Detections)
	}
	return code
}

func overlay(cfg config.Config) pose.Overlay {
	o := pose.DefaultOverlay()
	o.MinVisibility = cfg.Overlay.MinVisibility
	return o
}

// exitCode is 0 for every graceful ending and 1 for startup failures.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
