package main

import (
	"flag"
	"io"
	"strings"

	"github.com/teslashibe/go-posecam/internal/config"
	"github.com/teslashibe/go-posecam/pkg/camera"
)

// options holds parsed command line flags. Only flags that were given
// override the loaded configuration.
type options struct {
	configPath  string
	camera      int
	width       int
	height      int
	fps         int
	mirror      bool
	preset      string
	model       string
	display     string
	webPort     int
	hud         bool
	ergonomics  bool
	record      bool
	sessionFile string
	logLevel    string

	set map[string]bool
}

// parseFlags parses command line flags.
func parseFlags(args []string, output io.Writer) (*options, error) {
	def := config.Default()
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("posecam", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/posecam/config.toml or $POSECAM_CONFIG)")
	fs.IntVar(&opts.camera, "camera", def.Camera.Device, "Camera device index")
	fs.IntVar(&opts.width, "width", def.Camera.Width, "Requested frame width")
	fs.IntVar(&opts.height, "height", def.Camera.Height, "Requested frame height")
	fs.IntVar(&opts.fps, "fps", def.Camera.Framerate, "Requested frame rate (0 = driver default)")
	fs.BoolVar(&opts.mirror, "mirror", def.Camera.Mirror, "Flip frames horizontally")
	fs.StringVar(&opts.preset, "preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	fs.StringVar(&opts.model, "model", def.Model.ModelPath, "YOLOv8-pose ONNX model")
	fs.StringVar(&opts.display, "display", def.Display.Mode, "Display: auto, window, web")
	fs.IntVar(&opts.webPort, "web-port", def.Web.Port, "Web viewer port")
	fs.BoolVar(&opts.hud, "hud", def.Overlay.HUD, "Draw FPS and scores on frames")
	fs.BoolVar(&opts.ergonomics, "ergonomics", def.Ergonomics, "Compute REBA / RULA scores")
	fs.BoolVar(&opts.record, "record", def.Session.Record, "Record sessions to ~/.posecam/sessions.json")
	fs.StringVar(&opts.sessionFile, "session-file", "", "Record sessions to this file (.db, .sqlite or .sqlite3 for SQLite, else JSON)")
	fs.StringVar(&opts.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// apply overrides cfg with the flags that were set. A preset is applied
// first so explicit sizes win over it.
func (o *options) apply(cfg *config.Config) error {
	if o.set["preset"] {
		if err := cfg.ApplyPreset(o.preset); err != nil {
			return err
		}
	}
	if o.set["camera"] {
		cfg.Camera.Device = o.camera
	}
	if o.set["width"] {
		cfg.Camera.Width = o.width
	}
	if o.set["height"] {
		cfg.Camera.Height = o.height
	}
	if o.set["fps"] {
		cfg.Camera.Framerate = o.fps
	}
	if o.set["mirror"] {
		cfg.Camera.Mirror = o.mirror
	}
	if o.set["model"] {
		cfg.Model.ModelPath = o.model
	}
	if o.set["display"] {
		cfg.Display.Mode = o.display
	}
	if o.set["web-port"] {
		cfg.Web.Port = o.webPort
	}
	if o.set["hud"] {
		cfg.Overlay.HUD = o.hud
	}
	if o.set["ergonomics"] {
		cfg.Ergonomics = o.ergonomics
	}
	if o.set["record"] {
		cfg.Session.Record = o.record
	}
	if o.set["session-file"] {
		cfg.Session.File = o.sessionFile
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	return nil
}
