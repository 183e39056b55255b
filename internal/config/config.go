// Package config loads posecam settings from defaults, an optional TOML file
// and POSECAM_* environment variables. Command-line flags are applied on top
// by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/display"
	"github.com/teslashibe/go-posecam/pkg/pose"
	"github.com/teslashibe/go-posecam/pkg/session"
	"github.com/teslashibe/go-posecam/pkg/web"
)

// EnvPrefix prefixes every environment override, e.g. POSECAM_CAMERA_WIDTH.
const EnvPrefix = "POSECAM"

// ErrUnknownPreset is returned for a camera preset name that does not exist.
var ErrUnknownPreset = errors.New("config: unknown camera preset")

// Config holds application configuration.
type Config struct {
	Camera     camera.Config   `mapstructure:"camera"`
	Preset     string          `mapstructure:"preset"`
	Model      pose.YOLOConfig `mapstructure:"model"`
	Display    DisplayConfig   `mapstructure:"display"`
	Web        web.Config      `mapstructure:"web"`
	Overlay    OverlayConfig   `mapstructure:"overlay"`
	Session    SessionConfig   `mapstructure:"session"`
	Ergonomics bool            `mapstructure:"ergonomics"`
	LogLevel   string          `mapstructure:"log_level"`
}

// DisplayConfig holds backend selection settings.
type DisplayConfig struct {
	Mode        string        `mapstructure:"mode"`
	WindowName  string        `mapstructure:"window_name"`
	JPEGQuality int           `mapstructure:"jpeg_quality"`
	Pause       time.Duration `mapstructure:"pause"`
}

// OverlayConfig holds drawing settings.
type OverlayConfig struct {
	HUD           bool    `mapstructure:"hud"`
	MinVisibility float64 `mapstructure:"min_visibility"`
}

// SessionConfig holds session recording settings. Recording is on when
// Record is set or File is given; Record alone uses the default store path.
type SessionConfig struct {
	Record bool   `mapstructure:"record"`
	File   string `mapstructure:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := display.DefaultOptions()
	return Config{
		Camera: camera.DefaultConfig(),
		Model:  pose.DefaultYOLOConfig(),
		Display: DisplayConfig{
			Mode:        string(display.ModeAuto),
			WindowName:  opts.WindowName,
			JPEGQuality: opts.JPEGQuality,
			Pause:       opts.Pause,
		},
		Web: web.DefaultConfig(),
		Overlay: OverlayConfig{
			HUD:           true,
			MinVisibility: pose.DefaultVisibility,
		},
		Ergonomics: true,
		LogLevel:   "info",
	}
}

// DefaultPath returns ~/.config/posecam/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "posecam", "config.toml")
}

// Load reads configuration from file and env. path overrides POSECAM_CONFIG;
// when both are empty the default path is tried and may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else if def := DefaultPath(); def != "" {
		v.AddConfigPath(filepath.Dir(def))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// A preset only replaces defaults, so explicit sizes from file or env win
	if name := v.GetString("preset"); name != "" {
		p, err := lookupPreset(name)
		if err != nil {
			return Config{}, err
		}
		v.SetDefault("camera.width", p.Width)
		v.SetDefault("camera.height", p.Height)
		v.SetDefault("camera.framerate", p.Framerate)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("camera.device", d.Camera.Device)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.framerate", d.Camera.Framerate)
	v.SetDefault("camera.mirror", d.Camera.Mirror)
	v.SetDefault("preset", d.Preset)

	v.SetDefault("model.model_path", d.Model.ModelPath)
	v.SetDefault("model.confidence", d.Model.ConfidenceThresh)
	v.SetDefault("model.nms", d.Model.NMSThresh)
	v.SetDefault("model.input_width", d.Model.InputWidth)
	v.SetDefault("model.input_height", d.Model.InputHeight)

	v.SetDefault("display.mode", d.Display.Mode)
	v.SetDefault("display.window_name", d.Display.WindowName)
	v.SetDefault("display.jpeg_quality", d.Display.JPEGQuality)
	v.SetDefault("display.pause", d.Display.Pause)

	v.SetDefault("web.host", d.Web.Host)
	v.SetDefault("web.port", d.Web.Port)

	v.SetDefault("overlay.hud", d.Overlay.HUD)
	v.SetDefault("overlay.min_visibility", d.Overlay.MinVisibility)

	v.SetDefault("session.record", d.Session.Record)
	v.SetDefault("session.file", d.Session.File)
	v.SetDefault("ergonomics", d.Ergonomics)
	v.SetDefault("log_level", d.LogLevel)
}

// ApplyPreset replaces the camera resolution and framerate with a named preset.
// Device and mirroring are kept.
func (c *Config) ApplyPreset(name string) error {
	p, err := lookupPreset(name)
	if err != nil {
		return err
	}
	c.Camera.Width = p.Width
	c.Camera.Height = p.Height
	c.Camera.Framerate = p.Framerate
	c.Preset = name
	return nil
}

func lookupPreset(name string) (*camera.Config, error) {
	p := camera.GetPreset(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(camera.PresetNames(), ", "))
	}
	return p, nil
}

// Validate checks all sections. Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	errs := c.Camera.Validate()

	if _, err := display.ParseMode(c.Display.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("display mode must be auto, window or web, got %q", c.Display.Mode))
	}
	if c.Display.JPEGQuality < 1 || c.Display.JPEGQuality > 100 {
		errs = append(errs, "jpeg quality must be between 1 and 100")
	}
	if c.Display.Pause < 0 {
		errs = append(errs, "display pause must be >= 0")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, "web port must be between 0 and 65535")
	}
	if c.Model.ModelPath == "" {
		errs = append(errs, "model path is required")
	}
	if c.Model.ConfidenceThresh <= 0 || c.Model.ConfidenceThresh > 1 {
		errs = append(errs, "model confidence must be in (0, 1]")
	}
	if c.Overlay.MinVisibility < 0 || c.Overlay.MinVisibility > 1 {
		errs = append(errs, "min visibility must be in [0, 1]")
	}
	return errs
}

// SessionPath returns where sessions are recorded, or "" when recording is off.
func (c *Config) SessionPath() (string, error) {
	switch {
	case c.Session.File != "":
		return c.Session.File, nil
	case c.Session.Record:
		return session.DefaultPath()
	default:
		return "", nil
	}
}

// DisplayOptions converts the display and web sections for display.Select.
func (c *Config) DisplayOptions() display.Options {
	return display.Options{
		WindowName:  c.Display.WindowName,
		Web:         c.Web,
		Camera:      c.Camera,
		JPEGQuality: c.Display.JPEGQuality,
		Pause:       c.Display.Pause,
	}
}
