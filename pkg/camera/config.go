// Package camera opens local capture devices and describes how they are configured.
package camera

import "fmt"

// Config holds capture device parameters.
type Config struct {
	// Device is the OS capture index (0 = first webcam).
	Device int `json:"device" mapstructure:"device"`

	// === Resolution ===
	Width     int `json:"width" mapstructure:"width"`         // Requested frame width in pixels
	Height    int `json:"height" mapstructure:"height"`       // Requested frame height in pixels
	Framerate int `json:"framerate" mapstructure:"framerate"` // Requested FPS, 0 = driver default

	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool `json:"mirror" mapstructure:"mirror"`
}

// Requested resolution limits. Drivers may still deliver something smaller.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the default webcam configuration: device 0 at 1280x720.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     1280,
		Height:    720,
		Framerate: 0, // Driver default
	}
}

// LegacyConfig returns a 640x480 configuration for older webcams.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must be >= 0")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 0 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be 0 (default) or between 1 and %d", MaxFramerate))
	}

	return errors
}

// String renders the config for status lines.
func (c Config) String() string {
	if c.Framerate > 0 {
		return fmt.Sprintf("device %d @ %dx%d %dfps", c.Device, c.Width, c.Height, c.Framerate)
	}
	return fmt.Sprintf("device %d @ %dx%d", c.Device, c.Width, c.Height)
}
