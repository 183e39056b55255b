package camera

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Device != 0 {
		t.Errorf("Device: got %d, want 0", cfg.Device)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Resolution: got %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig should be valid, got %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative device", func(c *Config) { c.Device = -1 }, "device"},
		{"width too small", func(c *Config) { c.Width = 100 }, "width"},
		{"width too large", func(c *Config) { c.Width = 8000 }, "width"},
		{"height too small", func(c *Config) { c.Height = 10 }, "height"},
		{"framerate negative", func(c *Config) { c.Framerate = -5 }, "framerate"},
		{"framerate too high", func(c *Config) { c.Framerate = 240 }, "framerate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			errs := cfg.Validate()

			if tc.wantErr == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			if !strings.Contains(errs[0], tc.wantErr) {
				t.Errorf("error %q should mention %q", errs[0], tc.wantErr)
			}
		})
	}
}

func TestPresets_AllValid(t *testing.T) {
	for name, cfg := range Presets() {
		if errs := cfg.Validate(); len(errs) != 0 {
			t.Errorf("preset %s invalid: %v", name, errs)
		}
	}
}

func TestGetPreset(t *testing.T) {
	if p := GetPreset(Preset1080p); p == nil || p.Width != 1920 || p.Height != 1080 {
		t.Errorf("1080p preset: got %+v", p)
	}
	if p := GetPreset("nope"); p != nil {
		t.Errorf("unknown preset should be nil, got %+v", p)
	}
}

func TestPresetNames_Sorted(t *testing.T) {
	names := PresetNames()
	if len(names) != len(Presets()) {
		t.Fatalf("got %d names, want %d", len(names), len(Presets()))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 1

	_, err := Open(cfg)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("expected ErrOpenFailed, got %v", err)
	}
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.String(); got != "device 0 @ 1280x720" {
		t.Errorf("String: got %q", got)
	}
	cfg.Framerate = 30
	if got := cfg.String(); got != "device 0 @ 1280x720 30fps" {
		t.Errorf("String: got %q", got)
	}
}
