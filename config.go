package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the editor's tunables. LoadConfig starts from
// DefaultConfig and overlays an optional YAML file.
type Config struct {
	// FrameSize is the initial square display frame side length in
	// on-screen pixels. The frontend reports resizes at runtime.
	FrameSize float64 `yaml:"frame_size"`
	// OutputSize is the canonical square export resolution.
	OutputSize int `yaml:"output_size"`
	// JPEGQuality is the encode quality for exported artifacts.
	JPEGQuality int `yaml:"jpeg_quality"`
	// MaxUploadBytes rejects uploads above this size; 0 disables the check.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	Zoom ZoomRange `yaml:"zoom"`

	// DragThreshold is the pointer travel in pixels that turns a press
	// into a drag.
	DragThreshold float64 `yaml:"drag_threshold"`
	// ClickSuppressMs is how long clicks are swallowed after a drag
	// release.
	ClickSuppressMs int `yaml:"click_suppress_ms"`
	// ErrorRevertMs is how long a failed save shows error before
	// auto-recovering to idle.
	ErrorRevertMs int `yaml:"error_revert_ms"`
}

// ClickSuppress returns the click-suppression window as a duration.
func (c Config) ClickSuppress() time.Duration {
	return time.Duration(c.ClickSuppressMs) * time.Millisecond
}

// ErrorRevert returns the error auto-recovery delay as a duration.
func (c Config) ErrorRevert() time.Duration {
	return time.Duration(c.ErrorRevertMs) * time.Millisecond
}

// DefaultConfig returns the editor defaults.
func DefaultConfig() Config {
	return Config{
		FrameSize:       480,
		OutputSize:      640,
		JPEGQuality:     90,
		MaxUploadBytes:  20 << 20,
		Zoom:            ZoomRange{Min: 1, Max: 3, Default: 1.2},
		DragThreshold:   2,
		ClickSuppressMs: 650,
		ErrorRevertMs:   2000,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the geometry cannot work with.
func (c Config) Validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame_size must be positive, got %g", c.FrameSize)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("output_size must be positive, got %d", c.OutputSize)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in [1,100], got %d", c.JPEGQuality)
	}
	if c.Zoom.Min < 1 {
		return fmt.Errorf("zoom.min must be at least 1, got %g", c.Zoom.Min)
	}
	if c.Zoom.Max < c.Zoom.Min {
		return fmt.Errorf("zoom.max %g below zoom.min %g", c.Zoom.Max, c.Zoom.Min)
	}
	if c.Zoom.Default < c.Zoom.Min || c.Zoom.Default > c.Zoom.Max {
		return fmt.Errorf("zoom.default %g outside [%g,%g]", c.Zoom.Default, c.Zoom.Min, c.Zoom.Max)
	}
	if c.DragThreshold < 0 {
		return fmt.Errorf("drag_threshold must not be negative, got %g", c.DragThreshold)
	}
	return nil
}
