// Package camera provides runtime-configurable webcam capture for the monitor.
// This follows the same pattern as pkg/engine for tunable parameters.
package camera

// Config holds all camera configuration parameters.
// These can be modified via the settings API at runtime.
type Config struct {
	// === Device ===
	// Device is the capture index passed to OpenCV (0 = first webcam).
	Device int `yaml:"device" json:"device"`

	// === Resolution ===
	Width     int `yaml:"width" json:"width"`         // Frame width in pixels
	Height    int `yaml:"height" json:"height"`       // Frame height in pixels
	Framerate int `yaml:"framerate" json:"framerate"` // Target FPS, also the engine tick rate

	// === Image Controls ===
	// Brightness is passed through to the driver (0 leaves the driver default).
	Brightness float64 `yaml:"brightness" json:"brightness"`

	// BufferSize is the driver-side frame queue. 1 keeps latency lowest.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// Mirror flips frames horizontally before analysis.
	Mirror bool `yaml:"mirror" json:"mirror"`
}

// Capture limits accepted by Validate
const (
	MaxDevice    = 15
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 60
)

// DefaultConfig returns the recommended webcam configuration.
// 640x480 keeps landmark regression well inside the frame budget at 30 fps.
func DefaultConfig() Config {
	return Config{
		Device:     0,
		Width:      640,
		Height:     480,
		Framerate:  30,
		Brightness: 0, // Driver default
		BufferSize: 1,
		Mirror:     false,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 || c.Device > MaxDevice {
		errors = append(errors, "device must be between 0 and 15")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}

	if c.BufferSize < 0 || c.BufferSize > 10 {
		errors = append(errors, "buffer_size must be between 0 and 10")
	}

	return errors
}
