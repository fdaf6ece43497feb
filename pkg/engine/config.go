package engine

import (
	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/calibration"
	"github.com/teslashibe/go-vigil/pkg/detect"
	"github.com/teslashibe/go-vigil/pkg/frequency"
)

// Config holds every tunable of the engine.
type Config struct {
	Detect      detect.Config      `yaml:"detect" json:"detect"`
	Frequency   frequency.Config   `yaml:"frequency" json:"frequency"`
	Alert       alert.Config       `yaml:"alert" json:"alert"`
	Calibration calibration.Config `yaml:"calibration" json:"calibration"`

	VarianceWindow int `yaml:"variance_window" json:"variance_window"` // EAR samples for the variance metric
}

// DefaultConfig returns the recommended configuration for a driver at ~30 fps
func DefaultConfig() Config {
	return Config{
		Detect:         detect.DefaultConfig(),
		Frequency:      frequency.DefaultConfig(),
		Alert:          alert.DefaultConfig(),
		Calibration:    calibration.DefaultConfig(),
		VarianceWindow: 30,
	}
}

// SensitiveConfig returns a configuration that alerts earlier, with rapid-blink fatigue on
func SensitiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Detect.EARConsecFrames = 10 // ~0.33s
	cfg.Detect.HeadTiltDeg = 12
	cfg.Detect.HeadTiltFrames = 15
	cfg.Detect.NoFaceFrames = 45
	cfg.Frequency.BlinkRate.Threshold = 20
	cfg.Frequency.RapidBlink.Enabled = true
	cfg.Frequency.YawnRate.Threshold = 2
	return cfg
}

// RelaxedConfig returns a configuration for noisy cameras or frequent head movement
func RelaxedConfig() Config {
	cfg := DefaultConfig()
	cfg.Detect.EARConsecFrames = 20 // ~0.66s
	cfg.Detect.HeadTiltDeg = 20
	cfg.Detect.HeadTiltFrames = 30
	cfg.Detect.NoFaceFrames = 90
	cfg.Frequency.BlinkRate.Threshold = 30
	cfg.Frequency.YawnRate.Threshold = 4
	cfg.Alert.StopDelay = 2 * cfg.Alert.StopDelay
	return cfg
}

// Preset returns a named configuration: "default", "sensitive" or "relaxed".
func Preset(name string) (Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "sensitive":
		return SensitiveConfig(), true
	case "relaxed":
		return RelaxedConfig(), true
	}
	return Config{}, false
}

// Validate checks every section and returns the problems found, prefixed by section.
func (c *Config) Validate() []string {
	var errors []string
	prefix := func(section string, errs []string) {
		for _, e := range errs {
			errors = append(errors, section+"."+e)
		}
	}
	prefix("detect", c.Detect.Validate())
	prefix("frequency", c.Frequency.Validate())
	prefix("alert", c.Alert.Validate())
	prefix("calibration", c.Calibration.Validate())
	if c.VarianceWindow < 1 {
		errors = append(errors, "variance_window must be at least 1")
	}
	return errors
}
