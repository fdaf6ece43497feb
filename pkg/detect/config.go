// Package detect holds the per-signal debounced state machines: eye closure,
// blink, yawn, head tilt and face absence. Each detector is ticked once per
// processed frame and never observes another detector's state.
package detect

import "time"

// Config holds the detector thresholds and frame counts.
type Config struct {
	// Eye closure (drowsiness)
	EARThreshold    float64 `yaml:"ear_threshold" json:"ear_threshold"`         // Eyes count as closed below this EAR
	EARConsecFrames int     `yaml:"ear_consec_frames" json:"ear_consec_frames"` // Consecutive closed frames before drowsiness fires

	// Blink
	BlinkThreshold      float64 `yaml:"blink_threshold" json:"blink_threshold"`             // Static upper bound for the blink threshold
	BlinkConsecFrames   int     `yaml:"blink_consec_frames" json:"blink_consec_frames"`     // Minimum closed dwell for a blink
	BlinkBaselineSize   int     `yaml:"blink_baseline_size" json:"blink_baseline_size"`     // Open-eye EAR samples kept for the dynamic threshold
	BlinkBaselineFactor float64 `yaml:"blink_baseline_factor" json:"blink_baseline_factor"` // Dynamic threshold = baseline mean * factor
	BlinkMinBaseline    int     `yaml:"blink_min_baseline" json:"blink_min_baseline"`       // Samples needed before the dynamic threshold applies

	// Yawn
	MARThreshold     float64       `yaml:"mar_threshold" json:"mar_threshold"`           // Mouth counts as open above this MAR
	YawnConsecFrames int           `yaml:"yawn_consec_frames" json:"yawn_consec_frames"` // Consecutive open frames for a yawn
	YawnRefractory   time.Duration `yaml:"yawn_refractory" json:"yawn_refractory"`       // Minimum gap between counted yawns

	// Head tilt
	HeadTiltDeg    float64 `yaml:"head_tilt_deg" json:"head_tilt_deg"`       // Roll or pitch above this counts as tilted
	HeadTiltFrames int     `yaml:"head_tilt_frames" json:"head_tilt_frames"` // Counter value at which the tilt alert fires

	// Face absence
	NoFaceFrames int `yaml:"no_face_frames" json:"no_face_frames"` // Consecutive frames without a face before distraction fires
}

// DefaultConfig returns the stock detector tuning.
func DefaultConfig() Config {
	return Config{
		EARThreshold:    0.22,
		EARConsecFrames: 15, // ~0.5s at 30 fps

		BlinkThreshold:      0.25,
		BlinkConsecFrames:   3,
		BlinkBaselineSize:   10,
		BlinkBaselineFactor: 0.8,
		BlinkMinBaseline:    3,

		MARThreshold:     0.5,
		YawnConsecFrames: 5,
		YawnRefractory:   4 * time.Second,

		HeadTiltDeg:    15,
		HeadTiltFrames: 20,

		NoFaceFrames: 60, // 2s at 30 fps
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string

	if c.EARThreshold <= 0 || c.EARThreshold >= 1 {
		errors = append(errors, "ear_threshold must be between 0 and 1")
	}
	if c.EARConsecFrames < 1 {
		errors = append(errors, "ear_consec_frames must be at least 1")
	}
	if c.BlinkThreshold <= 0 || c.BlinkThreshold >= 1 {
		errors = append(errors, "blink_threshold must be between 0 and 1")
	}
	if c.BlinkConsecFrames < 1 {
		errors = append(errors, "blink_consec_frames must be at least 1")
	}
	if c.BlinkBaselineSize < 1 {
		errors = append(errors, "blink_baseline_size must be at least 1")
	}
	if c.BlinkBaselineFactor <= 0 || c.BlinkBaselineFactor > 1 {
		errors = append(errors, "blink_baseline_factor must be in (0, 1]")
	}
	if c.BlinkMinBaseline > c.BlinkBaselineSize {
		errors = append(errors, "blink_min_baseline cannot exceed blink_baseline_size")
	}
	if c.MARThreshold <= 0 {
		errors = append(errors, "mar_threshold must be positive")
	}
	if c.YawnConsecFrames < 1 {
		errors = append(errors, "yawn_consec_frames must be at least 1")
	}
	if c.YawnRefractory < 0 {
		errors = append(errors, "yawn_refractory cannot be negative")
	}
	if c.HeadTiltDeg <= 0 || c.HeadTiltDeg >= 90 {
		errors = append(errors, "head_tilt_deg must be between 0 and 90")
	}
	if c.HeadTiltFrames < 1 {
		errors = append(errors, "head_tilt_frames must be at least 1")
	}
	if c.NoFaceFrames < 1 {
		errors = append(errors, "no_face_frames must be at least 1")
	}

	return errors
}
