// Package calibration samples open-eye EAR for a fixed window and derives a
// personal eye-closure threshold from it.
package calibration

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is reported when the window elapsed without a face.
var ErrNoSamples = errors.New("calibration: no face detected during calibration")

// Config controls a calibration run.
type Config struct {
	Duration time.Duration `yaml:"duration" json:"duration"`
	Factor   float64       `yaml:"factor" json:"factor"` // threshold = mean(EAR) * Factor
}

// DefaultConfig returns a 5s window with a 0.9 factor.
func DefaultConfig() Config {
	return Config{
		Duration: 5 * time.Second,
		Factor:   0.9,
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string
	if c.Duration <= 0 {
		errors = append(errors, "duration must be positive")
	}
	if c.Factor <= 0 || c.Factor > 1 {
		errors = append(errors, "factor must be in (0, 1]")
	}
	return errors
}

// Tick is reported on every frame while a session runs.
type Tick struct {
	Elapsed    time.Duration `json:"elapsed"`
	Remaining  time.Duration `json:"remaining"`
	CurrentEAR float64       `json:"current_ear"`
	Samples    int           `json:"samples"`
	FaceFound  bool          `json:"face_found"`
}

// Result is the outcome of a finished session.
type Result struct {
	SessionID    string  `json:"session_id"`
	Success      bool    `json:"success"`
	NewThreshold float64 `json:"new_threshold"` // equals the previous threshold on failure
	Samples      int     `json:"samples"`
	Err          error   `json:"-"`
}

// Session collects EAR samples for one calibration run.
type Session struct {
	id        string
	config    Config
	startedAt time.Time
	samples   []float64
}

// Start begins a session at now.
func Start(now time.Time, config Config) *Session {
	return &Session{
		id:        uuid.New().String(),
		config:    config,
		startedAt: now,
	}
}

// ID identifies the session in logs and the journal.
func (s *Session) ID() string {
	return s.id
}

// Add records one frame. A nil ear means no face was found this frame.
// Frames are sampled only while the window is open. A frame older than the
// window start (a clock that stepped back) restarts the window at now.
func (s *Session) Add(now time.Time, ear *float64) Tick {
	if now.Before(s.startedAt) {
		s.startedAt = now
	}
	elapsed := now.Sub(s.startedAt)
	t := Tick{
		Elapsed:   elapsed,
		Remaining: max(s.config.Duration-elapsed, 0),
	}
	if ear != nil {
		t.CurrentEAR = *ear
		t.FaceFound = true
		if !s.Expired(now) {
			s.samples = append(s.samples, *ear)
		}
	}
	t.Samples = len(s.samples)
	return t
}

// Expired reports whether the sampling window has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.startedAt) >= s.config.Duration
}

// Finalize computes the new threshold from the collected samples and clears
// them. With no samples the current threshold is returned unchanged.
func (s *Session) Finalize(current float64) Result {
	r := Result{SessionID: s.id, Samples: len(s.samples)}
	if len(s.samples) == 0 {
		r.NewThreshold = current
		r.Err = ErrNoSamples
		return r
	}

	r.Success = true
	r.NewThreshold = stat.Mean(s.samples, nil) * s.config.Factor
	s.samples = s.samples[:0]
	return r
}
