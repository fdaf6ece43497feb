// Package engine runs the fatigue detection pipeline one frame at a time:
// geometry, event detectors, frequency aggregators and alert arbitration,
// with calibration as an exclusive alternate mode.
//
// The engine is single-writer. A host that ticks it from several goroutines
// must serialize every call.
package engine

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/calibration"
	"github.com/teslashibe/go-vigil/pkg/debug"
	"github.com/teslashibe/go-vigil/pkg/detect"
	"github.com/teslashibe/go-vigil/pkg/frequency"
	"github.com/teslashibe/go-vigil/pkg/geometry"
)

// Mode is the engine's operating mode.
type Mode int

const (
	Stopped Mode = iota
	Monitoring
	Calibrating
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "stopped"
	case Monitoring:
		return "monitoring"
	case Calibrating:
		return "calibrating"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Metrics are the per-frame numbers exposed for rendering.
type Metrics struct {
	EAR   float64 `json:"ear"`
	MAR   float64 `json:"mar"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`

	BlinkTotal  int `json:"blink_total"` // since the last periodic reset
	YawnTotal   int `json:"yawn_total"`
	BlinkRate   int `json:"blink_rate"` // blinks within the blink-rate window
	RapidBlinks int `json:"rapid_blinks"`
	YawnRate    int `json:"yawn_rate"`

	EARVariance    float64       `json:"ear_variance"`
	FaceRatio      float64       `json:"face_ratio"`
	DrowsyDuration time.Duration `json:"drowsy_duration"`
	NoFaceFrames   int           `json:"no_face_frames"`
	HeadTiltCount  int           `json:"head_tilt_count"`

	EARThreshold   float64 `json:"ear_threshold"`
	BlinkThreshold float64 `json:"blink_threshold"`
}

// FrameResult is everything the engine decided on one tick.
type FrameResult struct {
	Time      time.Time       `json:"time"`
	Mode      Mode            `json:"mode"`
	FaceFound bool            `json:"face_found"`
	Geometry  geometry.Sample `json:"geometry"`

	Conditions alert.Conditions `json:"conditions"`
	Alert      alert.Decision   `json:"alert"`
	Metrics    Metrics          `json:"metrics"`

	Blink          bool `json:"blink,omitempty"`
	Yawn           bool `json:"yawn,omitempty"`
	FrequencyReset bool `json:"frequency_reset,omitempty"`

	Calibration *calibration.Tick   `json:"calibration,omitempty"`
	Calibrated  *calibration.Result `json:"calibrated,omitempty"`
}

// Engine owns all detector, aggregator, arbitration and calibration state.
type Engine struct {
	config Config
	mode   Mode
	resume Mode // mode to return to after calibration

	eyes    *detect.EyeClosure
	blink   *detect.Blink
	yawn    *detect.Yawn
	tilt    *detect.HeadTilt
	absence *detect.Absence

	blinks   *frequency.Aggregator
	rapid    *frequency.Aggregator
	yawns    *frequency.Aggregator
	resetter *frequency.Resetter

	arbitrator *alert.Arbitrator
	variance   *detect.Ring
	drowsy     detect.Drowsiness

	session *calibration.Session
}

// New creates an engine in Monitoring mode. sounder may be nil.
func New(config Config, sounder alert.Sounder) *Engine {
	return &Engine{
		config:     config,
		mode:       Monitoring,
		eyes:       detect.NewEyeClosure(config.Detect),
		blink:      detect.NewBlink(config.Detect),
		yawn:       detect.NewYawn(config.Detect),
		tilt:       detect.NewHeadTilt(config.Detect),
		absence:    detect.NewAbsence(config.Detect),
		blinks:     frequency.NewAggregator("blink_rate", config.Frequency.BlinkRate),
		rapid:      frequency.NewAggregator("rapid_blink", config.Frequency.RapidBlink),
		yawns:      frequency.NewAggregator("yawn_rate", config.Frequency.YawnRate),
		resetter:   frequency.NewResetter(config.Frequency.ResetInterval),
		arbitrator: alert.NewArbitrator(config.Alert, sounder),
		variance:   detect.NewRing(config.VarianceWindow),
	}
}

// Tick processes one frame. lm is nil when no face was found or the frame
// could not be read.
func (e *Engine) Tick(now time.Time, lm *geometry.Landmarks) FrameResult {
	if lm == nil {
		return e.TickSample(now, nil)
	}
	s := geometry.Analyze(lm)
	return e.TickSample(now, &s)
}

// TickSample processes one frame from a precomputed sample. s is nil when
// no face was found.
func (e *Engine) TickSample(now time.Time, s *geometry.Sample) FrameResult {
	res := FrameResult{
		Time:      now,
		Mode:      e.mode,
		FaceFound: s != nil,
	}
	if s != nil {
		res.Geometry = *s
		debug.FrameLog("👁️  EAR=%.3f MAR=%.3f roll=%.1f° pitch=%.1f°\n", s.EAR, s.MAR, s.RollDeg, s.PitchDeg)
	}

	switch e.mode {
	case Calibrating:
		e.tickCalibration(now, s, &res)
	case Monitoring:
		e.tickMonitoring(now, s, &res)
	default:
		res.Alert = alert.Decision{State: e.arbitrator.State()}
	}

	res.Metrics = e.metrics(now, s)
	return res
}

func (e *Engine) tickMonitoring(now time.Time, s *geometry.Sample, res *FrameResult) {
	if e.resetter.Due(now) {
		e.resetFrequency()
		res.FrequencyReset = true
		debug.Logln("🔄 Frequency counters reset")
	}

	var cond alert.Conditions
	if s != nil {
		e.absence.Update(true)

		e.drowsy = e.eyes.Update(now, s.EAR)
		cond.Drowsiness = e.drowsy.Active

		if e.blink.Update(s.EAR) {
			e.blinks.Record(now)
			e.rapid.Record(now)
			res.Blink = true
			debug.Log("😉 Blink (total %d)\n", e.blinks.Total())
		}
		if e.yawn.Update(now, s.MAR) {
			e.yawns.Record(now)
			res.Yawn = true
			debug.Log("🥱 Yawn (total %d)\n", e.yawns.Total())
		}

		cond.HeadTilt = e.tilt.Update(s.RollDeg, s.PitchDeg)
		e.variance.Push(s.EAR)
	} else {
		// Face-based detectors hold their state until the face returns.
		cond.NoFace = e.absence.Update(false)
		e.drowsy = detect.Drowsiness{}
	}
	cond.Fatigue = e.fatigued(now)

	res.Conditions = cond
	res.Alert = e.arbitrator.Update(now, cond)
	if res.Alert.Changed {
		debug.Log("🚨 Alert %s -> %s\n", res.Alert.Previous, res.Alert.Kind)
	}
}

func (e *Engine) fatigued(now time.Time) bool {
	rules := e.config.Frequency
	fatigued := false
	for _, c := range []struct {
		enabled bool
		agg     *frequency.Aggregator
	}{
		{rules.BlinkRate.Enabled, e.blinks},
		{rules.RapidBlink.Enabled, e.rapid},
		{rules.YawnRate.Enabled, e.yawns},
	} {
		if c.enabled && c.agg.CheckFrequency(now) {
			debug.FrameLog("📈 %s over threshold (%d in window)\n", c.agg.Name(), c.agg.Count(now))
			fatigued = true
		}
	}
	return fatigued
}

func (e *Engine) tickCalibration(now time.Time, s *geometry.Sample, res *FrameResult) {
	var ear *float64
	if s != nil {
		ear = &s.EAR
	}
	tick := e.session.Add(now, ear)
	res.Calibration = &tick
	res.Alert = alert.Decision{State: e.arbitrator.State()}

	if !e.session.Expired(now) {
		return
	}

	result := e.session.Finalize(e.eyes.Threshold())
	if result.Success {
		e.eyes.SetThreshold(result.NewThreshold)
		debug.Log("🎯 Calibrated EAR threshold %.3f from %d samples\n", result.NewThreshold, result.Samples)
	} else {
		debug.Log("🎯 Calibration failed: %v\n", result.Err)
	}
	res.Calibrated = &result
	e.session = nil
	e.mode = e.resume
}

func (e *Engine) metrics(now time.Time, s *geometry.Sample) Metrics {
	m := Metrics{
		BlinkTotal:     e.blinks.Total(),
		YawnTotal:      e.yawns.Total(),
		BlinkRate:      e.blinks.Count(now),
		RapidBlinks:    e.rapid.Count(now),
		YawnRate:       e.yawns.Count(now),
		EARVariance:    e.variance.Variance(),
		DrowsyDuration: e.drowsy.Duration,
		NoFaceFrames:   e.absence.Frames(),
		HeadTiltCount:  e.tilt.Counter(),
		EARThreshold:   e.eyes.Threshold(),
		BlinkThreshold: e.blink.Threshold(),
	}
	if s != nil {
		m.EAR, m.MAR = s.EAR, s.MAR
		m.Roll, m.Pitch = s.RollDeg, s.PitchDeg
		m.FaceRatio = s.FaceRatio
	}
	return m
}

// Mode returns the current operating mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Alert returns the current alert state.
func (e *Engine) Alert() alert.State {
	return e.arbitrator.State()
}

// Threshold returns the live eye-closure EAR threshold.
func (e *Engine) Threshold() float64 {
	return e.eyes.Threshold()
}

// SetThreshold replaces the eye-closure EAR threshold, e.g. when restoring a
// persisted calibration.
func (e *Engine) SetThreshold(threshold float64) {
	e.eyes.SetThreshold(threshold)
}

// Start resumes monitoring from Stopped and reports whether the mode changed.
// While calibrating it arranges for monitoring to follow the session.
func (e *Engine) Start() bool {
	if e.mode != Stopped {
		if e.mode == Calibrating {
			e.resume = Monitoring
		}
		return false
	}
	e.mode = Monitoring
	return true
}

// Stop ends monitoring: the alert and its sound are dropped, detectors and
// aggregators are cleared, and any calibration is abandoned. The periodic
// reset interval starts over on the first tick after monitoring resumes.
func (e *Engine) Stop() bool {
	if e.mode == Stopped {
		return false
	}
	e.session = nil
	e.mode = Stopped
	e.arbitrator.Reset()
	e.resetDetectors()
	e.resetFrequency()
	e.resetter.Restart()
	return true
}

// StartCalibration enters calibration mode at now and returns the session
// ID. Any active alert is dropped. A session already running is restarted.
func (e *Engine) StartCalibration(now time.Time) string {
	if e.mode != Calibrating {
		e.resume = e.mode
	}
	e.mode = Calibrating
	e.arbitrator.Reset()
	e.session = calibration.Start(now, e.config.Calibration)
	return e.session.ID()
}

// AbortCalibration discards a running session without touching the threshold.
func (e *Engine) AbortCalibration() bool {
	if e.mode != Calibrating {
		return false
	}
	e.session = nil
	e.mode = e.resume
	return true
}

func (e *Engine) resetDetectors() {
	e.eyes.Reset()
	e.blink.Reset()
	e.yawn.Reset()
	e.tilt.Reset()
	e.absence.Reset()
	e.variance.Reset()
	e.drowsy = detect.Drowsiness{}
}

func (e *Engine) resetFrequency() {
	e.blinks.Reset()
	e.rapid.Reset()
	e.yawns.Reset()
}
