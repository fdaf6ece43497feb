package detect

import "time"

// Drowsiness is the eye-closure detector's per-frame verdict.
type Drowsiness struct {
	Active   bool          `json:"active"`
	Duration time.Duration `json:"duration"` // since the first closed frame of this run
	Frames   int           `json:"frames"`   // consecutive closed frames
}

// EyeClosure fires once the eyes stay below the EAR threshold for enough
// consecutive frames, and keeps firing while they stay closed.
type EyeClosure struct {
	threshold float64
	counter   Debounce
	start     time.Time
}

// NewEyeClosure creates an eye-closure detector.
func NewEyeClosure(config Config) *EyeClosure {
	return &EyeClosure{
		threshold: config.EARThreshold,
		counter:   NewDebounce(config.EARConsecFrames),
	}
}

// Update feeds one frame's EAR.
func (d *EyeClosure) Update(now time.Time, ear float64) Drowsiness {
	if ear >= d.threshold {
		d.counter.Update(false)
		d.start = time.Time{}
		return Drowsiness{}
	}

	if d.counter.Count() == 0 {
		d.start = now
	}
	active := d.counter.Update(true)

	out := Drowsiness{Active: active, Frames: d.counter.Count()}
	if active {
		out.Duration = now.Sub(d.start)
	}
	return out
}

// Threshold returns the live EAR threshold.
func (d *EyeClosure) Threshold() float64 {
	return d.threshold
}

// SetThreshold replaces the EAR threshold (after calibration or restore).
func (d *EyeClosure) SetThreshold(threshold float64) {
	d.threshold = threshold
}

// Reset clears the closed-frame run.
func (d *EyeClosure) Reset() {
	d.counter.Reset()
	d.start = time.Time{}
}

// Blink is an edge detector on a dynamically thresholded EAR signal.
// A blink is emitted on the closed-to-open edge when the closed dwell lasted
// at least BlinkConsecFrames; shorter dips are discarded as noise.
type Blink struct {
	static      float64
	factor      float64
	minBaseline int
	minDwell    int

	baseline  *Ring // warm-up samples, then open-eye EAR only
	dwell     Debounce
	eyeClosed bool
}

// NewBlink creates a blink detector.
func NewBlink(config Config) *Blink {
	return &Blink{
		static:      config.BlinkThreshold,
		factor:      config.BlinkBaselineFactor,
		minBaseline: config.BlinkMinBaseline,
		minDwell:    config.BlinkConsecFrames,
		baseline:    NewRing(config.BlinkBaselineSize),
		dwell:       NewDebounce(config.BlinkConsecFrames),
	}
}

// Threshold returns min(static, mean(baseline) * factor), or the static
// threshold until enough open-eye samples have been seen.
func (b *Blink) Threshold() float64 {
	if b.baseline.Len() < max(b.minBaseline, 1) {
		return b.static
	}
	return min(b.static, b.baseline.Mean()*b.factor)
}

// Update feeds one frame's EAR and reports whether a blink completed.
func (b *Blink) Update(ear float64) bool {
	// Warm-up: every sample seeds the baseline, nothing is detected.
	if b.baseline.Len() < b.minBaseline {
		b.baseline.Push(ear)
		return false
	}

	if ear < b.Threshold() {
		b.eyeClosed = true
		b.dwell.Update(true)
		return false
	}

	// Closed samples stay out of the baseline so a long closure cannot drag
	// the threshold below the closed EAR.
	b.baseline.Push(ear)

	if !b.eyeClosed {
		return false
	}
	b.eyeClosed = false
	dwell := b.dwell.Count()
	b.dwell.Update(false)
	return dwell >= b.minDwell
}

// Closed reports whether the eye is currently considered closed.
func (b *Blink) Closed() bool {
	return b.eyeClosed
}

// Reset clears the edge state and the baseline.
func (b *Blink) Reset() {
	b.baseline.Reset()
	b.dwell.Reset()
	b.eyeClosed = false
}
