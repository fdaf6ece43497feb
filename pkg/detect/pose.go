package detect

import "time"

// Yawn counts a yawn when MAR stays above threshold for YawnConsecFrames,
// at most once per open-mouth interval and never within YawnRefractory of
// the previous counted yawn.
type Yawn struct {
	threshold  float64
	refractory time.Duration
	open       Debounce
	last       time.Time
}

// NewYawn creates a yawn detector.
func NewYawn(config Config) *Yawn {
	return &Yawn{
		threshold:  config.MARThreshold,
		refractory: config.YawnRefractory,
		open:       NewDebounce(config.YawnConsecFrames),
	}
}

// Update feeds one frame's MAR and reports whether a yawn was counted.
func (y *Yawn) Update(now time.Time, mar float64) bool {
	y.open.Update(mar > y.threshold)
	if !y.open.Rose() {
		return false
	}
	if !y.last.IsZero() && now.Sub(y.last) < y.refractory {
		return false
	}
	y.last = now
	return true
}

// Open reports whether the mouth has been open long enough to count.
func (y *Yawn) Open() bool {
	return y.open.Active()
}

// Reset clears the dwell counter and the refractory timer.
func (y *Yawn) Reset() {
	y.open.Reset()
	y.last = time.Time{}
}

// HeadTilt is a hysteresis counter on head roll/pitch. It counts up while
// tilted and down (floored at 0) otherwise; it fires when the counter reaches
// HeadTiltFrames and clears only once the counter drains back to 0. The
// counter is unbounded, so a long tilt takes as long to clear.
type HeadTilt struct {
	thresholdDeg float64
	frames       int
	counter      int
	active       bool
}

// NewHeadTilt creates a head-tilt detector.
func NewHeadTilt(config Config) *HeadTilt {
	return &HeadTilt{
		thresholdDeg: config.HeadTiltDeg,
		frames:       max(config.HeadTiltFrames, 1),
	}
}

// Update feeds one frame's absolute roll and pitch in degrees.
func (h *HeadTilt) Update(rollDeg, pitchDeg float64) bool {
	if rollDeg > h.thresholdDeg || pitchDeg > h.thresholdDeg {
		h.counter++
		if h.counter >= h.frames {
			h.active = true
		}
	} else {
		h.counter = max(h.counter-1, 0)
		if h.counter == 0 {
			h.active = false
		}
	}
	return h.active
}

// Counter returns the current hysteresis counter.
func (h *HeadTilt) Counter() int {
	return h.counter
}

// Reset clears the counter and the alert.
func (h *HeadTilt) Reset() {
	h.counter = 0
	h.active = false
}

// Absence fires after NoFaceFrames consecutive frames without a face.
type Absence struct {
	counter Debounce
}

// NewAbsence creates a face-absence detector.
func NewAbsence(config Config) *Absence {
	return &Absence{counter: NewDebounce(config.NoFaceFrames)}
}

// Update feeds whether a face was present this frame.
func (a *Absence) Update(present bool) bool {
	return a.counter.Update(!present)
}

// Frames returns the consecutive no-face frame count.
func (a *Absence) Frames() int {
	return a.counter.Count()
}

// Reset clears the counter.
func (a *Absence) Reset() {
	a.counter.Reset()
}
