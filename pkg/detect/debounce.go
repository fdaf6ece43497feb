package detect

// Debounce counts consecutive frames a condition holds and flips Active once
// the count reaches the configured frame threshold. Any frame without the
// condition resets the count to zero.
type Debounce struct {
	frames int
	count  int
	active bool
	rose   bool
}

// NewDebounce creates a counter that activates after frames consecutive hits.
func NewDebounce(frames int) Debounce {
	if frames < 1 {
		frames = 1
	}
	return Debounce{frames: frames}
}

// Update feeds one frame and returns whether the counter is active.
func (d *Debounce) Update(cond bool) bool {
	was := d.active
	if cond {
		d.count++
	} else {
		d.count = 0
	}
	d.active = d.count >= d.frames
	d.rose = d.active && !was
	return d.active
}

// Count returns the current consecutive-frame count.
func (d *Debounce) Count() int {
	return d.count
}

// Active reports whether the count has reached the threshold.
func (d *Debounce) Active() bool {
	return d.active
}

// Rose reports whether the last Update flipped the counter to active.
func (d *Debounce) Rose() bool {
	return d.rose
}

// Frames returns the activation threshold.
func (d *Debounce) Frames() int {
	return d.frames
}

// Reset clears the count.
func (d *Debounce) Reset() {
	d.count = 0
	d.active = false
	d.rose = false
}
