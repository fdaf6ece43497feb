// Package frequency turns discrete blink and yawn events into rolling-window
// rates. Windows are pruned lazily at query time; there is no background timer.
package frequency

import "time"

// TimestampLog is a bounded, insertion-ordered log of event times.
// The oldest entry is evicted once capacity is exceeded, and Prune drops
// every entry older than the window.
type TimestampLog struct {
	capacity int
	window   time.Duration
	times    []time.Time
}

// NewTimestampLog creates a log holding at most capacity entries.
func NewTimestampLog(capacity int, window time.Duration) *TimestampLog {
	if capacity < 1 {
		capacity = 1
	}
	return &TimestampLog{
		capacity: capacity,
		window:   window,
		times:    make([]time.Time, 0, capacity),
	}
}

// Add appends t, evicting the oldest entry when full.
func (l *TimestampLog) Add(t time.Time) {
	if len(l.times) == l.capacity {
		copy(l.times, l.times[1:])
		l.times = l.times[:len(l.times)-1]
	}
	l.times = append(l.times, t)
}

// Prune drops entries older than the window relative to now.
// An entry exactly window old is kept.
func (l *TimestampLog) Prune(now time.Time) {
	cutoff := now.Add(-l.window)
	keep := 0
	for keep < len(l.times) && l.times[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		n := copy(l.times, l.times[keep:])
		l.times = l.times[:n]
	}
}

// Len returns the number of entries currently held.
func (l *TimestampLog) Len() int {
	return len(l.times)
}

// Times returns a copy of the entries, oldest first.
func (l *TimestampLog) Times() []time.Time {
	return append([]time.Time(nil), l.times...)
}

// Reset empties the log.
func (l *TimestampLog) Reset() {
	l.times = l.times[:0]
}
