package frequency

import "time"

// Rule describes one rate check: at least Threshold events within Window.
type Rule struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Window    time.Duration `yaml:"window" json:"window"`
	Threshold int           `yaml:"threshold" json:"threshold"`
	Capacity  int           `yaml:"capacity" json:"capacity"`
}

// Config holds the rate rules and the periodic reset interval.
type Config struct {
	BlinkRate     Rule          `yaml:"blink_rate" json:"blink_rate"`
	RapidBlink    Rule          `yaml:"rapid_blink" json:"rapid_blink"`
	YawnRate      Rule          `yaml:"yawn_rate" json:"yawn_rate"`
	ResetInterval time.Duration `yaml:"reset_interval" json:"reset_interval"`
}

// DefaultConfig returns per-minute blink and yawn rates with rapid-blink off.
func DefaultConfig() Config {
	return Config{
		BlinkRate:     Rule{Enabled: true, Window: time.Minute, Threshold: 25, Capacity: 100},
		RapidBlink:    Rule{Enabled: false, Window: 3 * time.Second, Threshold: 5, Capacity: 20},
		YawnRate:      Rule{Enabled: true, Window: time.Minute, Threshold: 3, Capacity: 20},
		ResetInterval: time.Minute,
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string
	for name, r := range map[string]Rule{"blink_rate": c.BlinkRate, "rapid_blink": c.RapidBlink, "yawn_rate": c.YawnRate} {
		if !r.Enabled {
			continue
		}
		if r.Window <= 0 {
			errors = append(errors, name+": window must be positive")
		}
		if r.Threshold < 1 {
			errors = append(errors, name+": threshold must be at least 1")
		}
		if r.Capacity < r.Threshold {
			errors = append(errors, name+": capacity must be at least threshold")
		}
	}
	if c.ResetInterval < 0 {
		errors = append(errors, "reset_interval cannot be negative")
	}
	return errors
}

// Aggregator counts events in a sliding window and checks them against a threshold.
type Aggregator struct {
	name      string
	threshold int
	log       *TimestampLog
	total     int
}

// NewAggregator creates an aggregator for rule.
func NewAggregator(name string, rule Rule) *Aggregator {
	return &Aggregator{
		name:      name,
		threshold: rule.Threshold,
		log:       NewTimestampLog(rule.Capacity, rule.Window),
	}
}

// Record logs an event at t.
func (a *Aggregator) Record(t time.Time) {
	a.log.Add(t)
	a.total++
}

// CheckFrequency prunes the window and reports whether the remaining event
// count reaches the threshold.
func (a *Aggregator) CheckFrequency(now time.Time) bool {
	a.log.Prune(now)
	return a.log.Len() >= a.threshold
}

// Count prunes the window and returns the events within it.
func (a *Aggregator) Count(now time.Time) int {
	a.log.Prune(now)
	return a.log.Len()
}

// Total returns events recorded since the last reset.
func (a *Aggregator) Total() int {
	return a.total
}

// Name identifies the aggregator in logs.
func (a *Aggregator) Name() string {
	return a.name
}

// Reset clears the log and the total.
func (a *Aggregator) Reset() {
	a.log.Reset()
	a.total = 0
}

// Resetter reports when a fixed wall-clock interval has passed since the
// last reset. The first observed time starts the clock.
type Resetter struct {
	interval time.Duration
	last     time.Time
}

// NewResetter creates a resetter; a zero interval never fires.
func NewResetter(interval time.Duration) *Resetter {
	return &Resetter{interval: interval}
}

// Due reports whether a reset is due at now, and restarts the clock if so.
func (r *Resetter) Due(now time.Time) bool {
	if r.last.IsZero() {
		r.last = now
		return false
	}
	if r.interval <= 0 || now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}

// Restart drops the running interval; the next observed time starts a new one.
func (r *Resetter) Restart() {
	r.last = time.Time{}
}
