package frequency

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func TestTimestampLog_CapacityEvictsOldest(t *testing.T) {
	l := NewTimestampLog(3, time.Hour)
	for i := 0; i < 5; i++ {
		l.Add(t0.Add(time.Duration(i) * time.Second))
	}
	if l.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", l.Len())
	}
	if got := l.Times()[0]; !got.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("Expected oldest kept entry at +2s, got %v", got.Sub(t0))
	}
}

func TestTimestampLog_PruneRoundTrip(t *testing.T) {
	window := 60 * time.Second
	l := NewTimestampLog(10, window)
	for i := 0; i < 4; i++ {
		l.Add(t0)
	}

	l.Prune(t0.Add(window))
	if l.Len() != 4 {
		t.Errorf("Expected entries exactly window old to be kept, got %d", l.Len())
	}

	l.Prune(t0.Add(window + time.Nanosecond))
	if l.Len() != 0 {
		t.Errorf("Expected all entries pruned at window+eps, got %d", l.Len())
	}
}

func TestTimestampLog_PruneKeepsRecent(t *testing.T) {
	l := NewTimestampLog(10, 3*time.Second)
	l.Add(t0)
	l.Add(t0.Add(2 * time.Second))
	l.Add(t0.Add(4 * time.Second))

	l.Prune(t0.Add(5 * time.Second))
	times := l.Times()
	if len(times) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(times))
	}
	for _, ts := range times {
		if t0.Add(5*time.Second).Sub(ts) > 3*time.Second {
			t.Errorf("Entry %v older than window survived prune", ts.Sub(t0))
		}
	}
}

func TestAggregator_CheckFrequency(t *testing.T) {
	tests := []struct {
		name      string
		events    int
		threshold int
		want      bool
	}{
		{"below", 2, 3, false},
		{"at", 3, 3, true},
		{"above", 7, 3, true},
		{"none", 0, 1, false},
	}

	for _, tc := range tests {
		a := NewAggregator("yawn", Rule{Enabled: true, Window: time.Minute, Threshold: tc.threshold, Capacity: 20})
		for i := 0; i < tc.events; i++ {
			a.Record(t0.Add(time.Duration(i) * time.Second))
		}
		if got := a.CheckFrequency(t0.Add(10 * time.Second)); got != tc.want {
			t.Errorf("%s: Expected %v with %d events and threshold %d, got %v",
				tc.name, tc.want, tc.events, tc.threshold, got)
		}
	}
}

func TestAggregator_WindowExpiry(t *testing.T) {
	rule := Rule{Enabled: true, Window: 3 * time.Second, Threshold: 5, Capacity: 20}
	a := NewAggregator("rapid_blink", rule)
	for i := 0; i < 5; i++ {
		a.Record(t0.Add(time.Duration(i) * 500 * time.Millisecond))
	}
	if !a.CheckFrequency(t0.Add(2 * time.Second)) {
		t.Error("Expected 5 blinks within 3s to trip")
	}
	if a.CheckFrequency(t0.Add(6 * time.Second)) {
		t.Error("Expected rate to fall once blinks age out")
	}
	if a.Total() != 5 {
		t.Errorf("Expected total to survive pruning, got %d", a.Total())
	}
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator("blink", DefaultConfig().BlinkRate)
	a.Record(t0)
	a.Record(t0)
	a.Reset()
	if a.Total() != 0 || a.Count(t0) != 0 {
		t.Errorf("Expected reset to clear total and log, got total=%d count=%d", a.Total(), a.Count(t0))
	}
}

func TestResetter(t *testing.T) {
	r := NewResetter(time.Minute)
	if r.Due(t0) {
		t.Error("First observation should only start the clock")
	}
	if r.Due(t0.Add(59 * time.Second)) {
		t.Error("Expected no reset before the interval")
	}
	if !r.Due(t0.Add(60 * time.Second)) {
		t.Error("Expected reset at the interval")
	}
	if r.Due(t0.Add(90 * time.Second)) {
		t.Error("Expected the clock to restart after a reset")
	}
	if !r.Due(t0.Add(120 * time.Second)) {
		t.Error("Expected the next reset one interval later")
	}
}

func TestResetter_Restart(t *testing.T) {
	r := NewResetter(time.Minute)
	r.Due(t0)
	r.Restart()
	if r.Due(t0.Add(time.Hour)) {
		t.Error("Expected the first time after a restart to start the clock")
	}
	if !r.Due(t0.Add(time.Hour + time.Minute)) {
		t.Error("Expected a reset one interval after the restart")
	}
}

func TestResetter_ZeroIntervalNeverFires(t *testing.T) {
	r := NewResetter(0)
	r.Due(t0)
	if r.Due(t0.Add(time.Hour)) {
		t.Error("Expected zero interval to disable resets")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Expected default config to validate, got %v", errs)
	}

	cfg.YawnRate.Capacity = 1
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Expected capacity below threshold to be rejected, got %v", errs)
	}

	cfg = DefaultConfig()
	cfg.RapidBlink.Threshold = 0 // disabled rules are not checked
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Expected disabled rule to be skipped, got %v", errs)
	}
}
