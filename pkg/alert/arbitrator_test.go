package alert

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

type recorder struct {
	calls []string
}

func (r *recorder) Play(k Kind) { r.calls = append(r.calls, "play:"+k.String()) }
func (r *recorder) Stop(k Kind) { r.calls = append(r.calls, "stop:"+k.String()) }

type step struct {
	Kind  Kind
	Phase Phase
	Sound bool
}

type input struct {
	at   int // milliseconds from t0
	cond Conditions
}

var (
	quiet  = Conditions{}
	drowsy = Conditions{Drowsiness: true}
	tilt   = Conditions{HeadTilt: true}
	tired  = Conditions{Fatigue: true}
)

func drive(a *Arbitrator, inputs []input) []step {
	var out []step
	for _, in := range inputs {
		d := a.Update(ms(in.at), in.cond)
		out = append(out, step{d.Kind, d.Phase, d.SoundTriggered})
	}
	return out
}

func TestKind_Priority(t *testing.T) {
	if !Drowsiness.Outranks(Fatigue) || !Fatigue.Outranks(HeadTilt) || !HeadTilt.Outranks(NoFace) {
		t.Error("Expected Drowsiness > Fatigue > HeadTilt > NoFace")
	}
	got := Conditions{Drowsiness: true, HeadTilt: true, NoFace: true}.Highest()
	if got != Drowsiness {
		t.Errorf("Expected Drowsiness, got %v", got)
	}
	if quiet.Highest() != None || quiet.Any() {
		t.Error("Expected no conditions to yield None")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("sneezing"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestArbitrator_DrowsinessBeatsHeadTilt(t *testing.T) {
	a := NewArbitrator(DefaultConfig(), nil)

	d := a.Update(ms(0), Conditions{Drowsiness: true, HeadTilt: true})
	if d.Kind != Drowsiness || d.Phase != Active {
		t.Errorf("Expected Active(drowsiness), got %v(%v)", d.Phase, d.Kind)
	}

	// Already showing a lower kind: a higher one preempts immediately.
	a = NewArbitrator(DefaultConfig(), nil)
	a.Update(ms(0), tilt)
	d = a.Update(ms(100), Conditions{Drowsiness: true, HeadTilt: true})
	if d.Kind != Drowsiness || !d.Changed || d.Previous != HeadTilt {
		t.Errorf("Expected preemption to drowsiness, got %+v", d)
	}
}

func TestArbitrator_ShortDropoutHasNoIdle(t *testing.T) {
	rec := &recorder{}
	a := NewArbitrator(DefaultConfig(), rec)

	got := drive(a, []input{
		{0, drowsy},
		{100, drowsy},
		{200, quiet}, // stop scheduled for 1200
		{500, quiet},
		{800, drowsy},
		{900, drowsy},
	})
	want := []step{
		{Drowsiness, Active, true},
		{Drowsiness, Active, false},
		{Drowsiness, CoolingDown, false},
		{Drowsiness, CoolingDown, false},
		{Drowsiness, Active, false},
		{Drowsiness, Active, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected sequence (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"play:drowsiness"}, rec.calls); diff != "" {
		t.Errorf("Expected one sound start and no stop (-want +got):\n%s", diff)
	}
}

func TestArbitrator_ResumedAlertKeepsEpisode(t *testing.T) {
	a := NewArbitrator(DefaultConfig(), nil)
	first := a.Update(ms(0), drowsy)
	a.Update(ms(100), quiet)
	resumed := a.Update(ms(500), drowsy)

	if resumed.EpisodeID != first.EpisodeID {
		t.Errorf("Expected episode %s to continue, got %s", first.EpisodeID, resumed.EpisodeID)
	}
	if !resumed.StartedAt.Equal(first.StartedAt) {
		t.Errorf("Expected start time to be kept, got %v", resumed.StartedAt)
	}
	if resumed.Changed {
		t.Error("Expected no kind change")
	}
}

func TestArbitrator_StopDelayAndSoundCooldown(t *testing.T) {
	rec := &recorder{}
	a := NewArbitrator(DefaultConfig(), rec)

	got := drive(a, []input{
		{0, drowsy},  // sound, cooldown until 3000
		{100, quiet}, // stop at 1100
		{600, quiet},
		{1100, quiet},  // delay elapsed
		{1500, drowsy}, // back, but sound still cooling down
		{2000, drowsy},
		{3000, drowsy}, // cooldown elapsed
		{3100, drowsy},
	})
	want := []step{
		{Drowsiness, Active, true},
		{Drowsiness, CoolingDown, false},
		{Drowsiness, CoolingDown, false},
		{None, Idle, false},
		{Drowsiness, Active, false},
		{Drowsiness, Active, false},
		{Drowsiness, Active, true},
		{Drowsiness, Active, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected sequence (-want +got):\n%s", diff)
	}

	wantCalls := []string{"play:drowsiness", "stop:drowsiness", "play:drowsiness"}
	if diff := cmp.Diff(wantCalls, rec.calls); diff != "" {
		t.Errorf("Unexpected sounder calls (-want +got):\n%s", diff)
	}
}

func TestArbitrator_LowerConditionWaitsForStopDelay(t *testing.T) {
	rec := &recorder{}
	a := NewArbitrator(DefaultConfig(), rec)

	got := drive(a, []input{
		{0, drowsy},
		{100, tilt}, // drowsiness cleared, tilt is lower: stop at 1100
		{500, tilt},
		{1100, tilt}, // delay elapsed, fall back to tilt
		{3000, tilt},
	})
	want := []step{
		{Drowsiness, Active, true},
		{Drowsiness, CoolingDown, false},
		{Drowsiness, CoolingDown, false},
		{HeadTilt, Active, false},
		{HeadTilt, Active, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected sequence (-want +got):\n%s", diff)
	}

	wantCalls := []string{"play:drowsiness", "stop:drowsiness", "play:head_tilt"}
	if diff := cmp.Diff(wantCalls, rec.calls); diff != "" {
		t.Errorf("Unexpected sounder calls (-want +got):\n%s", diff)
	}
}

func TestArbitrator_HigherConditionCancelsStop(t *testing.T) {
	a := NewArbitrator(DefaultConfig(), nil)

	a.Update(ms(0), tilt)
	a.Update(ms(100), quiet)
	d := a.Update(ms(300), tired)

	if d.Phase != Active || d.Kind != Fatigue {
		t.Fatalf("Expected Active(fatigue), got %v(%v)", d.Phase, d.Kind)
	}
	if !d.Changed || d.Previous != HeadTilt || d.PreviousEpisode == "" {
		t.Errorf("Expected change from head_tilt with its episode, got %+v", d)
	}
	if !d.StopAt.IsZero() {
		t.Errorf("Expected pending stop to be cancelled, got %v", d.StopAt)
	}
}

func TestArbitrator_ZeroStopDelay(t *testing.T) {
	a := NewArbitrator(Config{StopDelay: 0, Cooldown: time.Second}, nil)
	a.Update(ms(0), drowsy)
	d := a.Update(ms(33), quiet)
	if d.Phase != Idle || d.Kind != None {
		t.Errorf("Expected immediate Idle with no stop delay, got %v(%v)", d.Phase, d.Kind)
	}
	if !d.Changed || d.Previous != Drowsiness {
		t.Errorf("Expected change from drowsiness, got %+v", d)
	}
}

func TestArbitrator_SoundStartsOncePerEpisode(t *testing.T) {
	rec := &recorder{}
	a := NewArbitrator(DefaultConfig(), rec)

	for i := 0; i < 300; i++ {
		a.Update(ms(i*33), drowsy)
	}
	if len(rec.calls) != 1 {
		t.Errorf("Expected a single looping sound start, got %v", rec.calls)
	}
	if a.Sounding() != Drowsiness {
		t.Errorf("Expected drowsiness sound looping, got %v", a.Sounding())
	}
}

func TestArbitrator_Reset(t *testing.T) {
	rec := &recorder{}
	a := NewArbitrator(DefaultConfig(), rec)
	a.Update(ms(0), drowsy)

	prev := a.Reset()
	if prev.Kind != Drowsiness {
		t.Errorf("Expected reset to return the replaced state, got %v", prev.Kind)
	}
	if st := a.State(); st.Phase != Idle || st.Kind != None {
		t.Errorf("Expected Idle after reset, got %+v", st)
	}
	if a.Sounding() != None {
		t.Error("Expected sound stopped after reset")
	}

	// The cooldown from the first start still applies.
	if d := a.Update(ms(500), drowsy); d.SoundTriggered {
		t.Error("Expected reset to keep the sound cooldown")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Expected default config to validate, got %v", errs)
	}
	cfg.Cooldown = -time.Second
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Expected 1 error, got %v", errs)
	}
}
