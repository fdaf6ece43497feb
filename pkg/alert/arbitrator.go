// Package alert selects at most one active alert among competing fatigue
// conditions and decides when its sound may start.
//
// Two timers shape the output. The stop delay keeps an alert on screen
// briefly after its condition clears, so a one-frame dropout does not
// flicker to Idle. The sound cooldown limits how often any alert sound may be
// (re)started, independent of the visual state.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Sounder plays and stops per-kind alert sounds. Calls are fire-and-forget.
type Sounder interface {
	Play(kind Kind)
	Stop(kind Kind)
}

// Config holds arbitration timing.
type Config struct {
	StopDelay time.Duration `yaml:"stop_delay" json:"stop_delay"` // hold after all conditions clear
	Cooldown  time.Duration `yaml:"cooldown" json:"cooldown"`     // minimum gap between sound starts
}

// DefaultConfig returns a 1s stop delay and a 3s sound cooldown.
func DefaultConfig() Config {
	return Config{
		StopDelay: time.Second,
		Cooldown:  3 * time.Second,
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string
	if c.StopDelay < 0 {
		errors = append(errors, "stop_delay cannot be negative")
	}
	if c.Cooldown < 0 {
		errors = append(errors, "cooldown cannot be negative")
	}
	return errors
}

// State is the authoritative alert state.
type State struct {
	Kind          Kind      `json:"kind"`
	Phase         Phase     `json:"phase"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
	StopAt        time.Time `json:"stop_at,omitzero"` // pending Idle transition while CoolingDown
	EpisodeID     string    `json:"episode_id,omitempty"`
}

// Decision is the result of one arbitration tick.
type Decision struct {
	State
	SoundTriggered bool `json:"sound_triggered"`

	// Changed is set when the displayed kind differs from the previous tick.
	Changed         bool   `json:"changed"`
	Previous        Kind   `json:"previous"`
	PreviousEpisode string `json:"previous_episode,omitempty"`
}

// Arbitrator is the single writer of State. It is not safe for concurrent use.
type Arbitrator struct {
	config  Config
	sounder Sounder
	state   State

	soundKind Kind // kind whose sound is currently looping, None if silent
}

// NewArbitrator creates an idle arbitrator. A nil sounder disables sound.
func NewArbitrator(config Config, sounder Sounder) *Arbitrator {
	return &Arbitrator{config: config, sounder: sounder}
}

// Update advances the state machine with this tick's conditions.
func (a *Arbitrator) Update(now time.Time, c Conditions) Decision {
	prevKind, prevEpisode := a.state.Kind, a.state.EpisodeID
	top := c.Highest()

	switch a.state.Phase {
	case Idle:
		if top != None {
			a.activate(now, top)
		}

	case Active:
		switch {
		case top.Outranks(a.state.Kind):
			a.activate(now, top)
		case c.Has(a.state.Kind):
			// holding
		default:
			a.state.Phase = CoolingDown
			a.state.StopAt = now.Add(a.config.StopDelay)
			a.coolDown(now, c)
		}

	case CoolingDown:
		a.coolDown(now, c)
	}

	triggered := a.syncSound(now)
	d := Decision{State: a.state, SoundTriggered: triggered}
	if a.state.Kind != prevKind {
		d.Changed = true
		d.Previous = prevKind
		d.PreviousEpisode = prevEpisode
	}
	return d
}

// coolDown handles a tick while an Idle transition is pending.
func (a *Arbitrator) coolDown(now time.Time, c Conditions) {
	top := c.Highest()
	if top != None && !a.state.Kind.Outranks(top) {
		a.activate(now, top)
		return
	}
	if now.Before(a.state.StopAt) {
		return
	}
	if top != None {
		a.activate(now, top)
		return
	}
	a.idle()
}

func (a *Arbitrator) activate(now time.Time, kind Kind) {
	if kind != a.state.Kind || a.state.Phase == Idle {
		a.state.Kind = kind
		a.state.StartedAt = now
		a.state.EpisodeID = uuid.New().String()
	}
	a.state.Phase = Active
	a.state.StopAt = time.Time{}
}

func (a *Arbitrator) idle() {
	a.state.Kind = None
	a.state.Phase = Idle
	a.state.StartedAt = time.Time{}
	a.state.StopAt = time.Time{}
	a.state.EpisodeID = ""
}

// syncSound keeps the looping sound in step with the displayed kind. A stale
// sound is stopped at once; a new one starts only after the cooldown.
func (a *Arbitrator) syncSound(now time.Time) bool {
	if a.soundKind != a.state.Kind || a.state.Phase == Idle {
		a.silence()
	}
	if a.state.Phase == Idle || a.soundKind == a.state.Kind || now.Before(a.state.CooldownUntil) {
		return false
	}
	if a.sounder != nil {
		a.sounder.Play(a.state.Kind)
	}
	a.soundKind = a.state.Kind
	a.state.CooldownUntil = now.Add(a.config.Cooldown)
	return true
}

func (a *Arbitrator) silence() {
	if a.soundKind == None {
		return
	}
	if a.sounder != nil {
		a.sounder.Stop(a.soundKind)
	}
	a.soundKind = None
}

// State returns the current alert state.
func (a *Arbitrator) State() State {
	return a.state
}

// Sounding returns the kind whose sound is looping, or None.
func (a *Arbitrator) Sounding() Kind {
	return a.soundKind
}

// Reset drops any alert and stops its sound, returning the state it
// replaced. The sound cooldown survives a reset.
func (a *Arbitrator) Reset() State {
	prev := a.state
	a.silence()
	a.idle()
	return prev
}
