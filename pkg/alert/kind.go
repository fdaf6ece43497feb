package alert

import (
	"fmt"
	"strings"
)

// Kind is an alert category. Higher values win arbitration.
type Kind int

const (
	None Kind = iota
	NoFace
	HeadTilt
	Fatigue
	Drowsiness
)

// Kinds lists every alertable kind, highest priority first.
var Kinds = []Kind{Drowsiness, Fatigue, HeadTilt, NoFace}

var kindNames = map[Kind]string{
	None:       "none",
	NoFace:     "no_face",
	HeadTilt:   "head_tilt",
	Fatigue:    "fatigue",
	Drowsiness: "drowsiness",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outranks reports whether k has strictly higher priority than other.
func (k Kind) Outranks(other Kind) bool {
	return k > other
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a name like "head_tilt" back to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown alert kind %q", s)
}

// Phase is the arbitrator's lifecycle state.
type Phase int

const (
	Idle Phase = iota
	Active
	CoolingDown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case CoolingDown:
		return "cooling_down"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Conditions are the raw per-tick positives from detectors and aggregators.
type Conditions struct {
	Drowsiness bool `json:"drowsiness"`
	Fatigue    bool `json:"fatigue"`
	HeadTilt   bool `json:"head_tilt"`
	NoFace     bool `json:"no_face"`
}

// Has reports whether the condition for k is present.
func (c Conditions) Has(k Kind) bool {
	switch k {
	case Drowsiness:
		return c.Drowsiness
	case Fatigue:
		return c.Fatigue
	case HeadTilt:
		return c.HeadTilt
	case NoFace:
		return c.NoFace
	}
	return false
}

// Highest returns the highest-priority present condition, or None.
func (c Conditions) Highest() Kind {
	for _, k := range Kinds {
		if c.Has(k) {
			return k
		}
	}
	return None
}

// Any reports whether any condition is present.
func (c Conditions) Any() bool {
	return c.Highest() != None
}
