package journal

import (
	"time"

	"github.com/teslashibe/go-vigil/pkg/alert"
)

// Tracker turns the arbitrator's per-tick state into episode rows. It
// follows EpisodeID rather than Kind so that a resumed alert stays one row
// and a reset between ticks still closes the old episode.
type Tracker struct {
	db      *DB
	current string
	sounded bool
}

// NewTracker writes episodes to db.
func NewTracker(db *DB) *Tracker {
	return &Tracker{db: db}
}

// Current returns the open episode ID, if any.
func (t *Tracker) Current() string {
	return t.current
}

// Observe records the transition into st. soundTriggered reports whether the
// alert sound started on this tick.
func (t *Tracker) Observe(now time.Time, st alert.State, soundTriggered bool) error {
	if st.EpisodeID != t.current {
		if t.current != "" {
			if err := t.db.CloseEpisode(t.current, now); err != nil {
				return err
			}
		}
		t.current, t.sounded = st.EpisodeID, false
		if st.EpisodeID != "" {
			started := st.StartedAt
			if started.IsZero() {
				started = now
			}
			if err := t.db.OpenEpisode(st.EpisodeID, st.Kind, started); err != nil {
				return err
			}
		}
	}

	if soundTriggered && t.current != "" && !t.sounded {
		t.sounded = true
		return t.db.MarkSounded(t.current)
	}
	return nil
}

// Close ends the open episode, if any.
func (t *Tracker) Close(now time.Time) error {
	if t.current == "" {
		return nil
	}
	id := t.current
	t.current, t.sounded = "", false
	return t.db.CloseEpisode(id, now)
}
