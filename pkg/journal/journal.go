// Package journal keeps a SQLite history of alert episodes and calibration
// runs for the dashboard.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/calibration"
)

// schema.sql creates the episodes and calibrations tables.
//
//go:embed schema.sql
var schemaSQL string

// DB is the journal database.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return &DB{db}, nil
}

// Episode is one continuous alert of a single kind.
type Episode struct {
	ID        string     `json:"id"`
	Kind      alert.Kind `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"` // nil while the alert is still showing
	Sounded   bool       `json:"sounded"`
}

// Duration returns how long the episode lasted, or has lasted so far at now.
func (e Episode) Duration(now time.Time) time.Duration {
	if e.EndedAt != nil {
		return e.EndedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt)
}

// Calibration is one finished calibration run.
type Calibration struct {
	SessionID  string    `json:"session_id"`
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `json:"success"`
	Threshold  float64   `json:"threshold"`
	Samples    int       `json:"samples"`
	Error      string    `json:"error,omitempty"`
}

// OpenEpisode records the start of an episode. Re-opening a known ID is a no-op.
func (db *DB) OpenEpisode(id string, kind alert.Kind, at time.Time) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO episodes (episode_id, kind, started_ns) VALUES (?, ?, ?)`,
		id, kind.String(), at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to open episode: %w", err)
	}
	return nil
}

// CloseEpisode records the end of an episode. Closing twice keeps the first end.
func (db *DB) CloseEpisode(id string, at time.Time) error {
	_, err := db.Exec(
		`UPDATE episodes SET ended_ns = ? WHERE episode_id = ? AND ended_ns IS NULL`,
		at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to close episode: %w", err)
	}
	return nil
}

// MarkSounded flags that the episode's alert sound was started.
func (db *DB) MarkSounded(id string) error {
	_, err := db.Exec(`UPDATE episodes SET sounded = 1 WHERE episode_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark episode sounded: %w", err)
	}
	return nil
}

// CloseOpen ends every episode still open, e.g. after an unclean shutdown.
func (db *DB) CloseOpen(at time.Time) (int64, error) {
	res, err := db.Exec(`UPDATE episodes SET ended_ns = ? WHERE ended_ns IS NULL`, at.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to close open episodes: %w", err)
	}
	return res.RowsAffected()
}

// Episodes returns up to limit episodes, newest first.
func (db *DB) Episodes(limit int) ([]Episode, error) {
	rows, err := db.Query(
		`SELECT episode_id, kind, started_ns, ended_ns, sounded
		   FROM episodes ORDER BY started_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var (
			ep      Episode
			kind    string
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&ep.ID, &kind, &started, &ended, &ep.Sounded); err != nil {
			return nil, err
		}
		if ep.Kind, err = alert.ParseKind(kind); err != nil {
			return nil, err
		}
		ep.StartedAt = time.Unix(0, started)
		if ended.Valid {
			t := time.Unix(0, ended.Int64)
			ep.EndedAt = &t
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return episodes, nil
}

// CountSince returns the number of episodes per kind started at or after since.
func (db *DB) CountSince(since time.Time) (map[alert.Kind]int, error) {
	rows, err := db.Query(
		`SELECT kind, COUNT(*) FROM episodes WHERE started_ns >= ? GROUP BY kind`, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[alert.Kind]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		kind, err := alert.ParseKind(name)
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// RecordCalibration stores a finished calibration.
func (db *DB) RecordCalibration(r calibration.Result, at time.Time) error {
	var errText sql.NullString
	if r.Err != nil {
		errText = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	_, err := db.Exec(
		`INSERT OR REPLACE INTO calibrations (session_id, finished_ns, success, threshold, samples, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.SessionID, at.UnixNano(), r.Success, r.NewThreshold, r.Samples, errText)
	if err != nil {
		return fmt.Errorf("failed to record calibration: %w", err)
	}
	return nil
}

// Calibrations returns up to limit calibration runs, newest first.
func (db *DB) Calibrations(limit int) ([]Calibration, error) {
	rows, err := db.Query(
		`SELECT session_id, finished_ns, success, threshold, samples, error
		   FROM calibrations ORDER BY finished_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calibration
	for rows.Next() {
		var (
			c        Calibration
			finished int64
			errText  sql.NullString
		)
		if err := rows.Scan(&c.SessionID, &finished, &c.Success, &c.Threshold, &c.Samples, &errText); err != nil {
			return nil, err
		}
		c.FinishedAt = time.Unix(0, finished)
		c.Error = errText.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
