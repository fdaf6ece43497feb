// Package store persists user settings (EAR threshold, camera, alert volume
// and sounds) across restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/sound"
)

// ErrInvalidSettings is returned when settings fail validation.
var ErrInvalidSettings = errors.New("store: invalid settings")

// Accepted EAR threshold range.
const (
	MinThreshold = 0.10
	MaxThreshold = 0.40
)

// Settings are the values a user can change at runtime.
type Settings struct {
	EARThreshold float64           `json:"ear_threshold"`
	CameraIndex  int               `json:"camera_index"`
	AlertVolume  int               `json:"alert_volume"`
	Sounds       map[string]string `json:"sounds,omitempty"` // alert kind -> file in the sound dir
}

// DefaultSettings returns first-run settings.
func DefaultSettings() Settings {
	return Settings{
		EARThreshold: 0.22,
		CameraIndex:  0,
		AlertVolume:  50,
	}
}

// Validate checks every field and returns all problems joined.
func (s Settings) Validate() error {
	var problems []string

	if s.EARThreshold < MinThreshold || s.EARThreshold > MaxThreshold {
		problems = append(problems, fmt.Sprintf("ear_threshold must be %.2f-%.2f", MinThreshold, MaxThreshold))
	}
	if s.CameraIndex < 0 {
		problems = append(problems, "camera_index cannot be negative")
	}
	if s.AlertVolume < 0 || s.AlertVolume > 100 {
		problems = append(problems, "alert_volume must be 0-100")
	}
	for name := range s.Sounds {
		if kind, err := alert.ParseKind(name); err != nil || kind == alert.None {
			problems = append(problems, fmt.Sprintf("sounds: unknown alert %q", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Sounds = maps.Clone(s.Sounds)
	return s
}

// JSONStore keeps settings in a JSON file.
type JSONStore struct {
	path     string
	settings Settings
	mu       sync.RWMutex
}

// storeData is the JSON structure for the settings file.
type storeData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Settings  Settings `json:"settings"`
}

const currentVersion = 1

// NewJSONStore opens the settings file at path. A missing file yields
// defaults and is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:     path,
		settings: DefaultSettings(),
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
	}

	return store, nil
}

// NewDefaultStore opens ~/.vigil/settings.json.
func NewDefaultStore() (*JSONStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewJSONStore(filepath.Join(homeDir, ".vigil", "settings.json"))
}

// Path returns the settings file location.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	stored := storeData{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	// Hand-edited files may carry an out-of-range volume
	stored.Settings.AlertVolume = sound.ClampVolume(stored.Settings.AlertVolume)
	if err := stored.Settings.Validate(); err != nil {
		return err
	}

	s.settings = stored.Settings
	return nil
}

// save writes the settings to disk (must hold mu).
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Settings:  s.settings,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up temp file
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Get returns a copy of the current settings.
func (s *JSONStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Save validates and persists settings.
func (s *JSONStore) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	s.settings = settings.Clone()
	if err := s.save(); err != nil {
		s.settings = prev
		return err
	}
	return nil
}

// Update applies fn to a copy of the settings and saves the result. Nothing
// changes if the result is invalid or cannot be written.
func (s *JSONStore) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.settings.Clone(), err
	}

	prev := s.settings
	s.settings = next
	if err := s.save(); err != nil {
		s.settings = prev
		return prev.Clone(), err
	}
	return next.Clone(), nil
}

// SetThreshold persists a new EAR threshold, typically after calibration.
func (s *JSONStore) SetThreshold(v float64) error {
	_, err := s.Update(func(st *Settings) { st.EARThreshold = v })
	return err
}

// Patch is a partial settings update; nil fields are left unchanged.
type Patch struct {
	EARThreshold *float64          `json:"ear_threshold,omitempty"`
	CameraIndex  *int              `json:"camera_index,omitempty"`
	AlertVolume  *int              `json:"alert_volume,omitempty"`
	Sounds       map[string]string `json:"sounds,omitempty"` // an empty file name reverts that kind to the default
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.EARThreshold == nil && p.CameraIndex == nil && p.AlertVolume == nil && len(p.Sounds) == 0
}

// Apply writes the patch into s.
func (p Patch) Apply(s *Settings) {
	if p.EARThreshold != nil {
		s.EARThreshold = *p.EARThreshold
	}
	if p.CameraIndex != nil {
		s.CameraIndex = *p.CameraIndex
	}
	if p.AlertVolume != nil {
		s.AlertVolume = sound.ClampVolume(*p.AlertVolume)
	}
	for kind, file := range p.Sounds {
		if file == "" {
			delete(s.Sounds, kind)
			continue
		}
		if s.Sounds == nil {
			s.Sounds = make(map[string]string)
		}
		s.Sounds[kind] = file
	}
}
