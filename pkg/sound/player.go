// Package sound plays looping alert sounds through an external audio player
// process, one per alert kind.
package sound

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/debug"
)

// Errors returned by the player.
var (
	ErrUnknownKind  = errors.New("sound: unknown alert kind")
	ErrUnknownSound = errors.New("sound: file not in sound directory")
)

// Extensions lists the file types offered by List.
var Extensions = []string{".wav", ".mp3", ".ogg"}

// Config holds playback configuration
type Config struct {
	Dir     string            `yaml:"dir" json:"dir"`         // Directory of selectable sound files
	Default string            `yaml:"default" json:"default"` // Sound used when a kind has no file of its own
	Files   map[string]string `yaml:"files" json:"files"`     // Kind name -> file name inside Dir
	Volume  int               `yaml:"volume" json:"volume"`   // 0-100
	Command string            `yaml:"command" json:"command"` // Player binary, ffplay-compatible flags
}

// DefaultConfig returns defaults matching the bundled assets
func DefaultConfig() Config {
	return Config{
		Dir:     "assets/sounds",
		Default: "assets/alert.mp3",
		Files:   map[string]string{},
		Volume:  50,
		Command: "ffplay",
	}
}

// ClampVolume limits v to 0-100.
func ClampVolume(v int) int {
	return max(0, min(100, v))
}

// Player loops one sound per active alert kind. It implements alert.Sounder.
type Player struct {
	dir      string
	fallback string
	binary   string

	mu      sync.Mutex
	volume  int
	files   map[alert.Kind]string
	running map[alert.Kind]*exec.Cmd

	// command builds the process; replaced in tests
	command func(name string, arg ...string) *exec.Cmd

	// Callbacks
	OnPlaybackStart func(kind alert.Kind)
	OnPlaybackEnd   func(kind alert.Kind)
	OnError         func(kind alert.Kind, err error)
}

// NewPlayer creates a player. Unknown kind names in cfg.Files are ignored.
func NewPlayer(cfg Config) *Player {
	p := &Player{
		dir:      cfg.Dir,
		fallback: cfg.Default,
		binary:   cfg.Command,
		volume:   ClampVolume(cfg.Volume),
		files:    make(map[alert.Kind]string),
		running:  make(map[alert.Kind]*exec.Cmd),
		command:  exec.Command,
	}
	if p.binary == "" {
		p.binary = DefaultConfig().Command
	}
	for name, file := range cfg.Files {
		kind, err := alert.ParseKind(name)
		if err != nil || kind == alert.None {
			debug.Log("⚠️  Ignoring sound for unknown alert %q\n", name)
			continue
		}
		p.files[kind] = file
	}
	return p
}

// Play starts looping the sound for kind. Playing a kind that is already
// looping does nothing.
func (p *Player) Play(kind alert.Kind) {
	if kind == alert.None {
		return
	}

	p.mu.Lock()
	if _, ok := p.running[kind]; ok {
		p.mu.Unlock()
		return
	}

	path := p.pathLocked(kind)
	if _, err := os.Stat(path); err != nil {
		p.mu.Unlock()
		p.fail(kind, fmt.Errorf("sound file: %w", err))
		return
	}

	cmd := p.command(p.binary,
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-loop", "0",
		"-volume", strconv.Itoa(p.volume),
		path)
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		p.fail(kind, fmt.Errorf("start player: %w", err))
		return
	}
	p.running[kind] = cmd
	p.mu.Unlock()

	debug.Log("🔊 Playing %s alert (%s)\n", kind, filepath.Base(path))
	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart(kind)
	}

	go p.wait(kind, cmd)
}

// wait reaps the process and forgets it if it exits on its own.
func (p *Player) wait(kind alert.Kind, cmd *exec.Cmd) {
	cmd.Wait()

	p.mu.Lock()
	if p.running[kind] == cmd {
		delete(p.running, kind)
	}
	p.mu.Unlock()
}

// Stop ends the sound for kind, if it is playing.
func (p *Player) Stop(kind alert.Kind) {
	p.mu.Lock()
	cmd, ok := p.running[kind]
	delete(p.running, kind)
	p.mu.Unlock()

	if !ok {
		return
	}
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	debug.Log("🔇 Stopped %s alert\n", kind)
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd(kind)
	}
}

// StopAll ends every playing sound.
func (p *Player) StopAll() {
	for _, kind := range alert.Kinds {
		p.Stop(kind)
	}
}

// Playing reports whether kind's sound is looping.
func (p *Player) Playing(kind alert.Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[kind]
	return ok
}

// Volume returns the current volume (0-100).
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume clamps and stores v, returning the stored value. The new volume
// applies from the next sound started.
func (p *Player) SetVolume(v int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = ClampVolume(v)
	return p.volume
}

// SetSound selects file (a name from List) for kind. An empty file reverts
// to the default sound.
func (p *Player) SetSound(kind alert.Kind, file string) error {
	if !slices.Contains(alert.Kinds, kind) {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if file == "" {
		p.mu.Lock()
		delete(p.files, kind)
		p.mu.Unlock()
		return nil
	}

	available, err := p.List()
	if err != nil {
		return err
	}
	if !slices.Contains(available, file) {
		return fmt.Errorf("%w: %s", ErrUnknownSound, file)
	}

	p.mu.Lock()
	p.files[kind] = file
	p.mu.Unlock()
	return nil
}

// Sounds returns the selected file per kind name. Kinds using the default
// sound are omitted.
func (p *Player) Sounds() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.files))
	for kind, file := range p.files {
		out[kind.String()] = file
	}
	return out
}

// Path returns the file that would play for kind.
func (p *Player) Path(kind alert.Kind) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pathLocked(kind)
}

func (p *Player) pathLocked(kind alert.Kind) string {
	if file, ok := p.files[kind]; ok {
		return filepath.Join(p.dir, file)
	}
	return p.fallback
}

// List returns the sound files available in the sound directory, sorted.
// The directory is created if missing.
func (p *Player) List() ([]string, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return nil, fmt.Errorf("create sound dir: %w", err)
	}
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read sound dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(Extensions, ext) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

func (p *Player) fail(kind alert.Kind, err error) {
	debug.Log("⚠️  %s alert sound: %v\n", kind, err)
	if p.OnError != nil {
		p.OnError(kind, err)
	}
}
