// Package vigil wires the fatigue engine to its landmark source, alert
// sounds, settings store, alert journal and web dashboard.
package vigil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/teslashibe/go-vigil/internal/config"
	"github.com/teslashibe/go-vigil/internal/log"
	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/calibration"
	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/debug"
	"github.com/teslashibe/go-vigil/pkg/engine"
	"github.com/teslashibe/go-vigil/pkg/geometry"
	"github.com/teslashibe/go-vigil/pkg/journal"
	"github.com/teslashibe/go-vigil/pkg/landmarks"
	"github.com/teslashibe/go-vigil/pkg/sound"
	"github.com/teslashibe/go-vigil/pkg/store"
	"github.com/teslashibe/go-vigil/pkg/web"
)

// ErrShutdown is returned by commands issued after Shutdown.
var ErrShutdown = errors.New("vigil: shutting down")

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config
	log    *slog.Logger
	now    func() time.Time

	// mu serializes every engine call: ticks and dashboard commands
	mu       sync.Mutex
	engine   *engine.Engine
	latest   engine.FrameResult
	lastTick time.Time // frame time of the last tick, zero before the first
	closing  bool

	// Frame input
	source     landmarks.Source
	camera     *camera.Manager
	recordFile *os.File
	recorder   *landmarks.Recorder

	// Output and persistence
	player    *sound.Player
	sounder   alert.Sounder
	settings  *store.JSONStore
	journal   *journal.DB
	tracker   *journal.Tracker
	webServer *web.Server
}

// Option customizes an App.
type Option func(*App)

// WithSource uses src instead of building one from the landmarks config.
func WithSource(src landmarks.Source) Option {
	return func(a *App) { a.source = src }
}

// WithSounder replaces the sound player as the alert sound sink.
func WithSounder(s alert.Sounder) Option {
	return func(a *App) { a.sounder = s }
}

// WithClock replaces time.Now for frames without their own timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New creates an application from a validated configuration.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Frames = cfg.Frames

	a := &App{
		config: cfg,
		log:    log.Component("vigil"),
		now:    time.Now,
		player: sound.NewPlayer(cfg.Sound),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sounder == nil {
		a.sounder = a.player
	}
	a.engine = engine.New(cfg.Engine, a.sounder)
	a.latest = engine.FrameResult{Mode: a.engine.Mode(), Alert: alert.Decision{State: a.engine.Alert()}}
	return a, nil
}

// Init opens storage, restores settings and connects the landmark source.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.log.Info("starting", "preset", a.config.Preset, "landmarks", a.config.Landmarks.Mode)

	if err := a.initSettings(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := a.initJournal(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := a.initSource(ctx); err != nil {
		return fmt.Errorf("landmarks: %w", err)
	}
	if a.config.Web.Enabled {
		a.webServer = web.NewServer(a.config.Web, a)
	}
	return nil
}

// initSettings restores persisted settings, seeding the file from the
// config on first run.
func (a *App) initSettings() error {
	path := a.config.Storage.SettingsPath
	var err error
	if path == "" {
		a.settings, err = store.NewDefaultStore()
	} else {
		a.settings, err = store.NewJSONStore(path)
	}
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(a.settings.Path()); errors.Is(statErr, os.ErrNotExist) {
		seed := store.Settings{
			EARThreshold: a.config.Engine.Detect.EARThreshold,
			CameraIndex:  a.config.Camera.Device,
			AlertVolume:  sound.ClampVolume(a.config.Sound.Volume),
			Sounds:       a.config.Sound.Files,
		}
		if err := a.settings.Save(seed); err != nil {
			return err
		}
		a.log.Info("settings created", "path", a.settings.Path())
	}

	st := a.settings.Get()
	a.engine.SetThreshold(st.EARThreshold)
	a.config.Camera.Device = st.CameraIndex
	a.player.SetVolume(st.AlertVolume)
	for name, file := range st.Sounds {
		kind, _ := alert.ParseKind(name)
		if err := a.player.SetSound(kind, file); err != nil {
			a.log.Warn("alert sound unavailable, using default", "kind", name, "file", file, "err", err)
		}
	}
	a.log.Info("settings restored", "threshold", st.EARThreshold, "camera", st.CameraIndex, "volume", st.AlertVolume)
	return nil
}

func (a *App) initJournal() error {
	path := a.config.Storage.JournalPath
	if path == "" {
		return nil
	}
	db, err := journal.Open(path)
	if err != nil {
		return err
	}
	if n, err := db.CloseOpen(a.clock()); err != nil {
		a.log.Warn("could not close stale episodes", "err", err)
	} else if n > 0 {
		a.log.Info("closed episodes left open by a previous run", "count", n)
	}
	a.journal = db
	a.tracker = journal.NewTracker(db)
	return nil
}

func (a *App) initSource(ctx context.Context) error {
	if a.source == nil {
		src, err := a.openSource(ctx)
		if err != nil {
			return err
		}
		a.source = src
	}

	if path := a.config.Landmarks.RecordPath; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("record file: %w", err)
		}
		a.recordFile = f
		a.recorder = landmarks.NewRecorder(a.source, f)
		a.source = a.recorder
		a.log.Info("recording landmarks", "path", path)
	}
	return nil
}

func (a *App) openSource(ctx context.Context) (landmarks.Source, error) {
	lc := a.config.Landmarks
	switch lc.Mode {
	case config.ModeRemote:
		src, err := landmarks.DialRemote(ctx, lc.Remote)
		if err != nil {
			return nil, err
		}
		a.log.Info("connected to landmark service", "url", lc.Remote.URL)
		return src, nil

	case config.ModeReplay:
		f, err := os.Open(lc.ReplayPath)
		if err != nil {
			return nil, err
		}
		a.log.Info("replaying session", "path", lc.ReplayPath)
		return landmarks.NewReplay(f), nil

	default:
		a.camera = camera.NewManager(a.config.Camera)
		if err := a.camera.Open(); err != nil {
			return nil, err
		}
		a.camera.OnConfigChange = a.cameraChanged
		src, err := landmarks.NewLocal(a.camera, lc.Local)
		if err != nil {
			a.camera.Close()
			return nil, err
		}
		return src, nil
	}
}

// cameraChanged persists the device index after the camera is reconfigured.
func (a *App) cameraChanged(cfg camera.Config) error {
	a.log.Info("camera reconfigured", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	if a.settings.Get().CameraIndex == cfg.Device {
		return nil
	}
	_, err := a.settings.Update(func(s *store.Settings) { s.CameraIndex = cfg.Device })
	return err
}

// Run ticks the engine at the camera frame rate until ctx is cancelled, a
// replay ends, or the landmark source closes.
func (a *App) Run(ctx context.Context) error {
	if a.webServer != nil {
		a.webServer.StartAsync()
	}

	fps := max(a.config.Camera.Framerate, 1)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.log.Info("monitoring", "fps", fps)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := a.step(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				a.log.Info("replay finished")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// framer is implemented by sources that carry their own frame timestamps.
type framer interface {
	NextFrame() (landmarks.Frame, error)
}

// step reads one frame and ticks the engine with it. Read failures other
// than end-of-stream count as a frame without a face.
func (a *App) step(ctx context.Context) error {
	now := a.now()

	var lm *geometry.Landmarks
	var err error
	if f, ok := a.source.(framer); ok {
		var frame landmarks.Frame
		frame, err = f.NextFrame()
		if err == nil {
			if !frame.Time.IsZero() {
				now = frame.Time
			}
			lm, err = frame.Landmarks()
		}
	} else {
		lm, err = a.source.Next(ctx)
	}

	if err != nil {
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, landmarks.ErrClosed), ctx.Err() != nil:
			return err
		}
		a.log.Debug("frame unreadable, treating as no face", "err", err)
		lm = nil
	}

	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		return ErrShutdown
	}
	res := a.engine.Tick(now, lm)
	a.latest = res
	a.lastTick = now
	a.mu.Unlock()

	a.observe(res)
	return nil
}

// clock returns the engine's notion of now: the last tick's frame time, or
// the wall clock before the first tick. Replayed frames carry recorded
// times, so commands must not mix in the wall clock. Callers hold a.mu once
// Run has started.
func (a *App) clock() time.Time {
	if a.lastTick.IsZero() {
		return a.now()
	}
	return a.lastTick
}

// observe journals, logs and publishes one tick's outcome.
func (a *App) observe(res engine.FrameResult) {
	d := res.Alert
	if d.Changed {
		a.log.Info("alert", "kind", d.Kind, "phase", d.Phase, "previous", d.Previous, "episode", d.EpisodeID)
	}

	if a.tracker != nil {
		if err := a.tracker.Observe(res.Time, d.State, d.SoundTriggered); err != nil {
			a.log.Warn("journal write failed", "err", err)
		}
	}

	if r := res.Calibrated; r != nil {
		a.finishCalibration(res.Time, *r)
	}
	if res.FrequencyReset {
		a.log.Debug("frequency counters reset")
	}

	if a.recorder != nil {
		if err := a.recorder.Err(); err != nil {
			a.log.Warn("landmark recording stopped", "err", err)
			a.recorder = nil
		}
	}

	if a.webServer != nil {
		a.webServer.Publish(res)
	}
}

func (a *App) finishCalibration(at time.Time, r calibration.Result) {
	if r.Success {
		a.log.Info("calibration complete", "session", r.SessionID, "threshold", r.NewThreshold, "samples", r.Samples)
		if err := a.settings.SetThreshold(r.NewThreshold); err != nil {
			a.log.Warn("could not save calibrated threshold", "threshold", r.NewThreshold, "err", err)
		}
	} else {
		a.log.Warn("calibration failed", "session", r.SessionID, "err", r.Err)
	}

	if a.journal != nil {
		if err := a.journal.RecordCalibration(r, at); err != nil {
			a.log.Warn("journal write failed", "err", err)
		}
	}
}

// Shutdown stops the dashboard, silences alerts and releases every resource.
func (a *App) Shutdown() {
	a.log.Info("shutting down")

	a.mu.Lock()
	a.closing = true
	a.engine.Stop()
	closedAt := a.clock()
	a.mu.Unlock()

	if a.webServer != nil {
		a.webServer.Shutdown()
	}
	if a.tracker != nil {
		a.tracker.Close(closedAt)
	}
	a.player.StopAll()

	if a.source != nil {
		a.source.Close()
	}
	if a.recordFile != nil {
		a.recordFile.Close()
	}
	if a.camera != nil {
		a.camera.Close()
	}
	if a.journal != nil {
		a.journal.Close()
	}
}
