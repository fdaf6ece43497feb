package vigil

import (
	"fmt"
	"slices"

	"github.com/teslashibe/go-vigil/pkg/alert"
	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/engine"
	"github.com/teslashibe/go-vigil/pkg/journal"
	"github.com/teslashibe/go-vigil/pkg/sound"
	"github.com/teslashibe/go-vigil/pkg/store"
	"github.com/teslashibe/go-vigil/pkg/web"
)

// Status returns the most recent frame result with the current mode and
// alert state folded in, so commands are visible before the next tick.
func (a *App) Status() engine.FrameResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	res := a.latest
	res.Mode = a.engine.Mode()
	res.Alert.State = a.engine.Alert()
	return res
}

// Config returns the engine configuration with the live EAR threshold.
func (a *App) Config() engine.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg := a.engine.Config()
	cfg.Detect.EARThreshold = a.engine.Threshold()
	return cfg
}

// StartMonitoring resumes monitoring if it was stopped.
func (a *App) StartMonitoring() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.engine.Start()
	if changed {
		a.log.Info("monitoring started")
	}
	return changed
}

// StopMonitoring stops monitoring and silences any alert. The open episode
// is closed by the next tick.
func (a *App) StopMonitoring() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.engine.Stop()
	if changed {
		a.log.Info("monitoring stopped")
	}
	return changed
}

// StartCalibration begins a calibration session and returns its ID.
func (a *App) StartCalibration() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return "", ErrShutdown
	}
	id := a.engine.StartCalibration(a.clock())
	a.log.Info("calibration started", "session", id, "duration", a.engine.Config().Calibration.Duration)
	return id, nil
}

// AbortCalibration discards the running session, if any.
func (a *App) AbortCalibration() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	aborted := a.engine.AbortCalibration()
	if aborted {
		a.log.Info("calibration aborted")
	}
	return aborted
}

// Settings returns the persisted user settings.
func (a *App) Settings() store.Settings {
	return a.settings.Get()
}

// UpdateSettings validates and saves p, then applies it to the engine,
// sound player and camera.
func (a *App) UpdateSettings(p store.Patch) (store.Settings, error) {
	if len(p.Sounds) > 0 {
		available, err := a.player.List()
		if err != nil {
			return store.Settings{}, err
		}
		for _, file := range p.Sounds {
			if file != "" && !slices.Contains(available, file) {
				return store.Settings{}, fmt.Errorf("%s: %w", file, sound.ErrUnknownSound)
			}
		}
	}

	st, err := a.settings.Update(p.Apply)
	if err != nil {
		return store.Settings{}, err
	}

	if p.EARThreshold != nil {
		a.mu.Lock()
		a.engine.SetThreshold(st.EARThreshold)
		a.mu.Unlock()
	}
	if p.AlertVolume != nil {
		a.player.SetVolume(st.AlertVolume)
	}
	for name, file := range p.Sounds {
		kind, _ := alert.ParseKind(name)
		if err := a.player.SetSound(kind, file); err != nil {
			a.log.Warn("alert sound not applied", "kind", name, "err", err)
		}
	}
	if p.CameraIndex != nil && a.camera != nil {
		cfg := a.camera.GetConfig()
		if cfg.Device != st.CameraIndex {
			cfg.Device = st.CameraIndex
			if err := a.camera.SetConfig(cfg); err != nil {
				a.log.Warn("camera switch failed", "device", st.CameraIndex, "err", err)
			}
		}
	}

	a.log.Info("settings updated", "threshold", st.EARThreshold, "camera", st.CameraIndex, "volume", st.AlertVolume)
	return st, nil
}

// Sounds lists the alert sound files available for selection.
func (a *App) Sounds() ([]string, error) {
	return a.player.List()
}

// Alerts returns the newest journaled alert episodes.
func (a *App) Alerts(limit int) ([]journal.Episode, error) {
	if a.journal == nil {
		return []journal.Episode{}, nil
	}
	return a.journal.Episodes(limit)
}

// Camera returns the capture configuration. Only the local landmark mode
// owns a camera.
func (a *App) Camera() (web.CameraStatus, error) {
	if a.camera == nil {
		return web.CameraStatus{}, fmt.Errorf("landmarks mode %q: %w", a.config.Landmarks.Mode, camera.ErrNotOpened)
	}
	return web.CameraStatus{Config: a.camera.GetConfig(), Presets: camera.PresetNames()}, nil
}

// UpdateCamera applies capture fields or a preset and reopens the device.
// A device change is saved as the camera index setting.
func (a *App) UpdateCamera(params map[string]any) (web.CameraStatus, error) {
	if a.camera == nil {
		return web.CameraStatus{}, fmt.Errorf("landmarks mode %q: %w", a.config.Landmarks.Mode, camera.ErrNotOpened)
	}
	if err := a.camera.UpdateConfig(params); err != nil {
		return web.CameraStatus{}, err
	}
	return a.Camera()
}
