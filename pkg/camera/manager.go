package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-vigil/pkg/debug"
)

// Errors returned by Manager.
var (
	ErrNotOpened     = errors.New("camera: device not opened")
	ErrReadFailed    = errors.New("camera: frame read failed")
	ErrInvalidConfig = errors.New("camera: invalid config")
)

// Manager holds the current camera configuration and the open capture device.
type Manager struct {
	config  Config
	capture *gocv.VideoCapture
	mu      sync.RWMutex

	// Callback when config changes (for persisting the device index)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Open opens the configured device and applies the resolution settings.
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked()
}

func (m *Manager) openLocked() error {
	if m.capture != nil {
		m.capture.Close()
		m.capture = nil
	}

	capture, err := gocv.OpenVideoCapture(m.config.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", m.config.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: %w", m.config.Device, ErrNotOpened)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(m.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(m.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(m.config.Framerate))
	if m.config.BufferSize > 0 {
		capture.Set(gocv.VideoCaptureBufferSize, float64(m.config.BufferSize))
	}
	if m.config.Brightness != 0 {
		capture.Set(gocv.VideoCaptureBrightness, m.config.Brightness)
	}

	debug.Log("📷 Camera %d opened at %.0fx%.0f\n", m.config.Device,
		capture.Get(gocv.VideoCaptureFrameWidth), capture.Get(gocv.VideoCaptureFrameHeight))

	m.capture = capture
	return nil
}

// Read grabs the next frame into dst.
func (m *Manager) Read(dst *gocv.Mat) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.capture == nil {
		return ErrNotOpened
	}
	if ok := m.capture.Read(dst); !ok || dst.Empty() {
		return ErrReadFailed
	}
	if m.config.Mirror {
		gocv.Flip(*dst, dst, 1)
	}
	return nil
}

// IsOpen reports whether a device is open.
func (m *Manager) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capture != nil
}

// Close releases the capture device.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capture == nil {
		return nil
	}
	err := m.capture.Close()
	m.capture = nil
	return err
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the camera configuration. An open device is reopened so
// a new index or resolution takes effect immediately.
func (m *Manager) SetConfig(cfg Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	var reopenErr error
	if m.capture != nil {
		reopenErr = m.openLocked()
	}
	m.mu.Unlock()

	if reopenErr != nil {
		return reopenErr
	}

	// Notify callback if set
	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	// A preset is the base; other fields in params refine it
	if name, ok := params["preset"].(string); ok {
		preset, found := Preset(name)
		if !found {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
		}
		preset.Device = cfg.Device // Presets never switch cameras
		cfg = preset
	}

	for key, value := range params {
		switch key {
		case "device":
			if v, ok := toInt(value); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "brightness":
			if v, ok := toFloat(value); ok {
				cfg.Brightness = v
			}
		case "buffer_size":
			if v, ok := toInt(value); ok {
				cfg.BufferSize = v
			}
		case "mirror":
			if v, ok := value.(bool); ok {
				cfg.Mirror = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// Probe tries device indexes 0..limit-1 and returns the ones that open.
// It must not be called while the manager holds one of them open.
func Probe(limit int) []int {
	var found []int
	for i := 0; i < limit; i++ {
		capture, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if capture.IsOpened() {
			found = append(found, i)
		}
		capture.Close()
	}
	return found
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
