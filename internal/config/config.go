// Package config loads go-vigil configuration from vigil.yaml, a .env file
// and VIGIL_* environment variables. Command-line flags are applied by
// cmd/vigil on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/engine"
	"github.com/teslashibe/go-vigil/pkg/landmarks"
	"github.com/teslashibe/go-vigil/pkg/sound"
	"github.com/teslashibe/go-vigil/pkg/web"
)

// DefaultPath is read when no config file is named. It may be absent.
const DefaultPath = "vigil.yaml"

// Landmark source modes.
const (
	ModeLocal  = "local"  // camera + on-device models
	ModeRemote = "remote" // websocket landmark service
	ModeReplay = "replay" // recorded JSON-lines session
)

// Config is the complete application configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "text", "json" or empty for GO_ENV-based
	Debug     bool   `yaml:"debug"`      // emoji trace output
	Frames    bool   `yaml:"frames"`     // per-frame trace output

	// Preset picks the engine baseline; the engine section overrides it.
	Preset string        `yaml:"preset"`
	Engine engine.Config `yaml:"engine"`

	Camera    camera.Config   `yaml:"camera"`
	Landmarks LandmarksConfig `yaml:"landmarks"`
	Sound     sound.Config    `yaml:"sound"`
	Web       web.Config      `yaml:"web"`
	Storage   StorageConfig   `yaml:"storage"`
}

// LandmarksConfig selects and configures the landmark source.
type LandmarksConfig struct {
	Mode       string                 `yaml:"mode"`
	Local      landmarks.LocalConfig  `yaml:"local"`
	Remote     landmarks.RemoteConfig `yaml:"remote"`
	ReplayPath string                 `yaml:"replay_path"`
	RecordPath string                 `yaml:"record_path"` // tee live frames here when set
}

// StorageConfig locates persistent files.
type StorageConfig struct {
	SettingsPath string `yaml:"settings_path"` // empty: ~/.vigil/settings.json
	JournalPath  string `yaml:"journal_path"`  // empty disables the journal
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Preset:   "default",
		Engine:   engine.DefaultConfig(),
		Camera:   camera.DefaultConfig(),
		Landmarks: LandmarksConfig{
			Mode:   ModeLocal,
			Local:  landmarks.DefaultLocalConfig(),
			Remote: landmarks.DefaultRemoteConfig(),
		},
		Sound: sound.DefaultConfig(),
		Web:   web.DefaultConfig(),
		Storage: StorageConfig{
			JournalPath: "vigil.db",
		},
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// Load builds the configuration: defaults, then the preset, then the YAML
// file at path, then environment variables (including a .env file in the
// working directory). A missing DefaultPath is not an error.
func Load(path string) (Config, error) {
	// Missing .env is normal; real environment variables still apply
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && path == DefaultPath) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		data = nil
	}
	return Parse(data)
}

// Parse builds the configuration from YAML bytes and the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	// The preset must be known before the engine section is decoded over it
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	preset := head.Preset
	if env := os.Getenv("VIGIL_PRESET"); env != "" {
		preset = env
	}
	if preset != "" {
		base, ok := engine.Preset(preset)
		if !ok {
			return Config{}, &ConfigError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", preset)}
		}
		cfg.Preset = preset
		cfg.Engine = base
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.Preset = preset
	if cfg.Preset == "" {
		cfg.Preset = "default"
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from VIGIL_* variables.
func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "VIGIL_LOG_LEVEL")
	setString(&c.LogFormat, "VIGIL_LOG_FORMAT")
	setString(&c.Landmarks.Mode, "VIGIL_LANDMARKS_MODE")
	setString(&c.Landmarks.Remote.URL, "VIGIL_LANDMARKS_URL")
	setString(&c.Landmarks.Remote.Token, "VIGIL_LANDMARKS_TOKEN")
	setString(&c.Landmarks.ReplayPath, "VIGIL_REPLAY_PATH")
	setString(&c.Landmarks.RecordPath, "VIGIL_RECORD_PATH")
	setString(&c.Sound.Dir, "VIGIL_SOUND_DIR")
	setString(&c.Web.Port, "VIGIL_WEB_PORT")
	setString(&c.Storage.SettingsPath, "VIGIL_SETTINGS_PATH")
	setString(&c.Storage.JournalPath, "VIGIL_JOURNAL_PATH")

	for _, b := range []struct {
		dst *bool
		key string
	}{
		{&c.Debug, "VIGIL_DEBUG"},
		{&c.Frames, "VIGIL_FRAMES"},
		{&c.Web.Enabled, "VIGIL_WEB"},
	} {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("VIGIL_CAMERA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "VIGIL_CAMERA_DEVICE", Message: "must be an integer"}
		}
		c.Camera.Device = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &ConfigError{Field: key, Message: "must be true or false"}
	}
	*dst = b
	return nil
}

// Validate checks the whole configuration and returns the first failing
// section as a *ConfigError.
func (c *Config) Validate() error {
	if problems := c.Engine.Validate(); len(problems) > 0 {
		return &ConfigError{Field: "engine", Message: strings.Join(problems, "; ")}
	}

	switch c.Landmarks.Mode {
	case ModeLocal:
		if problems := c.Camera.Validate(); len(problems) > 0 {
			return &ConfigError{Field: "camera", Message: strings.Join(problems, "; ")}
		}
	case ModeRemote:
		u := c.Landmarks.Remote.URL
		if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
			return &ConfigError{Field: "landmarks.remote.url", Message: "must be a ws:// or wss:// URL"}
		}
	case ModeReplay:
		if c.Landmarks.ReplayPath == "" {
			return &ConfigError{Field: "landmarks.replay_path", Message: "required in replay mode"}
		}
	default:
		return &ConfigError{Field: "landmarks.mode", Message: fmt.Sprintf("unknown mode %q (want local, remote or replay)", c.Landmarks.Mode)}
	}

	if c.Sound.Volume < 0 || c.Sound.Volume > 100 {
		return &ConfigError{Field: "sound.volume", Message: "must be 0-100"}
	}

	if c.Web.Enabled {
		if port, err := strconv.Atoi(c.Web.Port); err != nil || port < 1 || port > 65535 {
			return &ConfigError{Field: "web.port", Message: "must be a port number"}
		}
	}
	return nil
}
