package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-vigil/pkg/engine"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Preset != "default" || cfg.Landmarks.Mode != ModeLocal {
		t.Errorf("Expected default preset and local mode, got %q %q", cfg.Preset, cfg.Landmarks.Mode)
	}
	if cfg.Engine.Detect.EARThreshold != 0.22 {
		t.Errorf("Expected EAR threshold 0.22, got %v", cfg.Engine.Detect.EARThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestParse_YAMLOverridesPreset(t *testing.T) {
	yml := []byte(`
preset: sensitive
engine:
  detect:
    ear_threshold: 0.25
  alert:
    cooldown: 5s
landmarks:
  mode: remote
  remote:
    url: ws://10.0.0.2:8765/landmarks
    frame_timeout: 500ms
sound:
  volume: 70
  files:
    drowsiness: siren.wav
`)
	cfg, err := Parse(yml)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	sensitive := engine.SensitiveConfig()
	if cfg.Preset != "sensitive" {
		t.Errorf("Expected sensitive preset, got %q", cfg.Preset)
	}
	if cfg.Engine.Detect.EARConsecFrames != sensitive.Detect.EARConsecFrames {
		t.Errorf("Expected preset EAR frames %d, got %d", sensitive.Detect.EARConsecFrames, cfg.Engine.Detect.EARConsecFrames)
	}
	if cfg.Engine.Detect.EARThreshold != 0.25 {
		t.Errorf("Expected YAML threshold 0.25, got %v", cfg.Engine.Detect.EARThreshold)
	}
	if cfg.Engine.Alert.Cooldown != 5*time.Second {
		t.Errorf("Expected cooldown 5s, got %v", cfg.Engine.Alert.Cooldown)
	}
	if cfg.Engine.Alert.StopDelay != sensitive.Alert.StopDelay {
		t.Errorf("Expected untouched stop delay, got %v", cfg.Engine.Alert.StopDelay)
	}
	if cfg.Landmarks.Remote.FrameTimeout != 500*time.Millisecond {
		t.Errorf("Expected 500ms frame timeout, got %v", cfg.Landmarks.Remote.FrameTimeout)
	}
	if cfg.Sound.Volume != 70 || cfg.Sound.Files["drowsiness"] != "siren.wav" {
		t.Errorf("Expected sound overrides, got %+v", cfg.Sound)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestParse_UnknownPreset(t *testing.T) {
	_, err := Parse([]byte("preset: sleepy\n"))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "preset" {
		t.Errorf("Expected preset ConfigError, got %v", err)
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("engine: [")); err == nil {
		t.Error("Expected YAML error")
	}
}

func TestParse_Env(t *testing.T) {
	t.Setenv("VIGIL_PRESET", "relaxed")
	t.Setenv("VIGIL_LANDMARKS_MODE", "replay")
	t.Setenv("VIGIL_REPLAY_PATH", "drive.jsonl")
	t.Setenv("VIGIL_CAMERA_DEVICE", "2")
	t.Setenv("VIGIL_DEBUG", "true")
	t.Setenv("VIGIL_WEB_PORT", "9090")

	cfg, err := Parse([]byte("preset: sensitive\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Preset != "relaxed" || cfg.Engine.Alert.StopDelay != engine.RelaxedConfig().Alert.StopDelay {
		t.Errorf("Expected env preset to win, got %q", cfg.Preset)
	}
	if cfg.Landmarks.Mode != ModeReplay || cfg.Landmarks.ReplayPath != "drive.jsonl" {
		t.Errorf("Expected replay of drive.jsonl, got %+v", cfg.Landmarks)
	}
	if cfg.Camera.Device != 2 || !cfg.Debug || cfg.Web.Port != "9090" {
		t.Errorf("Expected env overrides, got device=%d debug=%v port=%s", cfg.Camera.Device, cfg.Debug, cfg.Web.Port)
	}
}

func TestParse_EnvErrors(t *testing.T) {
	tests := []struct{ key, value string }{
		{"VIGIL_CAMERA_DEVICE", "front"},
		{"VIGIL_DEBUG", "sometimes"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Parse(nil)
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tc.key {
				t.Errorf("Expected ConfigError for %s, got %v", tc.key, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"engine", func(c *Config) { c.Engine.Alert.Cooldown = -time.Second }, "engine"},
		{"camera", func(c *Config) { c.Camera.Width = 0 }, "camera"},
		{"remote url", func(c *Config) {
			c.Landmarks.Mode = ModeRemote
			c.Landmarks.Remote.URL = "http://x"
		}, "landmarks.remote.url"},
		{"replay path", func(c *Config) { c.Landmarks.Mode = ModeReplay }, "landmarks.replay_path"},
		{"mode", func(c *Config) { c.Landmarks.Mode = "telepathy" }, "landmarks.mode"},
		{"volume", func(c *Config) { c.Sound.Volume = 101 }, "sound.volume"},
		{"port", func(c *Config) { c.Web.Port = "http" }, "web.port"},
	}

	for _, tc := range tests {
		cfg := Default()
		tc.edit(&cfg)
		err := cfg.Validate()
		var ce *ConfigError
		if !errors.As(err, &ce) || ce.Field != tc.field {
			t.Errorf("%s: expected ConfigError on %s, got %v", tc.name, tc.field, err)
		}
	}

	cfg := Default()
	cfg.Web.Enabled = false
	cfg.Web.Port = "http"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected port ignored with web disabled, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// Missing default file is fine
	if _, err := Load(""); err != nil {
		t.Errorf("Expected defaults without vigil.yaml, got %v", err)
	}

	// Missing named file is not
	if _, err := Load(filepath.Join(dir, "other.yaml")); err == nil {
		t.Error("Expected error for missing named file")
	}

	os.WriteFile(DefaultPath, []byte("log_level: debug\n"), 0644)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected debug level from file, got %q", cfg.LogLevel)
	}
}
