package camera

// Capture presets selectable from the dashboard.
const (
	PresetDefault = "default"
	PresetHD      = "hd"
	PresetLowCPU  = "low_cpu"
	PresetNight   = "night"
)

var presets = map[string]func() Config{
	PresetDefault: DefaultConfig,
	PresetHD:      HDConfig,
	PresetLowCPU:  LowCPUConfig,
	PresetNight:   NightConfig,
}

// PresetNames lists the presets in display order.
func PresetNames() []string {
	return []string{PresetDefault, PresetHD, PresetLowCPU, PresetNight}
}

// Preset returns the named capture configuration.
func Preset(name string) (Config, bool) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, false
	}
	return fn(), true
}

// HDConfig captures 1280x720 for a driver sitting far from the camera.
// Landmark regression costs roughly twice as much per frame.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 1280, 720
	return cfg
}

// LowCPUConfig is for embedded boards.
// Frame counts in the engine config assume 30 fps; scale them when using this.
func LowCPUConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 320, 240
	cfg.Framerate = 15
	return cfg
}

// NightConfig raises brightness and lowers the frame rate for dim cabins.
func NightConfig() Config {
	cfg := DefaultConfig()
	cfg.Brightness = 0.7
	cfg.Framerate = 20
	return cfg
}
