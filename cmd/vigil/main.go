// Vigil - real-time driver fatigue monitor
// Watches eye closure, yawns, blinks and head pose from a webcam (or a
// landmark service or recording) and sounds prioritized alerts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/teslashibe/go-vigil/internal/config"
	vlog "github.com/teslashibe/go-vigil/internal/log"
	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/vigil"
)

func main() {
	cfg, listCameras := parseFlags()

	if listCameras {
		devices := camera.Probe(camera.MaxDevice + 1)
		if len(devices) == 0 {
			fmt.Println("No cameras found")
			return
		}
		for _, d := range devices {
			fmt.Printf("📷 Camera %d\n", d)
		}
		return
	}

	vlog.InitFormat(cfg.LogLevel, cfg.LogFormat)

	app, err := vigil.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Printf("❌ Runtime error: %v", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies command line flags on top.
func parseFlags() (config.Config, bool) {
	configPath := flag.String("config", "", "Config file (default vigil.yaml if present)")
	preset := flag.String("preset", "", "Engine preset: default, sensitive, relaxed")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	frames := flag.Bool("frames", false, "Log every frame's measurements")
	mode := flag.String("mode", "", "Landmark source: local, remote, replay")
	replay := flag.String("replay", "", "Replay a recorded session (implies -mode replay)")
	record := flag.String("record", "", "Record landmark frames to this file")
	url := flag.String("url", "", "Landmark service URL for remote mode")
	device := flag.Int("camera", 0, "Camera device index")
	port := flag.String("port", "", "Dashboard port")
	noWeb := flag.Bool("no-web", false, "Disable the web dashboard")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	listCameras := flag.Bool("list-cameras", false, "List available cameras and exit")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// The preset goes through the environment so YAML engine overrides still apply on top
	if set["preset"] {
		os.Setenv("VIGIL_PRESET", *preset)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	cfg.Debug = cfg.Debug || *debug
	cfg.Frames = cfg.Frames || *frames
	if *mode != "" {
		cfg.Landmarks.Mode = *mode
	}
	if *replay != "" {
		cfg.Landmarks.Mode = config.ModeReplay
		cfg.Landmarks.ReplayPath = *replay
	}
	if *record != "" {
		cfg.Landmarks.RecordPath = *record
	}
	if *url != "" {
		cfg.Landmarks.Remote.URL = *url
	}
	if set["camera"] {
		cfg.Camera.Device = *device
	}
	if *port != "" {
		if _, err := strconv.Atoi(*port); err != nil {
			log.Fatalf("❌ Invalid port %q", *port)
		}
		cfg.Web.Port = *port
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, *listCameras
}
