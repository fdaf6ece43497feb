// Package web serves the monitoring dashboard: a REST API for control and
// settings plus a websocket stream of per-frame status.
package web

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/debug"
	"github.com/teslashibe/go-vigil/pkg/engine"
	"github.com/teslashibe/go-vigil/pkg/hub"
	"github.com/teslashibe/go-vigil/pkg/journal"
	"github.com/teslashibe/go-vigil/pkg/store"
)

// Controller is what the dashboard drives. Implementations serialize these
// calls with the tick loop.
type Controller interface {
	Status() engine.FrameResult
	Config() engine.Config
	StartMonitoring() bool
	StopMonitoring() bool
	StartCalibration() (sessionID string, err error)
	AbortCalibration() bool
	Settings() store.Settings
	UpdateSettings(p store.Patch) (store.Settings, error)
	Sounds() ([]string, error)
	Alerts(limit int) ([]journal.Episode, error)
	Camera() (CameraStatus, error)
	UpdateCamera(params map[string]any) (CameraStatus, error)
}

// CameraStatus is the live capture configuration and the presets it can
// switch to.
type CameraStatus struct {
	Config  camera.Config `json:"config"`
	Presets []string      `json:"presets"`
}

// Config holds dashboard configuration
type Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Port      string `yaml:"port" json:"port"`
	StaticDir string `yaml:"static_dir" json:"static_dir"` // Served at / when set
}

// DefaultConfig returns the default dashboard settings
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Port:      "8080",
		StaticDir: "./web",
	}
}

// Server is the web dashboard server
type Server struct {
	app  *fiber.App
	port string
	ctl  Controller

	statusHub *hub.Hub

	cancel context.CancelFunc
	once   sync.Once
}

// NewServer creates the dashboard for ctl.
func NewServer(cfg Config, ctl Controller) *Server {
	s := &Server{
		port:      cfg.Port,
		ctl:       ctl,
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Vigil Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Post("/monitoring/start", s.handleStartMonitoring)
	api.Post("/monitoring/stop", s.handleStopMonitoring)
	api.Post("/calibration", s.handleStartCalibration)
	api.Delete("/calibration", s.handleAbortCalibration)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handlePutSettings)
	api.Get("/sounds", s.handleListSounds)
	api.Get("/alerts", s.handleListAlerts)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handlePutCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the status hub and serves until Shutdown.
func (s *Server) Start() error {
	fmt.Printf("🌐 Web dashboard: http://localhost:%s\n", s.port)
	s.startHub()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			fmt.Printf("⚠️  Web server error: %v\n", err)
		}
	}()
}

func (s *Server) startHub() {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.statusHub.Run(ctx)
	})
}

// Publish broadcasts one processed frame. Alert changes and finished
// calibrations are also sent as their own events.
func (s *Server) Publish(fr engine.FrameResult) {
	if err := s.statusHub.Publish(hub.TypeStatus, fr); err != nil {
		debug.Log("⚠️  Status encode failed: %v\n", err)
		return
	}
	if fr.Alert.Changed {
		s.statusHub.Publish(hub.TypeAlert, fr.Alert)
	}
	if fr.Calibrated != nil {
		s.statusHub.Publish(hub.TypeCalibration, fr.Calibrated)
	}
}

// PublishSettings broadcasts saved settings.
func (s *Server) PublishSettings(st store.Settings) {
	s.statusHub.Publish(hub.TypeSettings, st)
}

// Clients returns the number of connected status clients.
func (s *Server) Clients() int {
	return s.statusHub.ClientCount()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.app.Shutdown()
}
