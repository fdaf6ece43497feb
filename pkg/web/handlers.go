package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vigil/pkg/camera"
	"github.com/teslashibe/go-vigil/pkg/hub"
	"github.com/teslashibe/go-vigil/pkg/sound"
	"github.com/teslashibe/go-vigil/pkg/store"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// errorHandler renders every error as {"error": "..."}. Validation failures
// from the store, sound player and camera are client errors; camera commands
// without a local camera conflict with the landmark mode.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, store.ErrInvalidSettings),
		errors.Is(err, sound.ErrUnknownKind),
		errors.Is(err, sound.ErrUnknownSound),
		errors.Is(err, camera.ErrInvalidConfig):
		code = fiber.StatusBadRequest
	case errors.Is(err, camera.ErrNotOpened):
		code = fiber.StatusConflict
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleStatus returns the latest processed frame
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctl.Status())
}

// handleConfig returns the engine configuration
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.ctl.Config())
}

func (s *Server) handleStartMonitoring(c *fiber.Ctx) error {
	changed := s.ctl.StartMonitoring()
	return c.JSON(fiber.Map{"changed": changed, "mode": s.ctl.Status().Mode})
}

func (s *Server) handleStopMonitoring(c *fiber.Ctx) error {
	changed := s.ctl.StopMonitoring()
	return c.JSON(fiber.Map{"changed": changed, "mode": s.ctl.Status().Mode})
}

func (s *Server) handleStartCalibration(c *fiber.Ctx) error {
	id, err := s.ctl.StartCalibration()
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"session_id": id})
}

func (s *Server) handleAbortCalibration(c *fiber.Ctx) error {
	if !s.ctl.AbortCalibration() {
		return fiber.NewError(fiber.StatusNotFound, "no calibration in progress")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(s.ctl.Settings())
}

// handlePutSettings applies a partial update
func (s *Server) handlePutSettings(c *fiber.Ctx) error {
	var patch store.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings body: "+err.Error())
	}
	if patch.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "no settings to change")
	}

	saved, err := s.ctl.UpdateSettings(patch)
	if err != nil {
		return err
	}
	s.PublishSettings(saved)
	return c.JSON(saved)
}

// handleListSounds returns the selectable sound files
func (s *Server) handleListSounds(c *fiber.Ctx) error {
	files, err := s.ctl.Sounds()
	if err != nil {
		return err
	}
	if files == nil {
		files = []string{}
	}
	return c.JSON(files)
}

// handleListAlerts returns recent alert episodes, newest first
func (s *Server) handleListAlerts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultAlertLimit)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}
	limit = min(limit, maxAlertLimit)

	episodes, err := s.ctl.Alerts(limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"alerts": episodes, "count": len(episodes)})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	st, err := s.ctl.Camera()
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// handlePutCamera applies capture fields and/or a "preset" name
func (s *Server) handlePutCamera(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid camera body: "+err.Error())
	}
	if len(params) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no camera fields to change")
	}

	st, err := s.ctl.UpdateCamera(params)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// handleStatusWS streams status events until the client disconnects
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	client.Run()
}
