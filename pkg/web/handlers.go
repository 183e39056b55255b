package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/hub"
	"github.com/teslashibe/go-posecam/pkg/session"
)

// recentSessions caps the list returned by /api/sessions.
const recentSessions = 20

// handleStatus returns the current stream status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	st.StopIssued = s.stopRequested.Load()
	return c.JSON(st)
}

// handleCamera returns the requested capture configuration
func (s *Server) handleCamera(c *fiber.Ctx) error {
	return c.JSON(s.camera)
}

// handleFrame returns the latest annotated frame as a JPEG snapshot
func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.frameMu.RLock()
	frame := s.lastFrame
	s.frameMu.RUnlock()

	if len(frame) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}

// handleSessions returns the session summary and the most recent sessions
func (s *Server) handleSessions(c *fiber.Ctx) error {
	if s.sessions == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session recording is disabled",
		})
	}

	summary, err := session.Summarize(s.sessions)
	if err != nil {
		log.Warn("session summary failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	recent, err := s.sessions.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(recent) > recentSessions {
		recent = recent[:recentSessions]
	}

	return c.JSON(fiber.Map{
		"summary":  summary,
		"sessions": recent,
	})
}

// handleStop asks the capture loop to finish after the current frame
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.stopRequested.CompareAndSwap(false, true) {
		log.Info("stop requested from viewer", "ip", c.IP())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id":         s.runID,
		"stop_requested": true,
	})
}

// handleFramesWS streams binary JPEG frames
func (s *Server) handleFramesWS(c *websocket.Conn) {
	if client := hub.NewClient(s.frameHub, c); client != nil {
		client.Run()
	}
}

// handleStatusWS streams JSON status updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if client := hub.NewClient(s.statusHub, c); client != nil {
		client.Run()
	}
}
