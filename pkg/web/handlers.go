package web

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/hub"
	"github.com/roadsight/helmetwatch/pkg/pipeline"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// collectTimeout bounds one training-sample upload.
const collectTimeout = 30 * time.Second

// handleStatus returns the pipeline state and derived statistics.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	state, stats := s.pipe.Snapshot()
	return c.JSON(StatusMessage{
		State:    state,
		Stats:    stats,
		PeriodMs: s.pipe.Period().Milliseconds(),
		Dropped:  s.pipe.Dropped(),
	})
}

// handleActivateCamera makes the camera the active source.
func (s *Server) handleActivateCamera(c *fiber.Ctx) error {
	if err := s.pipe.ActivateCamera(); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// handleUpload activates an uploaded still image as the source.
// Expects a multipart body with one "image" field.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no image provided",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unreadable upload",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unreadable upload",
		})
	}

	if err := s.pipe.ActivateImage(data); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// ActivateStreamRequest is the body for POST /api/source/stream.
type ActivateStreamRequest struct {
	URL string `json:"url"`
}

// handleActivateStream activates a remote frame stream as the source.
func (s *Server) handleActivateStream(c *fiber.Ctx) error {
	var req ActivateStreamRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "stream url required",
		})
	}
	if err := s.pipe.ActivateStream(req.URL); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// DetectionRequest is the body for POST /api/detection/start.
type DetectionRequest struct {
	PeriodMs int64 `json:"period_ms"`
}

// handleStartDetection begins periodic sampling.
func (s *Server) handleStartDetection(c *fiber.Ctx) error {
	var req DetectionRequest
	c.BodyParser(&req) // empty body keeps the current period

	period := time.Duration(req.PeriodMs) * time.Millisecond
	if err := s.pipe.StartDetection(period); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// handleStopDetection stops sampling but keeps the source.
func (s *Server) handleStopDetection(c *fiber.Ctx) error {
	if err := s.pipe.StopDetection(); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// handleDetectOnce dispatches one frame from the active source.
func (s *Server) handleDetectOnce(c *fiber.Ctx) error {
	if err := s.pipe.DetectOnce(); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// handleDeactivate releases the source and returns to idle.
func (s *Server) handleDeactivate(c *fiber.Ctx) error {
	if err := s.pipe.Deactivate(); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleStatus(c)
}

// ConfigResponse describes the tunable configuration.
type ConfigResponse struct {
	PeriodMs    int64 `json:"period_ms"`
	MinPeriodMs int64 `json:"min_period_ms"`
	MaxPeriodMs int64 `json:"max_period_ms"`
}

// handleGetConfig returns the current sampling configuration.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(ConfigResponse{
		PeriodMs:    s.pipe.Period().Milliseconds(),
		MinPeriodMs: pipeline.MinSamplePeriod.Milliseconds(),
		MaxPeriodMs: pipeline.MaxSamplePeriod.Milliseconds(),
	})
}

// handlePatchConfig updates the sampling period. Out-of-range values
// are rejected and the previous period stays in effect.
func (s *Server) handlePatchConfig(c *fiber.Ctx) error {
	var req DetectionRequest
	if err := c.BodyParser(&req); err != nil || req.PeriodMs == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "period_ms required",
		})
	}
	if err := s.pipe.SetPeriod(time.Duration(req.PeriodMs) * time.Millisecond); err != nil {
		return s.pipelineError(c, err)
	}
	return s.handleGetConfig(c)
}

// CollectRequest is the body for POST /api/collect.
type CollectRequest struct {
	Label string `json:"label"`
}

// handleCollect submits the current frame as a labeled training
// sample.
func (s *Server) handleCollect(c *fiber.Ctx) error {
	if s.collector == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "sample collection disabled",
		})
	}

	var req CollectRequest
	if err := c.BodyParser(&req); err != nil || req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label required",
		})
	}

	frame, err := s.pipe.CurrentFrame()
	if err != nil {
		return s.pipelineError(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	if err := s.collector.Submit(ctx, frame, req.Label); err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(fiber.Map{"status": "collected", "label": req.Label})
}

// pipelineError maps pipeline and backend errors to HTTP statuses.
func (s *Server) pipelineError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrInvalidPeriod):
		status = fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoSource):
		status = fiber.StatusConflict
	case errors.Is(err, detect.ErrBackendUnavailable), errors.Is(err, detect.ErrBadResponse):
		status = fiber.StatusBadGateway
	case errors.Is(err, source.ErrDeviceUnavailable), errors.Is(err, source.ErrReleased):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// --- WebSocket handlers ---

// handleStreamWS serves the live annotated frame feed.
func (s *Server) handleStreamWS(c *websocket.Conn) {
	client := hub.NewClient(s.streamHub, c)
	client.Run()
}

// handleStatusWS serves live state and statistics updates. The
// current snapshot is sent on connect so late joiners render
// immediately.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	state, stats := s.pipe.Snapshot()
	c.WriteJSON(StatusMessage{
		State:    state,
		Stats:    stats,
		PeriodMs: s.pipe.Period().Milliseconds(),
		Dropped:  s.pipe.Dropped(),
	})

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleEventsWS serves transient error and info notices.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventHub, c)
	client.Run()
}
