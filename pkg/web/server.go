// Package web provides the control API and real-time dashboard
// transport for the helmet detection pipeline.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/roadsight/helmetwatch/internal/log"
	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/hub"
	"github.com/roadsight/helmetwatch/pkg/pipeline"
)

// StatusMessage is the payload pushed on /ws/status and returned by
// GET /api/status.
type StatusMessage struct {
	State    pipeline.State    `json:"state"`
	Stats    detect.Statistics `json:"stats"`
	PeriodMs int64             `json:"period_ms"`
	Dropped  uint64            `json:"dropped_frames"`
}

// Notice is a transient error or info message pushed on /ws/events.
type Notice struct {
	Time    string `json:"time"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Server exposes the pipeline over HTTP and websockets. It also
// implements pipeline.Sink: the websocket hubs are the pipeline's
// display surface.
type Server struct {
	app  *fiber.App
	port string

	pipe      *pipeline.Pipeline
	collector *detect.Collector

	// Hubs for websocket broadcast
	streamHub *hub.Hub
	statusHub *hub.Hub
	eventHub  *hub.Hub
}

// NewServer creates the API server around a pipeline. collector may
// be nil when sample collection is disabled.
func NewServer(port string, pipe *pipeline.Pipeline, collector *detect.Collector) *Server {
	s := &Server{
		port:      port,
		pipe:      pipe,
		collector: collector,
		streamHub: hub.New("stream"),
		statusHub: hub.New("status"),
		eventHub:  hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "helmetwatch",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024, // uploaded stills
	})

	// CORS for local development
	app.Use(cors.New())

	// Static dashboard assets
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/source/camera", s.handleActivateCamera)
	api.Post("/source/upload", s.handleUpload)
	api.Post("/source/stream", s.handleActivateStream)
	api.Post("/detection/start", s.handleStartDetection)
	api.Post("/detection/stop", s.handleStopDetection)
	api.Post("/detection/once", s.handleDetectOnce)
	api.Post("/deactivate", s.handleDeactivate)
	api.Get("/config", s.handleGetConfig)
	api.Patch("/config", s.handlePatchConfig)
	api.Post("/collect", s.handleCollect)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/stream", websocket.New(s.handleStreamWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start starts the web server and its broadcast hubs. Blocks.
func (s *Server) Start() error {
	log.Info("dashboard listening", "addr", "http://localhost:"+s.port)

	go s.streamHub.Run()
	go s.statusHub.Run()
	go s.eventHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "err", err)
		}
	}()
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// --- pipeline.Sink ---

// PublishFrame broadcasts a raw captured frame to stream clients.
func (s *Server) PublishFrame(jpeg []byte) {
	s.streamHub.BroadcastBinary(jpeg)
}

// PublishAnnotated broadcasts an annotated frame to stream clients.
func (s *Server) PublishAnnotated(jpeg []byte) {
	s.streamHub.BroadcastBinary(jpeg)
}

// PublishState broadcasts the pipeline state and statistics.
func (s *Server) PublishState(state pipeline.State, stats detect.Statistics) {
	s.statusHub.BroadcastJSON(StatusMessage{
		State:    state,
		Stats:    stats,
		PeriodMs: s.pipe.Period().Milliseconds(),
		Dropped:  s.pipe.Dropped(),
	})
}

// PublishNotice broadcasts a transient notice.
func (s *Server) PublishNotice(kind, message string) {
	s.eventHub.BroadcastJSON(Notice{
		Time:    time.Now().Format("15:04:05"),
		Kind:    kind,
		Message: message,
	})
}
