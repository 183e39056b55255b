// Package web serves the browser viewer used when no native window is available.
package web

import (
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-posecam/internal/log"
	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/ergonomics"
	"github.com/teslashibe/go-posecam/pkg/hub"
	"github.com/teslashibe/go-posecam/pkg/session"
)

//go:embed static
var static embed.FS

// ErrServerClosed is returned by Start and Serve after Shutdown.
var ErrServerClosed = errors.New("web: server closed")

// Config holds viewer server settings.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DefaultConfig listens on all interfaces, port 8080.
func DefaultConfig() Config {
	return Config{Host: "", Port: 8080}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Status is the live state pushed to viewers.
type Status struct {
	RunID      string           `json:"run_id"`
	Streaming  bool             `json:"streaming"`
	Frame      int              `json:"frame"`
	FPS        float64          `json:"fps"`
	Detected   bool             `json:"detected"`
	Landmarks  int              `json:"landmarks"`
	REBA       ergonomics.Score `json:"reba"`
	RULA       ergonomics.Score `json:"rula"`
	Viewers    int              `json:"viewers"`
	Uptime     string           `json:"uptime"`
	StopIssued bool             `json:"stop_requested"`
}

// Server is the viewer server
type Server struct {
	app    *fiber.App
	config Config
	runID  string
	start  time.Time

	camera   camera.Config
	sessions session.Store

	status   Status
	statusMu sync.RWMutex

	lastFrame []byte
	frameMu   sync.RWMutex

	frameHub  *hub.Hub
	statusHub *hub.Hub

	addr atomic.Value // string, set once serving

	stopRequested atomic.Bool
	started       atomic.Bool
	closed        atomic.Bool
	shutdownOnce  sync.Once
}

// NewServer creates a new viewer server. Nothing listens until Start.
func NewServer(cfg Config, cam camera.Config) *Server {
	s := &Server{
		config:    cfg,
		runID:     uuid.New().String(),
		start:     time.Now(),
		camera:    cam,
		frameHub:  hub.New("frames", true),
		statusHub: hub.New("status", true),
	}
	s.status.RunID = s.runID
	s.status.REBA.Risk = ergonomics.RiskNA
	s.status.RULA.Risk = ergonomics.RiskNA

	app := fiber.New(fiber.Config{
		AppName:               "posecam viewer",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/camera", s.handleCamera)
	api.Get("/frame.jpg", s.handleFrame)
	api.Get("/sessions", s.handleSessions)
	api.Post("/stop", s.handleStop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(static),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// SetSessions enables GET /api/sessions. Call before Start.
func (s *Server) SetSessions(store session.Store) {
	s.sessions = store
}

// App exposes the fiber app, mainly for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// RunID identifies this process run to viewers.
func (s *Server) RunID() string {
	return s.runID
}

// Start binds the configured address and serves in the background.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve starts the hubs and serves on ln in the background.
func (s *Server) Serve(ln net.Listener) error {
	if s.closed.Load() {
		ln.Close()
		return ErrServerClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	go s.frameHub.Run()
	go s.statusHub.Run()

	go func() {
		if err := s.app.Listener(ln); err != nil {
			log.Warn("viewer server stopped", "error", err)
		}
	}()

	s.addr.Store(ln.Addr().String())
	log.Info("viewer listening", "addr", ln.Addr().String(), "run_id", s.runID)
	return nil
}

// Addr returns the bound address once serving, otherwise the configured one.
func (s *Server) Addr() string {
	if a, ok := s.addr.Load().(string); ok {
		return a
	}
	return s.config.Addr()
}

// PublishFrame replaces the displayed frame with a JPEG image.
func (s *Server) PublishFrame(jpeg []byte) {
	s.frameMu.Lock()
	s.lastFrame = jpeg
	s.frameMu.Unlock()

	s.frameHub.BroadcastBinary(jpeg)
}

// PublishStatus updates the live status and pushes it to viewers.
func (s *Server) PublishStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	s.status.RunID = s.runID
	s.status.StopIssued = s.stopRequested.Load()
	s.status.Viewers = s.FrameViewers()
	s.status.Uptime = time.Since(s.start).Truncate(time.Second).String()
	st := s.status
	s.statusMu.Unlock()

	if err := s.statusHub.BroadcastJSON(st); err != nil {
		log.Warn("status encode failed", "error", err)
	}
}

// StopRequested reports whether a viewer asked the stream to end.
func (s *Server) StopRequested() bool {
	return s.stopRequested.Load()
}

// FrameViewers returns how many viewers are watching the stream.
func (s *Server) FrameViewers() int {
	return s.frameHub.ClientCount()
}

// Shutdown stops the hubs and the HTTP server. Safe to call more than once.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		s.frameHub.Stop()
		s.statusHub.Stop()
		if s.started.Load() {
			err = s.app.ShutdownWithTimeout(2 * time.Second)
		}
	})
	return err
}
