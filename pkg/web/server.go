// Package web exposes the call agent's HTTP surface: the telephony
// webhook, the media stream WebSocket, and the summary API.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ashikalishaik/ai-call-agent/internal/log"
	"github.com/ashikalishaik/ai-call-agent/pkg/bridge"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

// Config carries the server's collaborators.
type Config struct {
	// PublicHost is the externally reachable host the telephony
	// provider dials back to, without scheme.
	PublicHost string

	// AgentName is spoken in the webhook greeting.
	AgentName string

	Registry *bridge.Registry
	Store    store.Store

	// StoreBackend names the configured persistence backend, reported
	// by the health endpoint.
	StoreBackend string

	// NewBridge builds the per-call bridge once the media stream
	// identifies its call. Each call gets its own transcriber
	// connection, so construction is deferred to here.
	NewBridge func(session *bridge.Session) (*bridge.Bridge, error)

	// PendingTTL is how long a webhook-created session may wait for its
	// media stream. A caller who hangs up during the greeting never
	// opens the stream, so sessions still pending after the deadline
	// are evicted from the registry. Zero selects the default.
	PendingTTL time.Duration

	Logger *slog.Logger
}

// DefaultPendingTTL covers the spoken greeting plus the provider's
// stream dial-back with generous margin.
const DefaultPendingTTL = 60 * time.Second

// Server is the HTTP and WebSocket front of the call agent.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger
}

// NewServer creates the server and mounts its routes.
func NewServer(cfg Config) *Server {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	if s.logger == nil {
		s.logger = log.L()
	}

	app := fiber.New(fiber.Config{
		AppName:               "Call Agent",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Post("/incoming-call", s.handleIncomingCall)
	app.Get("/summaries", s.handleListSummaries)
	app.Get("/summaries/:sid", s.handleGetSummary)
	app.Get("/health", s.handleHealth)

	app.Use("/media-stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/media-stream", websocket.New(s.handleMediaStream))

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the given address until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
