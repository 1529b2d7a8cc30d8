// Package web provides a read-only monitor for the bridge: connection
// state, current targets, the latest annotated frame, and a live trigger
// event feed over websocket.
package web

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/wizzyworks/go-bridge/internal/log"
	"github.com/wizzyworks/go-bridge/pkg/hub"
	"github.com/wizzyworks/go-bridge/pkg/protocol"
)

// TargetView provides registry reads for the monitor.
type TargetView interface {
	Snapshot() map[int]json.RawMessage
	Len() int
}

// ScannerView provides scanner reads for the monitor.
type ScannerView interface {
	LatestFrame() ([]byte, bool)
	TriggerCount() uint64
}

// Server is the monitor web server.
type Server struct {
	app  *fiber.App
	port string

	targets   TargetView
	scanner   ScannerView
	syncState func() string

	eventHub *hub.Hub
}

// NewServer creates the monitor server. syncState reports the sync
// client's connection state for the status endpoint.
func NewServer(port string, targets TargetView, scanner ScannerView, syncState func() string) *Server {
	s := &Server{
		port:      port,
		targets:   targets,
		scanner:   scanner,
		syncState: syncState,
		eventHub:  hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Bridge Monitor",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/targets", s.handleTargets)
	api.Get("/frame", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the hub and listens. Blocks until the listener fails or
// Shutdown is called; the hub exits with ctx.
func (s *Server) Start(ctx context.Context) error {
	go s.eventHub.Run(ctx)
	log.Info("monitor listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Error("monitor server failed", "error", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishTrigger broadcasts a trigger event to monitor clients.
func (s *Server) PublishTrigger(ev protocol.TriggerEvent) {
	if err := s.eventHub.BroadcastJSON(ev); err != nil {
		log.Warn("event broadcast failed", "error", err)
	}
}
