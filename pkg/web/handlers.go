package web

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/wizzyworks/go-bridge/pkg/hub"
)

// Status is the monitor's view of the bridge.
type Status struct {
	SyncState      string `json:"sync_state"`
	Targets        int    `json:"targets"`
	Triggers       uint64 `json:"triggers"`
	MonitorClients int    `json:"monitor_clients"`
}

// handleStatus returns the bridge's current state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(Status{
		SyncState:      s.syncState(),
		Targets:        s.targets.Len(),
		Triggers:       s.scanner.TriggerCount(),
		MonitorClients: s.eventHub.ClientCount(),
	})
}

// handleTargets returns a snapshot of the target registry.
func (s *Server) handleTargets(c *fiber.Ctx) error {
	snapshot := s.targets.Snapshot()

	// JSON object keys must be strings.
	out := make(map[string]json.RawMessage, len(snapshot))
	for id, payload := range snapshot {
		out[strconv.Itoa(id)] = payload
	}
	return c.JSON(out)
}

// handleFrame returns the latest annotated frame as JPEG.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	frame, ok := s.scanner.LatestFrame()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame available yet",
		})
	}
	c.Set("Content-Type", "image/jpeg")
	return c.Send(frame)
}

// handleEventsWS serves the live trigger event feed.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventHub, c)
	client.Run()
}
