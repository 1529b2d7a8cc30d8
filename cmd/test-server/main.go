// Test server for driving a bridge by hand: broadcasts target updates to
// every connected bridge and offers an interactive command prompt.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wizzyworks/go-bridge/internal/log"
)

// bridgeConn is one connected bridge.
type bridgeConn struct {
	id   string
	conn *websocket.Conn

	mu sync.Mutex
}

func (b *bridgeConn) send(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// server tracks connected bridges and fans updates out to them.
type server struct {
	mu      sync.RWMutex
	bridges map[string]*bridgeConn
}

func newServer() *server {
	return &server{bridges: make(map[string]*bridgeConn)}
}

// handleBridge runs one bridge connection: welcome, then log whatever the
// bridge sends back (hello, ready acks).
func (s *server) handleBridge(c *websocket.Conn) {
	bridge := &bridgeConn{
		id:   uuid.NewString()[:8],
		conn: c,
	}

	welcome, _ := json.Marshal(map[string]any{
		"message":   "Connected to WizzyWorks Bridge test server",
		"timestamp": time.Now().Unix(),
	})
	bridge.send(welcome)

	s.mu.Lock()
	s.bridges[bridge.id] = bridge
	count := len(s.bridges)
	s.mu.Unlock()
	fmt.Printf("✅ Bridge connected: %s (%d total)\n", bridge.id, count)

	defer func() {
		s.mu.Lock()
		delete(s.bridges, bridge.id)
		count := len(s.bridges)
		s.mu.Unlock()
		fmt.Printf("❌ Bridge disconnected: %s (%d remaining)\n", bridge.id, count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		fmt.Printf("📨 [%s] %s\n", bridge.id, data)
	}
}

// broadcast sends one message to every connected bridge.
func (s *server) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("broadcast marshal failed", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bridge := range s.bridges {
		if err := bridge.send(data); err != nil {
			log.Warn("broadcast to bridge failed", "bridge", bridge.id, "error", err)
		}
	}
	fmt.Printf("📤 Sent to %d bridge(s): %s\n", len(s.bridges), data)
}

// blackPixelPNG is a 1x1 black PNG for canned design payloads.
const blackPixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// testMessages are predefined payloads for the "test N" command.
var testMessages = []any{
	map[string]any{"id": 1, "data": "red_button"},
	map[string]any{
		"id": 2,
		"data": map[string]any{
			"outer_layer":              "circle_pulsate",
			"outer_layer_color":        []float64{1.0, 0.2, 0.2},
			"outer_layer_second_color": []float64{0.8, 0.0, 0.0},
			"inner_layer":              blackPixelPNG,
		},
	},
	map[string]any{"command": "reset"},
}

func main() {
	var (
		port        = flag.String("port", "8080", "listen port")
		interactive = flag.Bool("interactive", true, "read commands from stdin")
	)
	flag.Parse()
	log.Init("info")

	s := newServer()

	app := fiber.New(fiber.Config{
		AppName:               "Bridge Test Server",
		DisableStartupMessage: true,
	})
	app.Use("/", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/", websocket.New(s.handleBridge))

	go func() {
		fmt.Printf("🚀 Test server on ws://localhost:%s/\n", *port)
		if err := app.Listen(":" + *port); err != nil {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	if !*interactive {
		select {}
	}

	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if quit := s.runCommand(strings.TrimSpace(scanner.Text())); quit {
			break
		}
	}
	fmt.Println("👋 Goodbye!")
}

func printHelp() {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Commands:")
	fmt.Println("  send <id> <data>      - set one target (data may be JSON)")
	fmt.Println("  ids <id,id,..> <data> - set several targets, same payload")
	fmt.Println("  reset                 - clear all targets")
	fmt.Println("  clear <id>            - clear one target")
	fmt.Printf("  test <0..%d>           - send a predefined test message\n", len(testMessages)-1)
	fmt.Println("  quit                  - exit")
	fmt.Println(strings.Repeat("=", 50))
}

// runCommand parses one prompt line; true means quit.
func (s *server) runCommand(line string) bool {
	if line == "" {
		return false
	}
	fields := strings.SplitN(line, " ", 3)

	switch fields[0] {
	case "quit":
		return true

	case "reset":
		s.broadcast(map[string]any{"command": "reset"})

	case "clear":
		if len(fields) < 2 {
			fmt.Println("❌ usage: clear <id>")
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("❌ bad id:", fields[1])
			return false
		}
		s.broadcast(map[string]any{"command": "clear", "id": id})

	case "send":
		if len(fields) < 2 {
			fmt.Println("❌ usage: send <id> <data>")
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("❌ bad id:", fields[1])
			return false
		}
		s.broadcast(map[string]any{"id": id, "data": parseData(fields)})

	case "ids":
		if len(fields) < 2 {
			fmt.Println("❌ usage: ids <id,id,..> <data>")
			return false
		}
		var ids []int
		for _, part := range strings.Split(fields[1], ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				fmt.Println("❌ bad id:", part)
				return false
			}
			ids = append(ids, id)
		}
		s.broadcast(map[string]any{"ids": ids, "data": parseData(fields)})

	case "test":
		if len(fields) < 2 {
			fmt.Println("❌ usage: test <index>")
			return false
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil || idx < 0 || idx >= len(testMessages) {
			fmt.Printf("❌ index must be 0..%d\n", len(testMessages)-1)
			return false
		}
		s.broadcast(testMessages[idx])

	default:
		fmt.Println("❌ unknown command:", fields[0])
	}
	return false
}

// parseData interprets the trailing argument as JSON if it is valid JSON,
// otherwise as a plain string. Missing argument becomes an empty object.
func parseData(fields []string) any {
	if len(fields) < 3 {
		return map[string]any{}
	}
	raw := fields[2]
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}
