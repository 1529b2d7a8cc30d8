// Package remote keeps the target registry synchronized from a remote
// server over a reconnecting websocket. The network goroutine owns the
// connection; callers interact with it only through Start/Stop/Send and
// registered handlers.
package remote

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wizzyworks/go-bridge/internal/log"
	"github.com/wizzyworks/go-bridge/pkg/protocol"
)

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	}
	return "disconnected"
}

// TargetStore is the registry surface the client mutates. Implementations
// must be safe for concurrent use.
type TargetStore interface {
	Set(id int, payload json.RawMessage)
	SetAll(ids []int, payload json.RawMessage)
	Remove(id int)
	Clear()
}

// Config holds connection parameters.
type Config struct {
	URL               string
	ReconnectInterval time.Duration // flat delay between attempts
	HandshakeTimeout  time.Duration
	StopTimeout       time.Duration // bounded wait for the goroutine on Stop
}

// DefaultConfig returns the standard parameters for a server URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectInterval: 5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		StopTimeout:       5 * time.Second,
	}
}

// Client maintains the websocket connection to the target server.
// It reconnects forever with a flat delay until Stop is called.
type Client struct {
	cfg   Config
	store TargetStore
	log   *slog.Logger

	state atomic.Int32

	mu       sync.Mutex
	running  bool
	conn     *websocket.Conn // active connection, nil when disconnected
	stopCh   chan struct{}
	doneCh   chan struct{}
	outbound chan []byte

	onUpdate       func(*protocol.Update)
	onConnected    func()
	onDisconnected func()
}

// New creates a client that applies inbound updates to store.
func New(cfg Config, store TargetStore) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	return &Client{
		cfg:   cfg,
		store: store,
		log:   log.Component("sync"),
	}
}

// OnUpdate registers a handler invoked on the client goroutine after each
// applied update. Handlers must not block indefinitely.
func (c *Client) OnUpdate(h func(*protocol.Update)) { c.onUpdate = h }

// OnConnected registers a handler invoked after each successful connect.
func (c *Client) OnConnected(h func()) { c.onConnected = h }

// OnDisconnected registers a handler invoked after each connection loss.
func (c *Client) OnDisconnected(h func()) { c.onDisconnected = h }

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Start launches the network goroutine. Idempotent while running.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.outbound = make(chan []byte, 64)

	c.log.Info("starting", "url", c.cfg.URL)
	go c.run(c.stopCh, c.doneCh, c.outbound)
}

// Stop signals shutdown, closes any active connection, and waits (bounded)
// for the network goroutine to exit. Terminal until Start is called again.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.state.Store(int32(Closing))
	close(c.stopCh)
	if c.conn != nil {
		c.conn.Close()
	}
	done := c.doneCh
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(c.cfg.StopTimeout):
		c.log.Warn("did not exit cleanly", "timeout", c.cfg.StopTimeout)
	}

	c.state.Store(int32(Disconnected))
	c.log.Info("stopped")
}

// Send marshals v and enqueues it for delivery on the network goroutine.
// Safe from any goroutine. A no-op when not connected; callers must not
// assume delivery.
func (c *Client) Send(v any) {
	if c.State() != Connected {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal failed", "error", err)
		return
	}

	c.mu.Lock()
	out := c.outbound
	c.mu.Unlock()
	if out == nil {
		return
	}

	select {
	case out <- data:
	default:
		c.log.Warn("outbound queue full, dropping message")
	}
}

// run is the network goroutine: connect, pump, reconnect, forever.
func (c *Client) run(stop chan struct{}, done chan struct{}, outbound chan []byte) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		c.state.Store(int32(Connecting))
		conn, err := c.dial()
		if err != nil {
			c.state.Store(int32(Disconnected))
			c.log.Warn("connect failed",
				"url", c.cfg.URL,
				"error", err,
				"retry_in", c.cfg.ReconnectInterval,
			)
			if !c.waitRetry(stop) {
				return
			}
			continue
		}

		c.mu.Lock()
		select {
		case <-stop:
			// Stop landed while dialing; it saw a nil conn, so closing
			// this one is on us.
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.mu.Unlock()
		c.state.Store(int32(Connected))
		c.log.Info("connected", "url", c.cfg.URL)

		err = c.session(conn, stop, outbound)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		drain(outbound)

		select {
		case <-stop:
			return
		default:
		}

		c.state.Store(int32(Disconnected))
		c.log.Warn("disconnected",
			"error", err,
			"retry_in", c.cfg.ReconnectInterval,
		)
		if c.onDisconnected != nil {
			c.onDisconnected()
		}
		if !c.waitRetry(stop) {
			return
		}
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.Dial(c.cfg.URL, nil)
	return conn, err
}

// session runs one connection: identify, then pump messages both ways
// until the connection drops or stop is signalled.
func (c *Client) session(conn *websocket.Conn, stop chan struct{}, outbound chan []byte) error {
	// Identify once before entering the receive loop.
	if err := conn.WriteJSON(protocol.NewHello()); err != nil {
		return err
	}

	if c.onConnected != nil {
		c.onConnected()
	}

	// Writer: only this goroutine writes to the connection after the
	// hello. Stops when the session ends.
	sessionEnd := make(chan struct{})
	defer close(sessionEnd)
	go func() {
		for {
			select {
			case data := <-outbound:
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-sessionEnd:
				return
			case <-stop:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

// handleMessage applies one inbound message to the registry. Protocol
// faults are logged and discarded; the connection stays up.
func (c *Client) handleMessage(data []byte) {
	update, err := protocol.ParseUpdate(data)
	if err != nil {
		c.log.Warn("discarding message", "error", err, "raw", string(data))
		return
	}

	switch update.Kind() {
	case protocol.KindSet:
		c.store.Set(*update.ID, update.Data)
		c.log.Debug("target set", "id", *update.ID)
	case protocol.KindSetMany:
		c.store.SetAll(update.IDs, update.Data)
		c.log.Debug("targets set", "ids", update.IDs)
	case protocol.KindReset:
		c.store.Clear()
		c.log.Info("targets cleared")
	case protocol.KindClear:
		c.store.Remove(*update.ID)
		c.log.Debug("target removed", "id", *update.ID)
	}

	if c.onUpdate != nil {
		c.onUpdate(update)
	}
}

// waitRetry sleeps the reconnect interval; false means stop was signalled.
func (c *Client) waitRetry(stop chan struct{}) bool {
	select {
	case <-stop:
		return false
	case <-time.After(c.cfg.ReconnectInterval):
		return true
	}
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
