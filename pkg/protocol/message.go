// Package protocol defines the JSON wire messages exchanged between the
// bridge and the target server. Messages are single JSON objects, one per
// websocket text frame.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Commands understood by the bridge.
const (
	CommandReset = "reset"
	CommandClear = "clear"
)

// ErrUnknownShape indicates a syntactically valid JSON message that matches
// none of the recognized update shapes. The sender's connection stays up;
// the message is simply discarded.
var ErrUnknownShape = errors.New("protocol: unrecognized message shape")

// UpdateKind classifies an inbound update message.
type UpdateKind int

const (
	// KindSet sets a single target id: {"id": 3, "data": ...}
	KindSet UpdateKind = iota
	// KindSetMany sets several ids to the same payload: {"ids": [1,2], "data": ...}
	KindSetMany
	// KindReset drops every target: {"command": "reset"}
	KindReset
	// KindClear removes one target: {"command": "clear", "id": 3}
	KindClear
)

func (k UpdateKind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindSetMany:
		return "set-many"
	case KindReset:
		return "reset"
	case KindClear:
		return "clear"
	}
	return "unknown"
}

// Update is an inbound target update or command from the server.
// The payload is kept opaque: strings, numbers, lists and nested objects
// all pass through untouched.
type Update struct {
	ID      *int            `json:"id,omitempty"`
	IDs     []int           `json:"ids,omitempty"`
	Command string          `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	kind UpdateKind
}

// Kind returns the classified shape of the update.
func (u *Update) Kind() UpdateKind {
	return u.kind
}

// ParseUpdate parses an inbound message and classifies its shape.
// Malformed JSON or an unmatched shape returns an error; callers log and
// discard without touching the registry.
func ParseUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("protocol: invalid JSON: %w", err)
	}

	switch {
	case u.Command == CommandReset:
		u.kind = KindReset
	case u.Command == CommandClear && u.ID != nil:
		u.kind = KindClear
	case u.Command != "":
		return nil, fmt.Errorf("%w: command %q", ErrUnknownShape, u.Command)
	case u.ID != nil:
		u.kind = KindSet
	case len(u.IDs) > 0:
		u.kind = KindSetMany
	default:
		return nil, ErrUnknownShape
	}

	return &u, nil
}

// Hello is the identification message sent once per successful connection,
// before the receive loop starts.
type Hello struct {
	Type string `json:"type"`
}

// NewHello builds the bridge identification message.
func NewHello() Hello {
	return Hello{Type: "bridge"}
}

// ReadyStatus acknowledges a validated target update back to the server.
type ReadyStatus struct {
	ID   int             `json:"id"`
	Data ReadyStatusData `json:"data"`
}

// ReadyStatusData is the inner status object of a ReadyStatus.
type ReadyStatusData struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

// NewReadyStatus builds a ready acknowledgement for the given target id.
func NewReadyStatus(id int) ReadyStatus {
	return ReadyStatus{
		ID:   id,
		Data: ReadyStatusData{ID: id, Status: "ready"},
	}
}

// TriggerEvent describes a fired marker, for monitor clients.
type TriggerEvent struct {
	MarkerID    int             `json:"marker_id"`
	NormalizedX float64         `json:"normalized_x"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   int64           `json:"ts"` // Unix milliseconds
}
