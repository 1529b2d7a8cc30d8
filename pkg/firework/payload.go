// Package firework models the payload attached to a marker: a firework
// design with an embedded base64 PNG drawing. It validates inbound
// payloads and writes trigger artifacts for the renderer.
package firework

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Design is the validated firework payload carried by a target update.
type Design struct {
	OuterLayer            string    `json:"outer_layer"`
	OuterLayerColor       []float64 `json:"outer_layer_color"`
	OuterLayerSecondColor []float64 `json:"outer_layer_second_color"`

	// InnerLayer is a base64-encoded PNG, optionally wrapped in a
	// data URL ("data:image/png;base64,...").
	InnerLayer string `json:"inner_layer"`
}

// envelope is the wrapped form some senders use: {"id": N, "data": {...}}.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Parse decodes a raw payload into a Design. Payloads arrive either as
// the design object itself or wrapped one level in a "data" envelope.
func Parse(raw json.RawMessage) (*Design, error) {
	var d Design
	if err := json.Unmarshal(raw, &d); err == nil {
		if d.Validate() == nil {
			return &d, nil
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		return nil, fmt.Errorf("firework: payload is not a design or envelope")
	}

	d = Design{}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("firework: invalid design: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the design's structure: required layers present, colors
// are RGB triples with components in [0, 1].
func (d *Design) Validate() error {
	if d.OuterLayer == "" {
		return fmt.Errorf("firework: missing outer_layer")
	}
	if d.InnerLayer == "" {
		return fmt.Errorf("firework: missing inner_layer")
	}
	if err := validateColor("outer_layer_color", d.OuterLayerColor); err != nil {
		return err
	}
	return validateColor("outer_layer_second_color", d.OuterLayerSecondColor)
}

func validateColor(name string, c []float64) error {
	if len(c) != 3 {
		return fmt.Errorf("firework: %s must have 3 components, got %d", name, len(c))
	}
	for _, v := range c {
		if v < 0 || v > 1 {
			return fmt.Errorf("firework: %s component %v out of [0,1]", name, v)
		}
	}
	return nil
}

// DecodeInnerLayer returns the decoded PNG bytes of the inner layer,
// stripping a data-URL prefix if present.
func (d *Design) DecodeInnerLayer() ([]byte, error) {
	s := d.InnerLayer
	if strings.HasPrefix(s, "data:") {
		_, after, found := strings.Cut(s, ",")
		if !found {
			return nil, fmt.Errorf("firework: data URL without payload")
		}
		s = after
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("firework: decode inner_layer: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("firework: inner_layer decoded to zero bytes")
	}
	return data, nil
}
