package firework

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wizzyworks/go-bridge/internal/log"
)

// drawingsSubdir holds the decoded inner-layer PNGs under the output dir.
const drawingsSubdir = "firework_drawings"

// Writer saves trigger artifacts: the decoded drawing as PNG and the
// remaining design metadata as JSON, keyed by marker id.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Join(dir, drawingsSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("firework: create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write persists one triggered design. The metadata JSON is only written
// after the PNG has been saved successfully; it replaces the bulky
// inner_layer with the marker id and records the trigger location.
func (w *Writer) Write(markerID int, d *Design, normalizedX float64) error {
	png, err := d.DecodeInnerLayer()
	if err != nil {
		return err
	}

	pngPath := filepath.Join(w.dir, drawingsSubdir, strconv.Itoa(markerID)+".png")
	if err := os.WriteFile(pngPath, png, 0o644); err != nil {
		return fmt.Errorf("firework: write drawing: %w", err)
	}

	meta := map[string]any{
		"outer_layer":              d.OuterLayer,
		"outer_layer_color":        d.OuterLayerColor,
		"outer_layer_second_color": d.OuterLayerSecondColor,
		"inner_layer":              strconv.Itoa(markerID),
		"location":                 normalizedX,
	}
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("firework: marshal metadata: %w", err)
	}

	jsonPath := filepath.Join(w.dir, strconv.Itoa(markerID)+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("firework: write metadata: %w", err)
	}

	log.Info("saved trigger artifacts",
		"marker_id", markerID,
		"png", pngPath,
		"json", jsonPath,
	)
	return nil
}
