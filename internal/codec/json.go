package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"archcanvas/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads one canvas document. Unknown fields and trailing documents
// are rejected.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Canvas, error) {
	canvas := domain.NewCanvas("")
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(canvas); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after canvas")
	}
	if err := validate(canvas); err != nil {
		return nil, fmt.Errorf("invalid canvas: %w", err)
	}

	return canvas, nil
}

// Export writes the confirmed part of canvas as indented JSON
func (c *JSONCodec) Export(canvas *domain.Canvas, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(canvas.Confirmed()); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
