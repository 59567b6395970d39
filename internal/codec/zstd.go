package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"archcanvas/internal/domain"
)

// ZstdCodec compresses the output of another codec
type ZstdCodec struct {
	inner Codec
}

// NewZstdCodec wraps inner with zstd compression
func NewZstdCodec(inner Codec) *ZstdCodec {
	return &ZstdCodec{inner: inner}
}

// Format returns the codec format identifier
func (c *ZstdCodec) Format() string {
	return c.inner.Format() + ".zst"
}

// Parse decompresses r and parses it with the inner codec
func (c *ZstdCodec) Parse(r io.Reader) (*domain.Canvas, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	return c.inner.Parse(decoder)
}

// Export writes the inner codec's output compressed
func (c *ZstdCodec) Export(canvas *domain.Canvas, w io.Writer) error {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := c.inner.Export(canvas, encoder); err != nil {
		encoder.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}
