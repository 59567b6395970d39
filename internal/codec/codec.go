// Package codec reads and writes canvas snapshots.
//
// Every exporter writes confirmed entities only. Importers check that the
// result can be loaded into an empty graph store: known component and link
// types, unique ids and links whose endpoints exist.
package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"archcanvas/internal/domain"
)

// ErrUnknownFormat is returned for a format no codec handles
var ErrUnknownFormat = errors.New("codec: unknown format")

// Importer interface for importing a canvas from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Canvas, error)
	Format() string
}

// Exporter interface for exporting a canvas to various formats
type Exporter interface {
	Export(canvas *domain.Canvas, w io.Writer) error
	Format() string
}

// Codec both imports and exports
type Codec interface {
	Importer
	Exporter
}

// Formats lists the supported format identifiers
func Formats() []string {
	return []string{"json", "yaml", "json.zst", "yaml.zst"}
}

// ForFormat returns the codec for a format identifier
func ForFormat(format string) (Codec, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if inner, ok := strings.CutSuffix(format, ".zst"); ok {
		c, err := ForFormat(inner)
		if err != nil {
			return nil, err
		}
		return NewZstdCodec(c), nil
	}
	switch format {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ForPath picks a codec from a file name ("canvas.yaml.zst")
func ForPath(path string) (Codec, error) {
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	if ext == ".zst" {
		ext = filepath.Ext(strings.TrimSuffix(base, ext)) + ext
	}
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ForFormat(strings.TrimPrefix(ext, "."))
}

// validate checks that a parsed canvas can be restored
func validate(c *domain.Canvas) error {
	nodes := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.LocalID == "" || n.RemoteID == "" {
			return fmt.Errorf("component %q: missing id", n.DisplayName)
		}
		if nodes[n.LocalID] {
			return fmt.Errorf("component %s: duplicate id", n.LocalID)
		}
		if !n.Type.Valid() {
			return fmt.Errorf("component %s: unknown type %q", n.LocalID, n.Type)
		}
		nodes[n.LocalID] = true
	}

	edges := make(map[string]bool, len(c.Edges))
	for _, e := range c.Edges {
		if e.LocalID == "" || e.RemoteID == "" {
			return fmt.Errorf("link %q: missing id", e.LocalID)
		}
		if e.Optimistic {
			return fmt.Errorf("link %s: unconfirmed", e.LocalID)
		}
		if edges[e.LocalID] {
			return fmt.Errorf("link %s: duplicate id", e.LocalID)
		}
		if !e.LinkType.Valid() {
			return fmt.Errorf("link %s: unknown type %q", e.LocalID, e.LinkType)
		}
		if !nodes[e.SourceLocalID] || !nodes[e.TargetLocalID] {
			return fmt.Errorf("link %s: endpoint not found", e.LocalID)
		}
		edges[e.LocalID] = true
	}
	return nil
}
