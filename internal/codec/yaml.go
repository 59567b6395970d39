package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"archcanvas/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlCanvas represents the YAML structure for a canvas
type yamlCanvas struct {
	SessionID    string     `yaml:"session_id,omitempty"`
	Architecture *yamlArch  `yaml:"architecture,omitempty"`
	Components   []yamlNode `yaml:"components"`
	Links        []yamlLink `yaml:"links"`
}

type yamlArch struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type yamlNode struct {
	ID         string         `yaml:"id"`
	RemoteID   string         `yaml:"remote_id"`
	Type       string         `yaml:"type"`
	Subtype    string         `yaml:"subtype,omitempty"`
	Name       string         `yaml:"name"`
	CustomName string         `yaml:"custom_name,omitempty"`
	Position   [2]float64     `yaml:"position,flow"`
	Heuristics any            `yaml:"heuristics,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

type yamlLink struct {
	ID         string `yaml:"id"`
	RemoteID   string `yaml:"remote_id"`
	Source     string `yaml:"source"`
	Target     string `yaml:"target"`
	Type       string `yaml:"type"`
	Label      string `yaml:"label,omitempty"`
	Heuristics any    `yaml:"heuristics,omitempty"`
}

// Parse imports a canvas from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Canvas, error) {
	var yc yamlCanvas
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	canvas := domain.NewCanvas(yc.SessionID)
	if yc.Architecture != nil {
		canvas.Architecture = &domain.Architecture{ID: yc.Architecture.ID, Name: yc.Architecture.Name}
	}

	// Convert components
	for _, yn := range yc.Components {
		node := domain.NewComponentNode(yn.ID, yn.RemoteID, domain.ComponentType(yn.Type), yn.Name)
		node.Subtype = yn.Subtype
		node.CustomName = yn.CustomName
		node.Position = domain.Position{X: yn.Position[0], Y: yn.Position[1]}
		for k, v := range yn.Properties {
			node.SetProperty(k, v)
		}
		raw, err := toRaw(yn.Heuristics)
		if err != nil {
			return nil, fmt.Errorf("component %s heuristics: %w", yn.ID, err)
		}
		node.Heuristics = raw
		canvas.AddNode(node)
	}

	// Convert links
	for _, yl := range yc.Links {
		raw, err := toRaw(yl.Heuristics)
		if err != nil {
			return nil, fmt.Errorf("link %s heuristics: %w", yl.ID, err)
		}
		edge := domain.NewConfirmedEdge(yl.ID, yl.RemoteID, yl.Source, yl.Target, domain.LinkType(yl.Type), raw)
		if yl.Label != "" {
			edge.Label = yl.Label
		}
		canvas.AddEdge(edge)
	}

	if err := validate(canvas); err != nil {
		return nil, fmt.Errorf("invalid canvas: %w", err)
	}
	return canvas, nil
}

// Export exports the confirmed part of a canvas to YAML
func (c *YAMLCodec) Export(canvas *domain.Canvas, w io.Writer) error {
	canvas = canvas.Confirmed()
	yc := yamlCanvas{
		SessionID:  canvas.SessionID,
		Components: make([]yamlNode, 0, len(canvas.Nodes)),
		Links:      make([]yamlLink, 0, len(canvas.Edges)),
	}
	if canvas.Architecture != nil {
		yc.Architecture = &yamlArch{ID: canvas.Architecture.ID, Name: canvas.Architecture.Name}
	}

	// Convert components
	for _, node := range canvas.Nodes {
		heuristics, err := fromRaw(node.Heuristics)
		if err != nil {
			return fmt.Errorf("component %s heuristics: %w", node.LocalID, err)
		}
		yc.Components = append(yc.Components, yamlNode{
			ID:         node.LocalID,
			RemoteID:   node.RemoteID,
			Type:       string(node.Type),
			Subtype:    node.Subtype,
			Name:       node.DisplayName,
			CustomName: node.CustomName,
			Position:   [2]float64{node.Position.X, node.Position.Y},
			Heuristics: heuristics,
			Properties: node.Properties,
		})
	}

	// Convert links
	for _, edge := range canvas.Edges {
		heuristics, err := fromRaw(edge.Heuristics)
		if err != nil {
			return fmt.Errorf("link %s heuristics: %w", edge.LocalID, err)
		}
		yl := yamlLink{
			ID:         edge.LocalID,
			RemoteID:   edge.RemoteID,
			Source:     edge.SourceLocalID,
			Target:     edge.TargetLocalID,
			Type:       string(edge.LinkType),
			Heuristics: heuristics,
		}
		if edge.Label != edge.LinkType.Words() {
			yl.Label = edge.Label
		}
		yc.Links = append(yc.Links, yl)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// Heuristics are opaque JSON; YAML carries them as plain values

func fromRaw(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func toRaw(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
