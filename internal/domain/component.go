package domain

import (
	"encoding/json"
	"maps"
)

// PropertySubtype is the component property carrying the chosen subtype
const PropertySubtype = "subtype"

// ComponentNode represents a component placed on the canvas
type ComponentNode struct {
	LocalID     string          `json:"local_id"`
	RemoteID    string          `json:"remote_id"`
	Type        ComponentType   `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	DisplayName string          `json:"display_name"`
	CustomName  string          `json:"custom_name,omitempty"`
	Heuristics  json.RawMessage `json:"heuristics,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
	Position    Position        `json:"position"`
}

// NewComponentNode creates a node for a component the remote service already created
func NewComponentNode(localID, remoteID string, componentType ComponentType, name string) *ComponentNode {
	return &ComponentNode{
		LocalID:     localID,
		RemoteID:    remoteID,
		Type:        componentType,
		DisplayName: name,
		Properties:  make(map[string]any),
	}
}

// Label returns the name shown on the canvas
func (n *ComponentNode) Label() string {
	if n.CustomName != "" {
		return n.CustomName
	}
	return n.DisplayName
}

// SetProperty sets a property value
func (n *ComponentNode) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
}

// GetProperty gets a property value
func (n *ComponentNode) GetProperty(key string) (any, bool) {
	if n.Properties == nil {
		return nil, false
	}
	val, ok := n.Properties[key]
	return val, ok
}

// Clone returns a copy that shares no mutable state with n
func (n *ComponentNode) Clone() *ComponentNode {
	c := *n
	if n.Heuristics != nil {
		c.Heuristics = append(json.RawMessage(nil), n.Heuristics...)
	}
	if n.Properties != nil {
		c.Properties = maps.Clone(n.Properties)
	}
	return &c
}
