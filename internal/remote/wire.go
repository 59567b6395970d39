package remote

import "encoding/json"

// --- Wire types (matching the graph service's REST API) ---

// ComponentRequest creates or updates a component
type ComponentRequest struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// Component is a component as the service returns it
type Component struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type,omitempty"`
	Heuristics json.RawMessage `json:"heuristics,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

// LinkRequest identifies a proposed or new link
type LinkRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	LinkType string `json:"linkType,omitempty"`
}

// SuggestionResponse lists the link types valid between two components
type SuggestionResponse struct {
	ValidLinkTypes *[]string `json:"validLinkTypes"`
}

// ValidationResponse is the verdict on a proposed link
type ValidationResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Link is a link as the service returns it
type Link struct {
	ID         string          `json:"id"`
	Heuristics json.RawMessage `json:"heuristics,omitempty"`
}

// ArchitectureRequest creates an architecture
type ArchitectureRequest struct {
	Name string `json:"name"`
}

// AttachComponentRequest adds a component to an architecture
type AttachComponentRequest struct {
	ComponentID string `json:"componentId"`
}

// AttachLinkRequest adds a link to an architecture
type AttachLinkRequest struct {
	LinkID string `json:"linkId"`
}

// EvaluationRequest asks for a scored report
type EvaluationRequest struct {
	ArchitectureID string `json:"architectureId"`
}

// ErrorResponse is returned for API errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
