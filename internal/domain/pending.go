package domain

// PendingKind groups pending operations; at most one per kind advances at a time
type PendingKind string

const (
	PendingKindComponent  PendingKind = "component"
	PendingKindConnection PendingKind = "connection"
)

// PendingOperation is an in-progress, not yet committed user workflow
type PendingOperation interface {
	Kind() PendingKind
}

// PendingComponentCreation records a drop waiting for its subtype or name
type PendingComponentCreation struct {
	Type     ComponentType `json:"type"`
	Position Position      `json:"position"`
	Subtype  string        `json:"subtype,omitempty"`
}

// Kind implements PendingOperation
func (PendingComponentCreation) Kind() PendingKind { return PendingKindComponent }

// PendingComponentWithSubtype records a drop whose subtype is settled
type PendingComponentWithSubtype struct {
	Type     ComponentType `json:"type"`
	Position Position      `json:"position"`
	Subtype  string        `json:"subtype"`
}

// Kind implements PendingOperation
func (PendingComponentWithSubtype) Kind() PendingKind { return PendingKindComponent }

// ConnectionParams describes the handles a connect gesture joined
type ConnectionParams struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// PendingConnection records a connect gesture and its optimistic edge
type PendingConnection struct {
	SourceNode       *ComponentNode   `json:"source_node"`
	TargetNode       *ComponentNode   `json:"target_node"`
	Params           ConnectionParams `json:"params"`
	OptimisticEdgeID string           `json:"optimistic_edge_id"`
}

// Kind implements PendingOperation
func (PendingConnection) Kind() PendingKind { return PendingKindConnection }
