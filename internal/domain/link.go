package domain

import "encoding/json"

// ConnectingLabel is shown on an optimistic edge while its link is resolved
const ConnectingLabel = "connecting"

// LinkEdge represents a directed link between two components on the canvas
type LinkEdge struct {
	LocalID       string          `json:"local_id"`
	RemoteID      string          `json:"remote_id,omitempty"`
	SourceLocalID string          `json:"source"`
	TargetLocalID string          `json:"target"`
	LinkType      LinkType        `json:"link_type,omitempty"`
	Label         string          `json:"label"`
	Heuristics    json.RawMessage `json:"heuristics,omitempty"`
	Optimistic    bool            `json:"optimistic"`
}

// NewOptimisticEdge creates the placeholder shown while a connection resolves.
// It never carries a remote id.
func NewOptimisticEdge(tempID, sourceLocalID, targetLocalID string) *LinkEdge {
	return &LinkEdge{
		LocalID:       tempID,
		SourceLocalID: sourceLocalID,
		TargetLocalID: targetLocalID,
		Label:         ConnectingLabel,
		Optimistic:    true,
	}
}

// NewConfirmedEdge creates an edge bound to a link the remote service created
func NewConfirmedEdge(localID, remoteID, sourceLocalID, targetLocalID string, linkType LinkType, heuristics json.RawMessage) *LinkEdge {
	return &LinkEdge{
		LocalID:       localID,
		RemoteID:      remoteID,
		SourceLocalID: sourceLocalID,
		TargetLocalID: targetLocalID,
		LinkType:      linkType,
		Label:         linkType.Words(),
		Heuristics:    heuristics,
	}
}

// Touches reports whether the edge has localID as either endpoint
func (e *LinkEdge) Touches(localID string) bool {
	return e.SourceLocalID == localID || e.TargetLocalID == localID
}

// Clone returns a copy that shares no mutable state with e
func (e *LinkEdge) Clone() *LinkEdge {
	c := *e
	if e.Heuristics != nil {
		c.Heuristics = append(json.RawMessage(nil), e.Heuristics...)
	}
	return &c
}
