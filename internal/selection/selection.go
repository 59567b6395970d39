// Package selection tracks what the inspection surface shows: nothing, a real
// node, a real edge, or an uncommitted palette preview. Exactly one holds at
// any time and a real selection always displaces a preview.
package selection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

// Kind discriminates a Selection
type Kind string

const (
	KindNone    Kind = "none"
	KindNode    Kind = "node"
	KindEdge    Kind = "edge"
	KindPreview Kind = "preview"
)

// Selection is one of None, Node, Edge or Preview
type Selection interface {
	Kind() Kind
}

// None is the empty selection
type None struct{}

// Node selects a component on the canvas
type Node struct {
	LocalID string `json:"local_id"`
}

// Edge selects a link on the canvas
type Edge struct {
	LocalID string `json:"local_id"`
}

// Preview shows a palette entry that does not exist in the graph
type Preview struct {
	Type       domain.ComponentType `json:"type"`
	Subtype    string               `json:"subtype,omitempty"`
	Heuristics json.RawMessage      `json:"heuristics,omitempty"`
	Pinned     bool                 `json:"pinned"`
}

func (None) Kind() Kind    { return KindNone }
func (Node) Kind() Kind    { return KindNode }
func (Edge) Kind() Kind    { return KindEdge }
func (Preview) Kind() Kind { return KindPreview }

// View is the JSON form of a Selection
type View struct {
	Kind    Kind     `json:"kind"`
	NodeID  string   `json:"node_id,omitempty"`
	EdgeID  string   `json:"edge_id,omitempty"`
	Preview *Preview `json:"preview,omitempty"`
}

// ViewOf renders sel for transport
func ViewOf(sel Selection) View {
	switch s := sel.(type) {
	case Node:
		return View{Kind: KindNode, NodeID: s.LocalID}
	case Edge:
		return View{Kind: KindEdge, EdgeID: s.LocalID}
	case Preview:
		return View{Kind: KindPreview, Preview: &s}
	default:
		return View{Kind: KindNone}
	}
}

// DragPayload travels from a palette drag to the drop gesture
type DragPayload struct {
	Type    domain.ComponentType `json:"type"`
	Subtype string               `json:"subtype,omitempty"`
}

// HeuristicsSource fetches preview heuristics
type HeuristicsSource interface {
	GetSubtypeHeuristics(ctx context.Context, componentType domain.ComponentType, subtype string) (json.RawMessage, error)
}

// SubtypeSource lists the subtypes of a type; nil for types without subtypes
type SubtypeSource interface {
	SubtypeOptions(ctx context.Context, componentType domain.ComponentType) ([]domain.SubtypeOption, error)
}

// State holds the current selection of one session
type State struct {
	mu         sync.Mutex
	current    Selection
	sessionID  string
	pub        notify.Publisher
	heuristics HeuristicsSource
	subtypes   SubtypeSource
	logger     *slog.Logger
}

// New creates an empty selection state. heuristics and subtypes may be nil.
func New(sessionID string, pub notify.Publisher, heuristics HeuristicsSource, subtypes SubtypeSource, logger *slog.Logger) *State {
	if pub == nil {
		pub = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		current:    None{},
		sessionID:  sessionID,
		pub:        pub,
		heuristics: heuristics,
		subtypes:   subtypes,
		logger:     logger,
	}
}

// Current returns the current selection
func (s *State) Current() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SelectNode selects a real node, clearing any preview
func (s *State) SelectNode(localID string) {
	s.set(Node{LocalID: localID})
}

// SelectEdge selects a real edge, clearing any preview
func (s *State) SelectEdge(localID string) {
	s.set(Edge{LocalID: localID})
}

// Clear drops any selection or preview
func (s *State) Clear() {
	s.set(None{})
}

// Forget clears the selection if it points at the given node or edge
func (s *State) Forget(localID string) {
	s.mu.Lock()
	switch c := s.current.(type) {
	case Node:
		if c.LocalID != localID {
			s.mu.Unlock()
			return
		}
	case Edge:
		if c.LocalID != localID {
			s.mu.Unlock()
			return
		}
	default:
		s.mu.Unlock()
		return
	}
	s.current = None{}
	s.mu.Unlock()
	s.publish(None{})
}

// Hover previews a palette entry. A real selection or a pinned preview keeps
// priority over a hover.
func (s *State) Hover(ctx context.Context, componentType domain.ComponentType, subtype string) Selection {
	s.mu.Lock()
	switch c := s.current.(type) {
	case Node, Edge:
		s.mu.Unlock()
		return c
	case Preview:
		if c.Pinned {
			s.mu.Unlock()
			return c
		}
	}
	p := Preview{Type: componentType, Subtype: subtype}
	s.current = p
	s.mu.Unlock()
	s.publish(p)

	return s.fillHeuristics(ctx, p)
}

// Unhover clears an unpinned preview
func (s *State) Unhover() {
	s.mu.Lock()
	p, ok := s.current.(Preview)
	if !ok || p.Pinned {
		s.mu.Unlock()
		return
	}
	s.current = None{}
	s.mu.Unlock()
	s.publish(None{})
}

// Pin previews a palette entry until another pin or a real selection
func (s *State) Pin(ctx context.Context, componentType domain.ComponentType, subtype string) Selection {
	p := Preview{Type: componentType, Subtype: subtype, Pinned: true}
	s.set(p)
	return s.fillHeuristics(ctx, p)
}

// DragStart captures the subtype a drop should use: the pinned subtype when the
// pinned preview is of the dragged type, else the first available subtype.
func (s *State) DragStart(ctx context.Context, componentType domain.ComponentType) DragPayload {
	payload := DragPayload{Type: componentType}

	s.mu.Lock()
	p, ok := s.current.(Preview)
	s.mu.Unlock()
	if ok && p.Pinned && p.Type == componentType && p.Subtype != "" {
		payload.Subtype = p.Subtype
		return payload
	}

	if s.subtypes == nil {
		return payload
	}
	opts, err := s.subtypes.SubtypeOptions(ctx, componentType)
	if err != nil {
		s.logger.Debug("no subtype for drag payload", "type", componentType, "error", err)
		return payload
	}
	if len(opts) > 0 {
		payload.Subtype = opts[0].ID
	}
	return payload
}

// fillHeuristics fetches heuristics for p and stores them if p is still the
// current preview. Failure leaves the preview without heuristics.
func (s *State) fillHeuristics(ctx context.Context, p Preview) Selection {
	if s.heuristics == nil || p.Subtype == "" {
		return p
	}
	h, err := s.heuristics.GetSubtypeHeuristics(ctx, p.Type, p.Subtype)
	if err != nil {
		s.logger.Debug("preview heuristics unavailable",
			"type", p.Type, "subtype", p.Subtype, "error", err)
		return s.Current()
	}

	s.mu.Lock()
	c, ok := s.current.(Preview)
	if !ok || c.Type != p.Type || c.Subtype != p.Subtype || c.Pinned != p.Pinned {
		cur := s.current
		s.mu.Unlock()
		return cur
	}
	c.Heuristics = h
	s.current = c
	s.mu.Unlock()
	s.publish(c)
	return c
}

func (s *State) set(sel Selection) {
	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()
	s.publish(sel)
}

func (s *State) publish(sel Selection) {
	s.pub.Publish(notify.Event{Type: notify.EventSelection, SessionID: s.sessionID, Payload: ViewOf(sel)})
}
