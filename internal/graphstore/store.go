// Package graphstore holds the in-memory canvas: component nodes and link
// edges keyed by local id. It is the single source of truth for what the
// canvas shows. Only the workflow engine holds a *Store; everything else
// reads through Reader.
package graphstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

var (
	ErrNodeNotFound = errors.New("graphstore: node not found")
	ErrEdgeNotFound = errors.New("graphstore: edge not found")
	ErrDuplicateID  = errors.New("graphstore: duplicate id")
	ErrDangling     = errors.New("graphstore: edge endpoint does not exist")
	ErrNotEmpty     = errors.New("graphstore: store is not empty")
)

// Reader is the read-only view of the canvas
type Reader interface {
	Node(localID string) (*domain.ComponentNode, bool)
	Edge(localID string) (*domain.LinkEdge, bool)
	Nodes() []*domain.ComponentNode
	Edges() []*domain.LinkEdge
	OptimisticEdges() []*domain.LinkEdge
	Snapshot() *domain.Canvas
}

// Store is the mutable canvas. Read-modify-write operations are serialised;
// callers that suspend between a read and a write must re-read.
type Store struct {
	mu        sync.RWMutex
	// pubMu is taken before mu is released so events leave in commit order
	pubMu     sync.Mutex
	sessionID string
	nodes     map[string]*domain.ComponentNode
	edges     map[string]*domain.LinkEdge
	nodeOrder []string
	edgeOrder []string
	pub       notify.Publisher
}

// New creates an empty store publishing change events to pub
func New(sessionID string, pub notify.Publisher) *Store {
	if pub == nil {
		pub = notify.Discard
	}
	return &Store{
		sessionID: sessionID,
		nodes:     make(map[string]*domain.ComponentNode),
		edges:     make(map[string]*domain.LinkEdge),
		pub:       pub,
	}
}

// Node returns a copy of the node with the given local id
func (s *Store) Node(localID string) (*domain.ComponentNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[localID]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Edge returns a copy of the edge with the given local id
func (s *Store) Edge(localID string) (*domain.LinkEdge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[localID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Nodes returns copies of all nodes in insertion order
func (s *Store) Nodes() []*domain.ComponentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ComponentNode, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of all edges, optimistic ones included, in slot order
func (s *Store) Edges() []*domain.LinkEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.LinkEdge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id].Clone())
	}
	return out
}

// OptimisticEdges returns copies of the placeholder edges currently shown
func (s *Store) OptimisticEdges() []*domain.LinkEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.LinkEdge
	for _, id := range s.edgeOrder {
		if e := s.edges[id]; e.Optimistic {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Snapshot returns a deep copy of the whole canvas
func (s *Store) Snapshot() *domain.Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := domain.NewCanvas(s.sessionID)
	for _, id := range s.nodeOrder {
		c.AddNode(s.nodes[id].Clone())
	}
	for _, id := range s.edgeOrder {
		c.AddEdge(s.edges[id].Clone())
	}
	return c
}

// InsertNode adds a node
func (s *Store) InsertNode(node *domain.ComponentNode) error {
	s.mu.Lock()
	if _, exists := s.nodes[node.LocalID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: node %s", ErrDuplicateID, node.LocalID)
	}
	s.nodes[node.LocalID] = node.Clone()
	s.nodeOrder = append(s.nodeOrder, node.LocalID)
	s.unlockAndPublish(s.event(notify.EventNodeAdded, node.Clone()))
	return nil
}

// UpdateNode applies fn to the stored node. The local id cannot be changed.
func (s *Store) UpdateNode(localID string, fn func(n *domain.ComponentNode)) (*domain.ComponentNode, error) {
	s.mu.Lock()
	current, ok := s.nodes[localID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, localID)
	}
	updated := current.Clone()
	fn(updated)
	updated.LocalID = localID
	s.nodes[localID] = updated
	out := updated.Clone()
	s.unlockAndPublish(s.event(notify.EventNodeUpdated, out.Clone()))
	return out, nil
}

// RemoveNode deletes a node together with every edge touching it and returns
// the removed edges
func (s *Store) RemoveNode(localID string) ([]*domain.LinkEdge, error) {
	s.mu.Lock()
	if _, ok := s.nodes[localID]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, localID)
	}
	delete(s.nodes, localID)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(id string) bool { return id == localID })

	var removed []*domain.LinkEdge
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id string) bool {
		e := s.edges[id]
		if !e.Touches(localID) {
			return false
		}
		removed = append(removed, e)
		delete(s.edges, id)
		return true
	})

	events := []notify.Event{s.event(notify.EventNodeRemoved, map[string]string{"local_id": localID})}
	for _, e := range removed {
		events = append(events, s.event(notify.EventEdgeRemoved, map[string]string{"local_id": e.LocalID}))
	}
	s.unlockAndPublish(events...)
	return removed, nil
}

// InsertEdge adds an edge; both endpoints must already exist
func (s *Store) InsertEdge(edge *domain.LinkEdge) error {
	s.mu.Lock()
	if _, exists := s.edges[edge.LocalID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: edge %s", ErrDuplicateID, edge.LocalID)
	}
	if err := s.checkEndpoints(edge); err != nil {
		s.mu.Unlock()
		return err
	}
	s.edges[edge.LocalID] = edge.Clone()
	s.edgeOrder = append(s.edgeOrder, edge.LocalID)
	s.unlockAndPublish(s.event(notify.EventEdgeAdded, edge.Clone()))
	return nil
}

// ReplaceEdge swaps the edge oldID for replacement in a single step, keeping
// its slot. No reader ever observes both edges or neither.
func (s *Store) ReplaceEdge(oldID string, replacement *domain.LinkEdge) error {
	s.mu.Lock()
	if _, ok := s.edges[oldID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, oldID)
	}
	if replacement.LocalID != oldID {
		if _, exists := s.edges[replacement.LocalID]; exists {
			s.mu.Unlock()
			return fmt.Errorf("%w: edge %s", ErrDuplicateID, replacement.LocalID)
		}
	}
	if err := s.checkEndpoints(replacement); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.edges, oldID)
	s.edges[replacement.LocalID] = replacement.Clone()
	idx := slices.Index(s.edgeOrder, oldID)
	s.edgeOrder[idx] = replacement.LocalID
	s.unlockAndPublish(s.event(notify.EventEdgeReplaced, map[string]any{
		"replaced": oldID,
		"edge":     replacement.Clone(),
	}))
	return nil
}

// RemoveEdge deletes an edge
func (s *Store) RemoveEdge(localID string) error {
	s.mu.Lock()
	if _, ok := s.edges[localID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, localID)
	}
	delete(s.edges, localID)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id string) bool { return id == localID })
	s.unlockAndPublish(s.event(notify.EventEdgeRemoved, map[string]string{"local_id": localID}))
	return nil
}

// Clear removes everything
func (s *Store) Clear() {
	s.mu.Lock()
	s.nodes = make(map[string]*domain.ComponentNode)
	s.edges = make(map[string]*domain.LinkEdge)
	s.nodeOrder = nil
	s.edgeOrder = nil
	s.unlockAndPublish(s.event(notify.EventCanvasCleared, nil))
}

// Load fills an empty store from a saved canvas. Optimistic edges in the
// canvas are skipped.
func (s *Store) Load(canvas *domain.Canvas) error {
	s.mu.Lock()
	if len(s.nodes) > 0 || len(s.edges) > 0 {
		s.mu.Unlock()
		return ErrNotEmpty
	}

	nodes := make(map[string]*domain.ComponentNode, len(canvas.Nodes))
	var nodeOrder []string
	for _, n := range canvas.Nodes {
		if _, dup := nodes[n.LocalID]; dup {
			s.mu.Unlock()
			return fmt.Errorf("%w: node %s", ErrDuplicateID, n.LocalID)
		}
		nodes[n.LocalID] = n.Clone()
		nodeOrder = append(nodeOrder, n.LocalID)
	}

	edges := make(map[string]*domain.LinkEdge, len(canvas.Edges))
	var edgeOrder []string
	for _, e := range canvas.Edges {
		if e.Optimistic {
			continue
		}
		if _, dup := edges[e.LocalID]; dup {
			s.mu.Unlock()
			return fmt.Errorf("%w: edge %s", ErrDuplicateID, e.LocalID)
		}
		if nodes[e.SourceLocalID] == nil || nodes[e.TargetLocalID] == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: edge %s", ErrDangling, e.LocalID)
		}
		edges[e.LocalID] = e.Clone()
		edgeOrder = append(edgeOrder, e.LocalID)
	}

	s.nodes, s.edges = nodes, edges
	s.nodeOrder, s.edgeOrder = nodeOrder, edgeOrder
	s.unlockAndPublish(s.event(notify.EventCanvasRestored, map[string]int{
		"nodes": len(nodeOrder),
		"edges": len(edgeOrder),
	}))
	return nil
}

// checkEndpoints requires s.mu to be held
func (s *Store) checkEndpoints(edge *domain.LinkEdge) error {
	if _, ok := s.nodes[edge.SourceLocalID]; !ok {
		return fmt.Errorf("%w: source %s", ErrDangling, edge.SourceLocalID)
	}
	if _, ok := s.nodes[edge.TargetLocalID]; !ok {
		return fmt.Errorf("%w: target %s", ErrDangling, edge.TargetLocalID)
	}
	return nil
}

func (s *Store) event(t notify.EventType, payload any) notify.Event {
	return notify.Event{Type: t, SessionID: s.sessionID, Payload: payload}
}

// unlockAndPublish releases s.mu, which the caller holds for writing, and
// publishes events ahead of any later mutation's events
func (s *Store) unlockAndPublish(events ...notify.Event) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Unlock()
	for _, ev := range events {
		s.pub.Publish(ev)
	}
}
