package domain

// Canvas is a point-in-time copy of everything on the canvas
type Canvas struct {
	SessionID    string           `json:"session_id"`
	Architecture *Architecture    `json:"architecture,omitempty"`
	Nodes        []*ComponentNode `json:"nodes"`
	Edges        []*LinkEdge      `json:"edges"`
}

// NewCanvas creates an empty canvas snapshot
func NewCanvas(sessionID string) *Canvas {
	return &Canvas{
		SessionID: sessionID,
		Nodes:     make([]*ComponentNode, 0),
		Edges:     make([]*LinkEdge, 0),
	}
}

// AddNode adds a node to the canvas
func (c *Canvas) AddNode(node *ComponentNode) {
	c.Nodes = append(c.Nodes, node)
}

// AddEdge adds an edge to the canvas
func (c *Canvas) AddEdge(edge *LinkEdge) {
	c.Edges = append(c.Edges, edge)
}

// Confirmed returns a copy of the canvas without optimistic edges. Optimistic
// edges are placeholders and must never be persisted or exported.
func (c *Canvas) Confirmed() *Canvas {
	out := &Canvas{
		SessionID:    c.SessionID,
		Architecture: c.Architecture,
		Nodes:        c.Nodes,
		Edges:        make([]*LinkEdge, 0, len(c.Edges)),
	}
	for _, e := range c.Edges {
		if !e.Optimistic {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// Node finds a node by local id
func (c *Canvas) Node(localID string) *ComponentNode {
	for _, n := range c.Nodes {
		if n.LocalID == localID {
			return n
		}
	}
	return nil
}
