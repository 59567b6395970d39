package notify

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventNodeAdded      EventType = "node_added"
	EventNodeUpdated    EventType = "node_updated"
	EventNodeRemoved    EventType = "node_removed"
	EventEdgeAdded      EventType = "edge_added"
	EventEdgeReplaced   EventType = "edge_replaced"
	EventEdgeRemoved    EventType = "edge_removed"
	EventCanvasCleared  EventType = "canvas_cleared"
	EventCanvasRestored EventType = "canvas_restored"
	EventSelection      EventType = "selection_changed"
	EventPrompt         EventType = "prompt"
	EventPromptResolved EventType = "prompt_resolved"
	EventNotification   EventType = "notification"
)

// IsGraphChange reports whether the event reflects a graph store mutation
func (t EventType) IsGraphChange() bool {
	switch t {
	case EventNodeAdded, EventNodeUpdated, EventNodeRemoved,
		EventEdgeAdded, EventEdgeReplaced, EventEdgeRemoved,
		EventCanvasCleared, EventCanvasRestored:
		return true
	}
	return false
}

// Event represents something that happened in a session
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// Publisher accepts events
type Publisher interface {
	Publish(event Event)
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
