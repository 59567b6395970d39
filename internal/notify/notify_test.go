package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)

	bus.Publish(Event{Type: EventNodeAdded, SessionID: "s1"})

	select {
	case ev := <-ch:
		if ev.Type != EventNodeAdded {
			t.Errorf("expected %s, got %s", EventNodeAdded, ev.Type)
		}
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestEventBusSkipsSlowSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event) // unbuffered, nobody reading
	bus.Subscribe(ch)

	// Must not block
	bus.Publish(Event{Type: EventNodeAdded})
}

func TestIsGraphChange(t *testing.T) {
	if !EventEdgeReplaced.IsGraphChange() {
		t.Error("edge_replaced should be a graph change")
	}
	if EventNotification.IsGraphChange() {
		t.Error("notification should not be a graph change")
	}
}

func TestBusSink(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)

	NewBusSink(bus).Notify(Notification{Level: LevelError, Message: "boom", SessionID: "s1"})

	ev := <-ch
	if ev.Type != EventNotification {
		t.Fatalf("expected notification event, got %s", ev.Type)
	}
	n, ok := ev.Payload.(Notification)
	if !ok || n.Message != "boom" {
		t.Errorf("unexpected payload %#v", ev.Payload)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewLogSink(logger).Notify(Notification{Level: LevelWarning, Op: "connect", Message: "no link types"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected warn level in %q", out)
	}
	if !strings.Contains(out, "op=connect") {
		t.Errorf("expected op attribute in %q", out)
	}
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Multi(a, b)

	sink.Notify(Notification{Message: "one"})
	sink.Notify(Notification{Message: "two"})

	if len(a.All()) != 2 || len(b.All()) != 2 {
		t.Fatalf("expected both recorders to see 2 notifications")
	}
	last, ok := a.Last()
	if !ok || last.Message != "two" {
		t.Errorf("expected last 'two', got %v", last)
	}

	a.Reset()
	if _, ok := a.Last(); ok {
		t.Error("expected empty recorder after reset")
	}
}
