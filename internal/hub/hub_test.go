package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archcanvas/internal/notify"
)

func TestFrame(t *testing.T) {
	msg, err := frame(notify.Event{Type: notify.EventNodeAdded, SessionID: "s1", Payload: map[string]string{"id": "n1"}})
	if err != nil {
		t.Fatalf("frame() error: %v", err)
	}
	want := "event: node_added\ndata: {\"type\":\"node_added\",\"session_id\":\"s1\",\"payload\":{\"id\":\"n1\"}}\n\n"
	if string(msg) != want {
		t.Errorf("frame() = %q, want %q", msg, want)
	}
}

func TestServeHTTP(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %s, want text/event-stream", ct)
	}

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() string {
		t.Helper()
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed")
			}
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for SSE line")
		}
		return ""
	}

	if line := next(); line != ": connected" {
		t.Fatalf("first line = %q, want connected comment", line)
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	events := make(chan notify.Event, 1)
	go h.Consume(ctx, events)
	events <- notify.Event{Type: notify.EventNotification, SessionID: "s1", Payload: notify.Notification{
		Level: notify.LevelSuccess, Op: "drop", Message: "Component added successfully (CACHE)",
	}}

	next() // blank line after the connected comment
	if line := next(); line != "event: notification" {
		t.Fatalf("event line = %q", line)
	}
	data, ok := strings.CutPrefix(next(), "data: ")
	if !ok {
		t.Fatal("missing data line")
	}
	var got struct {
		Type    notify.EventType    `json:"type"`
		Payload notify.Notification `json:"payload"`
	}
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if got.Type != notify.EventNotification || got.Payload.Message != "Component added successfully (CACHE)" {
		t.Errorf("event = %+v", got)
	}

	// Stopping the hub disconnects the client
	cancel()
	for range lines {
	}
}
