package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is user feedback for one terminal workflow outcome
type Notification struct {
	Level     Level     `json:"level"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
}

// Sink receives notifications
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(n Notification)

// Notify implements Sink
func (f SinkFunc) Notify(n Notification) { f(n) }

// Multi fans a notification out to several sinks
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notification) {
		for _, s := range sinks {
			s.Notify(n)
		}
	})
}

// LogSink writes notifications as structured log records
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs through logger
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify implements Sink
func (s *LogSink) Notify(n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, n.Message,
		"op", n.Op,
		"level", string(n.Level),
		"session", n.SessionID,
	)
}

// BusSink republishes notifications as events
type BusSink struct {
	pub Publisher
}

// NewBusSink creates a sink publishing to pub
func NewBusSink(pub Publisher) *BusSink {
	return &BusSink{pub: pub}
}

// Notify implements Sink
func (s *BusSink) Notify(n Notification) {
	s.pub.Publish(Event{
		Type:      EventNotification,
		SessionID: n.SessionID,
		Payload:   n,
	})
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements Sink
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Reset forgets every recorded notification
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
