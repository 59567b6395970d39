package repository

import (
	"context"
	"errors"
	"time"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

// ErrNotFound is returned when a session has no saved canvas
var ErrNotFound = errors.New("repository: not found")

// SessionSummary describes a saved session
type SessionSummary struct {
	ID               string    `json:"id"`
	ArchitectureID   string    `json:"architecture_id,omitempty"`
	ArchitectureName string    `json:"architecture_name,omitempty"`
	Nodes            int       `json:"nodes"`
	Edges            int       `json:"edges"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Repository defines the interface for canvas persistence
type Repository interface {
	// Canvas snapshots
	SaveCanvas(ctx context.Context, canvas *domain.Canvas) error
	LoadCanvas(ctx context.Context, sessionID string) (*domain.Canvas, error)

	// Session index
	LatestSession(ctx context.Context) (string, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Notification journal
	AppendNotification(ctx context.Context, n notify.Notification) error
	Notifications(ctx context.Context, sessionID string, limit int) ([]notify.Notification, error)

	// Close releases resources
	Close() error
}
