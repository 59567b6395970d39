package repository

import (
	"context"
	"log/slog"
	"time"

	"archcanvas/internal/notify"
)

const journalTimeout = 5 * time.Second

// Journal records notifications in a Repository
type Journal struct {
	repo   Repository
	logger *slog.Logger
}

// NewJournal creates a journal sink writing to repo
func NewJournal(repo Repository, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{repo: repo, logger: logger}
}

// Notify implements notify.Sink. Write failures are logged and dropped.
func (j *Journal) Notify(n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := j.repo.AppendNotification(ctx, n); err != nil {
		j.logger.Warn("journal notification", "op", n.Op, "error", err)
	}
}
