package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/remote"
	"archcanvas/internal/repository"
	"archcanvas/internal/repository/sqlite"
	"archcanvas/internal/workflow"
)

// resumeLatest asks openWorkspace for the most recently saved session
const resumeLatest = "latest"

const saveTimeout = 5 * time.Second

// workspace is one engine session together with its persistence and event
// plumbing
type workspace struct {
	engine  *workflow.Engine
	bus     *notify.EventBus
	repo    *sqlite.Repository
	changes chan notify.Event // nil unless autosave is enabled
}

// surfaceFunc builds the confirmation surface once the session id is known
type surfaceFunc func(sessionID string, pub notify.Publisher) confirm.Surface

// openWorkspace opens the database, restores the session named by resume (a
// session id, resumeLatest, or "" for a new session) and initialises the
// engine. Notifications go to the event bus, the journal and extra.
func openWorkspace(ctx context.Context, resume string, surface surfaceFunc, extra ...notify.Sink) (*workspace, error) {
	repo, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sessionID, saved, err := resolveSession(ctx, repo, resume)
	if err != nil {
		repo.Close()
		return nil, err
	}

	subtypeTypes, err := cfg.SubtypeComponentTypes()
	if err != nil {
		repo.Close()
		return nil, err
	}

	bus := notify.NewEventBus()
	sinks := append([]notify.Sink{notify.NewBusSink(bus), repository.NewJournal(repo, logger)}, extra...)
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout.Duration())
	engine := workflow.New(sessionID, client, surface(sessionID, bus), workflow.Options{
		SubtypeTypes:     subtypeTypes,
		ArchitectureName: cfg.Session.ArchitectureName,
		Publisher:        bus,
		Sink:             notify.Multi(sinks...),
		Logger:           logger,
	})

	w := &workspace{engine: engine, bus: bus, repo: repo}
	if cfg.Database.Autosave {
		w.changes = make(chan notify.Event, 256)
		bus.Subscribe(w.changes)
	}

	if saved != nil {
		if err := engine.Restore(saved); err != nil {
			repo.Close()
			return nil, err
		}
	}
	if err := engine.Init(ctx); err != nil {
		// the engine already reported it; evaluation stays unavailable
		logger.Warn("session started without an architecture", "error", err)
	}
	return w, nil
}

func resolveSession(ctx context.Context, repo repository.Repository, resume string) (string, *domain.Canvas, error) {
	switch resume {
	case "":
		return uuid.NewString(), nil, nil
	case resumeLatest:
		id, err := repo.LatestSession(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, errors.New("no saved session to resume")
		}
		if err != nil {
			return "", nil, err
		}
		resume = id
	}

	canvas, err := repo.LoadCanvas(ctx, resume)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, fmt.Errorf("session %s not found", resume)
	}
	if err != nil {
		return "", nil, err
	}
	return resume, canvas, nil
}

// sessionID returns the id of the workspace session
func (w *workspace) sessionID() string {
	return w.engine.Session().ID
}

// save writes the confirmed canvas to the database
func (w *workspace) save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	return w.repo.SaveCanvas(ctx, w.engine.Snapshot())
}

// autosave saves after every graph change until ctx is done. It returns
// immediately when autosave is disabled.
func (w *workspace) autosave(ctx context.Context) error {
	if w.changes == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.changes:
			if !ev.Type.IsGraphChange() {
				continue
			}
			if err := w.save(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("autosave failed", "session", ev.SessionID, "error", err)
			}
		}
	}
}

// close saves the final canvas and closes the database
func (w *workspace) close() error {
	err := w.save(context.Background())
	if cerr := w.repo.Close(); err == nil {
		err = cerr
	}
	return err
}
