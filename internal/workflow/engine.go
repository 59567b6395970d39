package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/graphstore"
	"archcanvas/internal/notify"
	"archcanvas/internal/selection"
)

// DefaultArchitectureName names the architecture created for a new session
const DefaultArchitectureName = "Untitled Architecture"

// Options configures an Engine. The zero value is usable.
type Options struct {
	// SubtypeTypes are the component types that carry a subtype
	SubtypeTypes []domain.ComponentType
	// ArchitectureName names architectures created by Init and ResetCanvas
	ArchitectureName string
	// Publisher receives graph, selection and notification events
	Publisher notify.Publisher
	// Sink receives one notification per terminal outcome
	Sink   notify.Sink
	Logger *slog.Logger
	// Observer, when set, sees every workflow state transition
	Observer func(Transition)

	Now   func() time.Time
	NewID func() string
}

// Transition is one state change of a running workflow
type Transition struct {
	Workflow domain.PendingKind
	ID       string
	From     string
	To       string
}

// Engine drives the component and connection workflows for one session
type Engine struct {
	session   *Session
	store     *graphstore.Store
	remote    Remote
	surface   confirm.Surface
	selection *selection.State
	sink      notify.Sink
	logger    *slog.Logger

	subtypes     *subtypeCache
	pending      *registry
	subtypeTypes []domain.ComponentType
	archName     string
	observer     func(Transition)
	now          func() time.Time
	newID        func() string
}

// New creates an engine for session sessionID
func New(sessionID string, r Remote, surface confirm.Surface, opts Options) *Engine {
	if opts.Publisher == nil {
		opts.Publisher = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sink == nil {
		opts.Sink = notify.NewLogSink(opts.Logger)
	}
	if opts.SubtypeTypes == nil {
		opts.SubtypeTypes = domain.DefaultSubtypeTypes
	}
	if opts.ArchitectureName == "" {
		opts.ArchitectureName = DefaultArchitectureName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	logger := opts.Logger.With("session", sessionID)
	e := &Engine{
		session:      NewSession(sessionID),
		store:        graphstore.New(sessionID, opts.Publisher),
		remote:       r,
		surface:      surface,
		sink:         opts.Sink,
		logger:       logger,
		subtypes:     newSubtypeCache(r),
		pending:      newRegistry(),
		subtypeTypes: slices.Clone(opts.SubtypeTypes),
		archName:     opts.ArchitectureName,
		observer:     opts.Observer,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	e.selection = selection.New(sessionID, opts.Publisher, r, e, logger)
	return e
}

// Session returns the engine's session
func (e *Engine) Session() *Session { return e.session }

// Canvas returns the read-only view of the graph store
func (e *Engine) Canvas() graphstore.Reader { return e.store }

// Selection returns the selection and preview state
func (e *Engine) Selection() *selection.State { return e.selection }

// Pending returns the pending operations currently in flight
func (e *Engine) Pending() []domain.PendingOperation { return e.pending.list() }

// Snapshot returns a deep copy of the canvas including the session
// architecture
func (e *Engine) Snapshot() *domain.Canvas {
	c := e.store.Snapshot()
	if a, ok := e.session.Architecture(); ok {
		c.Architecture = a
	}
	return c
}

// HasSubtypes reports whether components of t carry a subtype
func (e *Engine) HasSubtypes(t domain.ComponentType) bool {
	return slices.Contains(e.subtypeTypes, t)
}

// SubtypeOptions returns the cached subtype list for t, nil for types without
// subtypes
func (e *Engine) SubtypeOptions(ctx context.Context, t domain.ComponentType) ([]domain.SubtypeOption, error) {
	if !e.HasSubtypes(t) {
		return nil, nil
	}
	return e.subtypes.get(ctx, t)
}

// Init loads the global link types and creates the session architecture
// unless one was restored. A link type failure is logged and leaves the
// list empty.
func (e *Engine) Init(ctx context.Context) error {
	types, err := e.remote.GetLinkTypes(ctx)
	if err != nil {
		e.logger.Warn("link types unavailable", "error", err)
	} else {
		e.session.SetLinkTypes(types)
		e.logger.Debug("link types loaded", "count", len(types))
	}

	if arch, ok := e.session.Architecture(); ok {
		e.logger.Info("resuming architecture", "id", arch.ID, "name", arch.Name)
		return nil
	}
	return e.createArchitecture(ctx, "init", "Architecture created")
}

func (e *Engine) createArchitecture(ctx context.Context, op, success string) error {
	arch, err := e.remote.CreateArchitecture(ctx, e.archName)
	if err != nil {
		e.session.SetArchitecture(nil)
		e.notify(notify.LevelError, op, serviceMessage(err, "Failed to create architecture"))
		return fmt.Errorf("create architecture: %w", err)
	}
	e.session.SetArchitecture(arch)
	e.logger.Info("architecture created", "id", arch.ID, "name", arch.Name)
	e.notify(notify.LevelSuccess, op, success)
	return nil
}

// SelectNode selects a real node, displacing any preview
func (e *Engine) SelectNode(localID string) error {
	if _, ok := e.store.Node(localID); !ok {
		return fmt.Errorf("%w: node %s", ErrStaleReference, localID)
	}
	e.selection.SelectNode(localID)
	return nil
}

// SelectEdge selects a confirmed edge, displacing any preview. Placeholders
// of running connections cannot be selected.
func (e *Engine) SelectEdge(localID string) error {
	edge, ok := e.store.Edge(localID)
	if !ok {
		return fmt.Errorf("%w: edge %s", ErrStaleReference, localID)
	}
	if edge.Optimistic {
		return fmt.Errorf("%w: %s", ErrOptimisticEdge, localID)
	}
	e.selection.SelectEdge(localID)
	return nil
}

func (e *Engine) notify(level notify.Level, op, message string) {
	e.sink.Notify(notify.Notification{
		Level:     level,
		Op:        op,
		Message:   message,
		SessionID: e.session.ID,
		Time:      e.now(),
	})
}

func (e *Engine) observe(kind domain.PendingKind, id, from, to string) {
	e.logger.Debug("workflow transition", "workflow", kind, "id", id, "from", from, "to", to)
	if e.observer != nil {
		e.observer(Transition{Workflow: kind, ID: id, From: from, To: to})
	}
}

// outcome is the terminal result of a workflow: the one notification it emits
// and the error its caller receives
type outcome struct {
	level   notify.Level
	message string
	err     error
}

func (o *outcome) succeed(level notify.Level, message string) {
	o.level, o.message, o.err = level, message, nil
}

func (o *outcome) fail(level notify.Level, message string, err error) {
	o.level, o.message, o.err = level, message, err
}
