package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"archcanvas/internal/domain"
	"archcanvas/internal/graphstore"
	"archcanvas/internal/notify"
)

// ConnectionState is a state of the connection workflow
type ConnectionState int

const (
	ConnectionIdle ConnectionState = iota
	ConnectionOptimisticPlaced
	ConnectionSuggestionPending
	ConnectionResolvedSingle
	ConnectionAwaitingDisambiguation
	ConnectionValidating
	ConnectionCommitting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionIdle:
		return "Idle"
	case ConnectionOptimisticPlaced:
		return "OptimisticPlaced"
	case ConnectionSuggestionPending:
		return "SuggestionPending"
	case ConnectionResolvedSingle:
		return "ResolvedSingle"
	case ConnectionAwaitingDisambiguation:
		return "AwaitingDisambiguation"
	case ConnectionValidating:
		return "Validating"
	case ConnectionCommitting:
		return "Committing"
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

const (
	opConnect = "connect"

	msgNoLinkTypes       = "No valid link types for this connection"
	msgInvalidConnection = "Invalid connection"
	msgCreateFailed      = "Failed to create connection"
	msgConnectCancelled  = "Connection cancelled"
)

// TempEdgePrefix marks the local id of an optimistic edge
const TempEdgePrefix = "temp-"

// connectionFlow is one run of the connection workflow
type connectionFlow struct {
	id         string
	state      ConnectionState
	started    bool
	params     domain.ConnectionParams
	source     *domain.ComponentNode
	target     *domain.ComponentNode
	tempID     string
	placed     bool
	holdsSlot  bool
	candidates []domain.LinkType
	linkType   domain.LinkType
	edge       *domain.LinkEdge
	outcome
}

// Connect runs the connection workflow between two nodes on the canvas
func (e *Engine) Connect(ctx context.Context, params domain.ConnectionParams) (*domain.LinkEdge, error) {
	f := &connectionFlow{id: e.newID(), params: params}

	defer e.pending.remove(f.id)
	defer func() {
		if f.holdsSlot {
			e.pending.release(domain.PendingKindConnection)
		}
	}()

	for {
		next := e.stepConnection(ctx, f)
		e.observe(domain.PendingKindConnection, f.id, f.state.String(), next.String())
		f.state = next
		if f.state == ConnectionIdle {
			break
		}
	}

	if f.err != nil {
		e.discardOptimistic(f)
	}
	e.notify(f.level, opConnect, f.message)
	if f.err != nil {
		return nil, f.err
	}
	return f.edge, nil
}

// stepConnection performs the work of the current state and returns the next.
// Returning ConnectionIdle ends the workflow with f.outcome set; a failed
// outcome makes Connect discard the optimistic edge.
func (e *Engine) stepConnection(ctx context.Context, f *connectionFlow) ConnectionState {
	switch f.state {
	case ConnectionIdle:
		if f.started {
			return ConnectionIdle
		}
		f.started = true
		return e.placeOptimistic(f)

	case ConnectionOptimisticPlaced:
		if err := e.pending.acquire(ctx, domain.PendingKindConnection); err != nil {
			f.fail(notify.LevelInfo, msgConnectCancelled, errors.Join(ErrCancelled, err))
			return ConnectionIdle
		}
		f.holdsSlot = true
		return ConnectionSuggestionPending

	case ConnectionSuggestionPending:
		if !e.refreshEndpoints(f) {
			return ConnectionIdle
		}
		candidates, err := e.remote.SuggestLinkTypes(ctx, f.source.RemoteID, f.target.RemoteID)
		if err != nil {
			if ctx.Err() != nil {
				f.fail(notify.LevelInfo, msgConnectCancelled, errors.Join(ErrCancelled, err))
				return ConnectionIdle
			}
			candidates = e.session.LinkTypes()
			e.logger.Warn("link suggestion failed, using global link types",
				"source", f.source.RemoteID, "target", f.target.RemoteID,
				"fallback", len(candidates), "error", err)
		}
		f.candidates = candidates

		switch len(candidates) {
		case 0:
			f.fail(notify.LevelWarning, msgNoLinkTypes, fmt.Errorf("%w: link types", ErrNoCandidates))
			return ConnectionIdle
		case 1:
			return ConnectionResolvedSingle
		default:
			return ConnectionAwaitingDisambiguation
		}

	case ConnectionResolvedSingle:
		f.linkType = f.candidates[0]
		return ConnectionValidating

	case ConnectionAwaitingDisambiguation:
		choice, err := e.surface.ChooseLinkType(ctx, f.candidates, f.source.Label(), f.target.Label())
		if err != nil {
			if Classify(err) == KindCancelled {
				f.fail(notify.LevelInfo, msgConnectCancelled, err)
			} else {
				f.fail(notify.LevelError, msgCreateFailed, fmt.Errorf("confirm: %w", err))
			}
			return ConnectionIdle
		}
		if !slices.Contains(f.candidates, choice) {
			f.fail(notify.LevelError, msgInvalidConnection,
				fmt.Errorf("%w: link type %q was not offered", ErrInvalidInput, choice))
			return ConnectionIdle
		}
		f.linkType = choice
		return ConnectionValidating

	case ConnectionValidating:
		if !e.refreshEndpoints(f) {
			return ConnectionIdle
		}
		verdict, err := e.remote.ValidateLink(ctx, f.source.RemoteID, f.target.RemoteID, f.linkType)
		if err != nil {
			e.failRemote(ctx, f, err, msgInvalidConnection, "validate link")
			return ConnectionIdle
		}
		if !verdict.Valid {
			msg := verdict.Message
			if msg == "" {
				msg = msgInvalidConnection
			}
			f.fail(notify.LevelWarning, msg, &RejectionError{Message: msg})
			return ConnectionIdle
		}
		return ConnectionCommitting

	case ConnectionCommitting:
		if !e.refreshEndpoints(f) {
			return ConnectionIdle
		}
		e.commitConnection(ctx, f)
		return ConnectionIdle
	}

	f.fail(notify.LevelError, msgCreateFailed, fmt.Errorf("connection workflow in state %s", f.state))
	return ConnectionIdle
}

// placeOptimistic validates the gesture and inserts the placeholder edge
func (e *Engine) placeOptimistic(f *connectionFlow) ConnectionState {
	if f.params.Source == f.params.Target {
		msg := "Cannot connect a component to itself"
		f.fail(notify.LevelWarning, msg, &RejectionError{Message: msg})
		return ConnectionIdle
	}

	var ok bool
	if f.source, ok = e.store.Node(f.params.Source); !ok {
		f.fail(notify.LevelError, msgInvalidConnection,
			fmt.Errorf("%w: source %s", ErrStaleReference, f.params.Source))
		return ConnectionIdle
	}
	if f.target, ok = e.store.Node(f.params.Target); !ok {
		f.fail(notify.LevelError, msgInvalidConnection,
			fmt.Errorf("%w: target %s", ErrStaleReference, f.params.Target))
		return ConnectionIdle
	}

	f.tempID = TempEdgePrefix + e.newID()
	if err := e.store.InsertEdge(domain.NewOptimisticEdge(f.tempID, f.source.LocalID, f.target.LocalID)); err != nil {
		f.fail(notify.LevelError, msgInvalidConnection, fmt.Errorf("%w: %v", ErrStaleReference, err))
		return ConnectionIdle
	}
	f.placed = true

	e.pending.put(f.id, domain.PendingConnection{
		SourceNode:       f.source.Clone(),
		TargetNode:       f.target.Clone(),
		Params:           f.params,
		OptimisticEdgeID: f.tempID,
	})
	return ConnectionOptimisticPlaced
}

// refreshEndpoints re-reads both endpoints and the optimistic edge before a
// remote call. Either may have been deleted while the workflow was suspended.
func (e *Engine) refreshEndpoints(f *connectionFlow) bool {
	source, okSource := e.store.Node(f.source.LocalID)
	target, okTarget := e.store.Node(f.target.LocalID)
	_, okEdge := e.store.Edge(f.tempID)
	if !okSource || !okTarget || !okEdge {
		f.fail(notify.LevelWarning, "Connection aborted: a component was removed",
			fmt.Errorf("%w: connection %s -> %s", ErrStaleReference, f.source.LocalID, f.target.LocalID))
		return false
	}
	f.source, f.target = source, target
	return true
}

func (e *Engine) failRemote(ctx context.Context, f *connectionFlow, err error, fallback, op string) {
	if ctx.Err() != nil {
		f.fail(notify.LevelInfo, msgConnectCancelled, errors.Join(ErrCancelled, err))
		return
	}
	f.fail(notify.LevelError, serviceMessage(err, fallback), fmt.Errorf("%s: %w", op, err))
}

func (e *Engine) commitConnection(ctx context.Context, f *connectionFlow) {
	link, err := e.remote.CreateLink(ctx, f.source.RemoteID, f.target.RemoteID, f.linkType)
	if err != nil {
		e.failRemote(ctx, f, err, msgCreateFailed, "create link")
		return
	}

	confirmed := domain.NewConfirmedEdge(e.newID(), link.ID, f.source.LocalID, f.target.LocalID, f.linkType, link.Heuristics)
	if err := e.store.ReplaceEdge(f.tempID, confirmed); err != nil {
		// The placeholder vanished after the remote link was created: undo
		// the remote side so no invisible link survives.
		if derr := e.remote.DeleteLink(ctx, link.ID); derr != nil {
			e.logger.Error("orphaned remote link", "link", link.ID, "error", derr)
		}
		f.fail(notify.LevelError, msgCreateFailed, fmt.Errorf("%w: %v", ErrStaleReference, err))
		return
	}
	f.placed = false
	e.selection.Forget(f.tempID)
	f.edge = confirmed

	success := fmt.Sprintf("Connection created (%s)", f.linkType.Words())
	arch, ok := e.session.Architecture()
	if !ok {
		f.succeed(notify.LevelWarning, success+", but no architecture exists to attach it to")
		return
	}
	if err := e.remote.AttachLink(ctx, arch.ID, link.ID); err != nil {
		e.logger.Warn("attach link failed", "link", link.ID, "architecture", arch.ID, "error", err)
		f.succeed(notify.LevelWarning,
			success+", but attaching it to the architecture failed: "+serviceMessage(err, "unknown error"))
		return
	}
	f.succeed(notify.LevelSuccess, success)
}

// discardOptimistic removes the placeholder edge of a failed attempt. The edge
// may already be gone if one of its endpoints was deleted.
func (e *Engine) discardOptimistic(f *connectionFlow) {
	if !f.placed {
		return
	}
	f.placed = false
	e.selection.Forget(f.tempID)
	if err := e.store.RemoveEdge(f.tempID); err != nil && !errors.Is(err, graphstore.ErrEdgeNotFound) {
		e.logger.Error("failed to discard optimistic edge", "edge", f.tempID, "error", err)
	}
}
