package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/selection"
)

// ComponentState is a state of the component creation workflow
type ComponentState int

const (
	ComponentIdle ComponentState = iota
	ComponentAwaitingSubtypeChoice
	ComponentAwaitingName
	ComponentCommitting
)

func (s ComponentState) String() string {
	switch s {
	case ComponentIdle:
		return "Idle"
	case ComponentAwaitingSubtypeChoice:
		return "AwaitingSubtypeChoice"
	case ComponentAwaitingName:
		return "AwaitingName"
	case ComponentCommitting:
		return "Committing"
	}
	return fmt.Sprintf("ComponentState(%d)", int(s))
}

const opAddComponent = "add_component"

// componentFlow is one run of the component creation workflow
type componentFlow struct {
	id       string
	state    ComponentState
	started  bool
	pending  domain.PendingOperation
	typ      domain.ComponentType
	subtype  string
	position domain.Position
	name     string
	node     *domain.ComponentNode
	outcome
}

// Drop runs the component creation workflow for a palette drop. A subtype in
// the payload skips the subtype dialog.
func (e *Engine) Drop(ctx context.Context, payload selection.DragPayload, position domain.Position) (*domain.ComponentNode, error) {
	f := &componentFlow{
		id:       e.newID(),
		typ:      payload.Type,
		subtype:  strings.TrimSpace(payload.Subtype),
		position: position,
	}

	if !f.typ.Valid() {
		e.notify(notify.LevelError, opAddComponent, "Failed to add component")
		return nil, fmt.Errorf("%w: component type %q", ErrInvalidInput, f.typ)
	}

	if err := e.pending.acquire(ctx, domain.PendingKindComponent); err != nil {
		e.notify(notify.LevelInfo, opAddComponent, "Component creation cancelled")
		return nil, errors.Join(ErrCancelled, err)
	}
	defer e.pending.release(domain.PendingKindComponent)
	defer e.pending.remove(f.id)

	for {
		next := e.stepComponent(ctx, f)
		e.observe(domain.PendingKindComponent, f.id, f.state.String(), next.String())
		f.state = next
		if f.state == ComponentIdle {
			break
		}
	}

	e.notify(f.level, opAddComponent, f.message)
	if f.err != nil {
		return nil, f.err
	}
	return f.node, nil
}

// stepComponent performs the work of the current state and returns the next.
// Returning ComponentIdle ends the workflow with f.outcome set.
func (e *Engine) stepComponent(ctx context.Context, f *componentFlow) ComponentState {
	switch f.state {
	case ComponentIdle:
		if f.started {
			return ComponentIdle
		}
		f.started = true

		if !e.HasSubtypes(f.typ) {
			f.subtype = ""
		}
		if f.subtype != "" || !e.HasSubtypes(f.typ) {
			e.settleSubtype(f)
			return ComponentAwaitingName
		}
		e.pending.put(f.id, domain.PendingComponentCreation{Type: f.typ, Position: f.position})
		return ComponentAwaitingSubtypeChoice

	case ComponentAwaitingSubtypeChoice:
		options, err := e.subtypes.get(ctx, f.typ)
		if err != nil {
			e.logger.Warn("subtype fetch failed, offering fallback", "type", f.typ, "error", err)
			options = []domain.SubtypeOption{{ID: domain.FallbackSubtype, Name: domain.FallbackSubtype}}
		}
		if len(options) == 0 {
			f.fail(notify.LevelWarning,
				fmt.Sprintf("No subtypes available for %s", f.typ.Words()),
				fmt.Errorf("%w: subtypes for %s", ErrNoCandidates, f.typ))
			return ComponentIdle
		}

		choice, err := e.surface.ChooseSubtype(ctx, f.typ, options)
		if err != nil {
			e.cancelComponent(f, err)
			return ComponentIdle
		}
		f.subtype = choice
		e.settleSubtype(f)
		return ComponentAwaitingName

	case ComponentAwaitingName:
		defaultName := fmt.Sprintf("%s-%d", f.typ, e.now().UnixMilli())
		name, err := e.surface.EnterName(ctx, f.typ, f.subtype, defaultName)
		if err != nil {
			e.cancelComponent(f, err)
			return ComponentIdle
		}
		f.name = strings.TrimSpace(name)
		if f.name == "" {
			f.name = defaultName
		}
		return ComponentCommitting

	case ComponentCommitting:
		e.commitComponent(ctx, f)
		return ComponentIdle
	}

	f.fail(notify.LevelError, "Failed to add component", fmt.Errorf("component workflow in state %s", f.state))
	return ComponentIdle
}

// settleSubtype records the pending operation once the subtype question is
// answered (or does not apply)
func (e *Engine) settleSubtype(f *componentFlow) {
	if f.subtype == "" {
		e.pending.put(f.id, domain.PendingComponentCreation{Type: f.typ, Position: f.position})
		return
	}
	e.pending.put(f.id, domain.PendingComponentWithSubtype{Type: f.typ, Position: f.position, Subtype: f.subtype})
}

func (e *Engine) cancelComponent(f *componentFlow, err error) {
	if Classify(err) == KindCancelled {
		f.fail(notify.LevelInfo, "Component creation cancelled", err)
		return
	}
	f.fail(notify.LevelError, "Failed to add component", fmt.Errorf("confirm: %w", err))
}

func (e *Engine) commitComponent(ctx context.Context, f *componentFlow) {
	properties := map[string]any{}
	if f.subtype != "" {
		properties[domain.PropertySubtype] = f.subtype
	}

	created, err := e.remote.CreateComponent(ctx, f.typ, f.name, properties)
	if err != nil {
		if ctx.Err() != nil {
			f.fail(notify.LevelInfo, "Component creation cancelled", errors.Join(ErrCancelled, err))
			return
		}
		f.fail(notify.LevelError, serviceMessage(err, "Failed to add component"),
			fmt.Errorf("create component: %w", err))
		return
	}

	name := f.name
	if created.Name != "" {
		name = created.Name
	}
	node := domain.NewComponentNode(e.newID(), created.ID, f.typ, name)
	node.Subtype = f.subtype
	node.Heuristics = created.Heuristics
	node.Position = f.position
	for k, v := range properties {
		node.SetProperty(k, v)
	}
	for k, v := range created.Properties {
		node.SetProperty(k, v)
	}

	if err := e.store.InsertNode(node); err != nil {
		f.fail(notify.LevelError, "Failed to add component", fmt.Errorf("insert node: %w", err))
		return
	}
	f.node = node

	label := f.typ.Words()
	if f.subtype != "" {
		label = domain.Words(f.subtype)
	}
	success := fmt.Sprintf("Component added successfully (%s)", label)

	arch, ok := e.session.Architecture()
	if !ok {
		f.succeed(notify.LevelWarning, success+", but no architecture exists to attach it to")
		return
	}
	if err := e.remote.AttachComponent(ctx, arch.ID, created.ID); err != nil {
		e.logger.Warn("attach component failed", "component", created.ID, "architecture", arch.ID, "error", err)
		f.succeed(notify.LevelWarning,
			success+", but attaching it to the architecture failed: "+serviceMessage(err, "unknown error"))
		return
	}
	f.succeed(notify.LevelSuccess, success)
}
