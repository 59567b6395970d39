package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archcanvas/internal/domain"
	"archcanvas/internal/graphstore"
	"archcanvas/internal/notify"
)

const (
	opDeleteComponent = "delete_component"
	opDeleteLink      = "delete_link"
	opRename          = "rename_component"
	opMove            = "move_component"
)

// DeleteComponent deletes a node remotely and then locally. The confirmed
// links touching it are deleted first, one remote call each; a link whose
// remote delete fails stays on the canvas together with the node.
func (e *Engine) DeleteComponent(ctx context.Context, localID string) error {
	node, ok := e.store.Node(localID)
	if !ok {
		e.notify(notify.LevelWarning, opDeleteComponent, "Component not found")
		return fmt.Errorf("%w: node %s", ErrStaleReference, localID)
	}

	for _, edge := range e.store.Edges() {
		if edge.Optimistic || !edge.Touches(localID) {
			continue
		}
		if err := e.remote.DeleteLink(ctx, edge.RemoteID); err != nil {
			e.notify(notify.LevelError, opDeleteComponent, serviceMessage(err, "Failed to delete the component's connections"))
			return fmt.Errorf("delete link %s: %w", edge.RemoteID, err)
		}
		if err := e.store.RemoveEdge(edge.LocalID); err != nil && !errors.Is(err, graphstore.ErrEdgeNotFound) {
			e.logger.Error("failed to remove deleted link", "edge", edge.LocalID, "error", err)
		}
		e.selection.Forget(edge.LocalID)
	}

	if err := e.remote.DeleteComponent(ctx, node.RemoteID); err != nil {
		e.notify(notify.LevelError, opDeleteComponent, serviceMessage(err, "Failed to delete component"))
		return fmt.Errorf("delete component: %w", err)
	}

	// placeholders of workflows still running on this node go with it
	removed, err := e.store.RemoveNode(localID)
	if err != nil && !errors.Is(err, graphstore.ErrNodeNotFound) {
		e.notify(notify.LevelError, opDeleteComponent, "Failed to delete component")
		return fmt.Errorf("remove node: %w", err)
	}
	e.selection.Forget(localID)
	for _, edge := range removed {
		e.selection.Forget(edge.LocalID)
		if edge.Optimistic {
			continue
		}
		// confirmed while the component delete was in flight
		if err := e.remote.DeleteLink(ctx, edge.RemoteID); err != nil {
			e.logger.Error("orphaned remote link", "link", edge.RemoteID, "error", err)
		}
	}

	e.notify(notify.LevelSuccess, opDeleteComponent, fmt.Sprintf("Component %s deleted", node.Label()))
	return nil
}

// DeleteLink deletes a confirmed edge remotely and then locally. Optimistic
// edges cannot be deleted; their workflow owns them.
func (e *Engine) DeleteLink(ctx context.Context, localID string) error {
	edge, ok := e.store.Edge(localID)
	if !ok {
		e.notify(notify.LevelWarning, opDeleteLink, "Connection not found")
		return fmt.Errorf("%w: edge %s", ErrStaleReference, localID)
	}
	if edge.Optimistic {
		e.notify(notify.LevelWarning, opDeleteLink, "Connection is still being created")
		return fmt.Errorf("%w: %s", ErrOptimisticEdge, localID)
	}

	if err := e.remote.DeleteLink(ctx, edge.RemoteID); err != nil {
		e.notify(notify.LevelError, opDeleteLink, serviceMessage(err, "Failed to delete connection"))
		return fmt.Errorf("delete link: %w", err)
	}

	if err := e.store.RemoveEdge(localID); err != nil && !errors.Is(err, graphstore.ErrEdgeNotFound) {
		e.notify(notify.LevelError, opDeleteLink, "Failed to delete connection")
		return fmt.Errorf("remove edge: %w", err)
	}
	e.selection.Forget(localID)

	e.notify(notify.LevelSuccess, opDeleteLink, "Connection deleted")
	return nil
}

// RenameComponent renames a node remotely and then locally
func (e *Engine) RenameComponent(ctx context.Context, localID, name string) (*domain.ComponentNode, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		e.notify(notify.LevelWarning, opRename, "Name cannot be empty")
		return nil, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}

	node, ok := e.store.Node(localID)
	if !ok {
		e.notify(notify.LevelWarning, opRename, "Component not found")
		return nil, fmt.Errorf("%w: node %s", ErrStaleReference, localID)
	}

	updated, err := e.remote.UpdateComponent(ctx, node.RemoteID, node.Type, name, node.Properties)
	if err != nil {
		e.notify(notify.LevelError, opRename, serviceMessage(err, "Failed to rename component"))
		return nil, fmt.Errorf("update component: %w", err)
	}

	displayName := name
	if updated != nil && updated.Name != "" {
		displayName = updated.Name
	}
	renamed, err := e.store.UpdateNode(localID, func(n *domain.ComponentNode) {
		n.CustomName = name
		n.DisplayName = displayName
	})
	if err != nil {
		e.notify(notify.LevelWarning, opRename, "Component was removed during rename")
		return nil, fmt.Errorf("%w: %v", ErrStaleReference, err)
	}

	e.notify(notify.LevelSuccess, opRename, fmt.Sprintf("Component renamed to %s", name))
	return renamed, nil
}

// MoveComponent records a node's canvas position. Moves are local only and
// notify only when they fail.
func (e *Engine) MoveComponent(localID string, position domain.Position) (*domain.ComponentNode, error) {
	moved, err := e.store.UpdateNode(localID, func(n *domain.ComponentNode) {
		n.Position = position
	})
	if err != nil {
		e.notify(notify.LevelWarning, opMove, "Component not found")
		return nil, fmt.Errorf("%w: %v", ErrStaleReference, err)
	}
	return moved, nil
}
