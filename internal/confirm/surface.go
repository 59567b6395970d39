// Package confirm provides the dialogs the workflow engine suspends on: subtype
// choice, name entry and link type disambiguation. Every dialog resolves to a
// choice or to ErrCancelled.
package confirm

import (
	"context"
	"errors"

	"archcanvas/internal/domain"
)

// ErrCancelled is returned when the operator dismisses a dialog
var ErrCancelled = errors.New("confirm: cancelled")

// Surface presents dialogs to the operator
type Surface interface {
	// ChooseSubtype resolves to the id of one of options
	ChooseSubtype(ctx context.Context, componentType domain.ComponentType, options []domain.SubtypeOption) (string, error)
	// EnterName resolves to a non-empty component name
	EnterName(ctx context.Context, componentType domain.ComponentType, subtype, defaultName string) (string, error)
	// ChooseLinkType resolves to one of options
	ChooseLinkType(ctx context.Context, options []domain.LinkType, sourceLabel, targetLabel string) (domain.LinkType, error)
}

// cancelled maps a context error onto ErrCancelled while keeping the cause
func cancelled(ctx context.Context) error {
	return errors.Join(ErrCancelled, ctx.Err())
}
