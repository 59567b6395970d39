package workflow

import (
	"context"
	"fmt"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

const (
	opEvaluate = "evaluate_architecture"
	opValidate = "validate_architecture"
	opReset    = "reset_canvas"
	opRestore  = "restore_canvas"
)

// EvaluateArchitecture asks the service for a scored report of the session
// architecture
func (e *Engine) EvaluateArchitecture(ctx context.Context) (*domain.EvaluationReport, error) {
	arch, ok := e.session.Architecture()
	if !ok {
		e.notify(notify.LevelWarning, opEvaluate, "No architecture to evaluate")
		return nil, ErrNoArchitecture
	}

	report, err := e.remote.EvaluateArchitecture(ctx, arch.ID)
	if err != nil {
		e.notify(notify.LevelError, opEvaluate, serviceMessage(err, "Failed to evaluate architecture"))
		return nil, fmt.Errorf("evaluate architecture: %w", err)
	}

	e.notify(notify.LevelSuccess, opEvaluate, "Architecture evaluated")
	return report, nil
}

// ValidateArchitecture checks the session architecture against the service's
// connection rules
func (e *Engine) ValidateArchitecture(ctx context.Context) (*domain.ValidationReport, error) {
	arch, ok := e.session.Architecture()
	if !ok {
		e.notify(notify.LevelWarning, opValidate, "No architecture to validate")
		return nil, ErrNoArchitecture
	}

	report, err := e.remote.ValidateArchitecture(ctx, arch.ID)
	if err != nil {
		e.notify(notify.LevelError, opValidate, serviceMessage(err, "Failed to validate architecture"))
		return nil, fmt.Errorf("validate architecture: %w", err)
	}

	if report.Valid {
		e.notify(notify.LevelSuccess, opValidate, "Architecture is valid!")
	} else {
		e.notify(notify.LevelWarning, opValidate,
			fmt.Sprintf("Architecture has %d violations", len(report.Violations)))
	}
	return report, nil
}

// ResetCanvas clears the canvas and selection and starts a fresh
// architecture. Workflows still in flight notice their nodes are gone.
func (e *Engine) ResetCanvas(ctx context.Context) error {
	e.store.Clear()
	e.selection.Clear()
	e.subtypes.reset()
	return e.createArchitecture(ctx, opReset, "Canvas reset")
}

// Restore loads a saved canvas into the empty store. Optimistic edges in the
// canvas are dropped; a saved architecture becomes the session architecture.
func (e *Engine) Restore(canvas *domain.Canvas) error {
	confirmed := canvas.Confirmed()
	if err := e.store.Load(confirmed); err != nil {
		e.notify(notify.LevelError, opRestore, "Failed to restore canvas")
		return fmt.Errorf("restore canvas: %w", err)
	}
	if confirmed.Architecture != nil {
		e.session.SetArchitecture(confirmed.Architecture)
	}

	e.notify(notify.LevelInfo, opRestore,
		fmt.Sprintf("Canvas restored (%d components, %d connections)", len(confirmed.Nodes), len(confirmed.Edges)))
	return nil
}
