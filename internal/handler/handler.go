package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"archcanvas/internal/confirm"
	"archcanvas/internal/notify"
	"archcanvas/internal/remote"
	"archcanvas/internal/workflow"
)

// Journal reads recorded notifications
type Journal interface {
	Notifications(ctx context.Context, sessionID string, limit int) ([]notify.Notification, error)
}

// CanvasHandler handles canvas API requests for one session
type CanvasHandler struct {
	engine  *workflow.Engine
	prompts *confirm.Broker
	journal Journal
}

// NewCanvasHandler creates a handler driving engine. prompts must be the
// surface the engine was built with.
func NewCanvasHandler(engine *workflow.Engine, prompts *confirm.Broker) *CanvasHandler {
	return &CanvasHandler{engine: engine, prompts: prompts}
}

// SetJournal enables GET /api/notifications
func (h *CanvasHandler) SetJournal(j Journal) {
	h.journal = j
}

// ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *CanvasHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	writeJSON(w, data, statusCode)
}

func (h *CanvasHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeError(w, error, details, statusCode)
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeWorkflowError reports an engine error. Cancellation is not a failure
// and answers 204.
func (h *CanvasHandler) writeWorkflowError(w http.ResponseWriter, title string, err error) {
	kind := workflow.Classify(err)
	if kind == workflow.KindCancelled {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if kind == workflow.KindInternal {
		log.Printf("%s: %v", title, err)
	}
	h.writeError(w, title, err.Error(), statusFor(kind, err))
}

// statusFor maps a workflow error kind onto an HTTP status
func statusFor(kind workflow.Kind, err error) int {
	switch kind {
	case workflow.KindNone:
		return http.StatusOK
	case workflow.KindInvalid:
		return http.StatusBadRequest
	case workflow.KindStale:
		return http.StatusNotFound
	case workflow.KindNoArchitecture, workflow.KindOptimisticEdge:
		return http.StatusConflict
	case workflow.KindRejection, workflow.KindNoCandidates:
		return http.StatusUnprocessableEntity
	case workflow.KindRemote:
		var re *remote.Error
		if errors.As(err, &re) && re.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON request body into v
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
