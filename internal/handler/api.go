package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"archcanvas/internal/codec"
	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/graphstore"
	"archcanvas/internal/selection"
)

// Routes builds the API router. events, when non-nil, is served at /events.
func (h *CanvasHandler) Routes(events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, Recover, CORS, Logger)

	r.Route("/api", func(api chi.Router) {
		api.Get("/canvas", h.GetCanvas)
		api.Get("/canvas/export", h.ExportCanvas)
		api.Post("/canvas/import", h.ImportCanvas)
		api.Get("/pending", h.ListPending)
		api.Get("/notifications", h.ListNotifications)

		api.Post("/components", h.DropComponent)
		api.Patch("/components/{id}", h.RenameComponent)
		api.Put("/components/{id}/position", h.MoveComponent)
		api.Delete("/components/{id}", h.DeleteComponent)

		api.Post("/links", h.Connect)
		api.Delete("/links/{id}", h.DeleteLink)

		api.Get("/selection", h.GetSelection)
		api.Delete("/selection", h.ClearSelection)
		api.Post("/selection/node/{id}", h.SelectNode)
		api.Post("/selection/edge/{id}", h.SelectEdge)

		api.Get("/palette", h.GetPalette)
		api.Get("/palette/{type}/subtypes", h.GetSubtypes)
		api.Post("/palette/hover", h.Hover)
		api.Delete("/palette/hover", h.Unhover)
		api.Post("/palette/pin", h.Pin)
		api.Post("/palette/drag", h.DragStart)

		api.Get("/prompts", h.ListPrompts)
		api.Post("/prompts/{id}", h.AnswerPrompt)

		api.Post("/architecture/evaluate", h.EvaluateArchitecture)
		api.Post("/architecture/validate", h.ValidateArchitecture)
		api.Post("/architecture/reset", h.ResetCanvas)
	})

	if events != nil {
		r.Method(http.MethodGet, "/events", events)
	}
	return r
}

// ============================================================================
// Canvas
// ============================================================================

// GetCanvas returns the canvas including optimistic edges
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Snapshot(), http.StatusOK)
}

// ExportCanvas writes the confirmed canvas in ?format= (default json)
func (h *CanvasHandler) ExportCanvas(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(formatParam(r))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType(c.Format()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="canvas.%s"`, c.Format()))
	if err := c.Export(h.engine.Snapshot(), w); err != nil {
		// Headers are gone; the client sees a truncated body
		log.Printf("Failed to export canvas: %v", err)
	}
}

// ImportCanvas restores a canvas into an empty session
func (h *CanvasHandler) ImportCanvas(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(formatParam(r))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	canvas, err := c.Parse(r.Body)
	if err != nil {
		h.writeError(w, "Invalid canvas", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.Restore(canvas); err != nil {
		if errors.Is(err, graphstore.ErrNotEmpty) {
			h.writeError(w, "Canvas is not empty", err.Error(), http.StatusConflict)
			return
		}
		h.writeError(w, "Failed to restore canvas", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, h.engine.Snapshot(), http.StatusOK)
}

// ListPending returns the workflows in flight
func (h *CanvasHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Pending(), http.StatusOK)
}

// ListNotifications returns the session's recent notifications (?limit=)
func (h *CanvasHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, "Notification journal disabled", "", http.StatusNotFound)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", s, http.StatusBadRequest)
			return
		}
		limit = n
	}

	notes, err := h.journal.Notifications(r.Context(), h.engine.Session().ID, limit)
	if err != nil {
		h.writeError(w, "Failed to read notifications", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, notes, http.StatusOK)
}

// ============================================================================
// Components
// ============================================================================

// DropRequest places a component on the canvas
type DropRequest struct {
	Type     string          `json:"type"`
	Subtype  string          `json:"subtype,omitempty"`
	Position domain.Position `json:"position"`
}

// RenameRequest renames a component
type RenameRequest struct {
	Name string `json:"name"`
}

// DropComponent runs the component creation workflow. It blocks while
// prompts are open.
func (h *CanvasHandler) DropComponent(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	payload := selection.DragPayload{
		Type:    domain.ComponentType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Subtype: req.Subtype,
	}
	node, err := h.engine.Drop(r.Context(), payload, req.Position)
	if err != nil {
		h.writeWorkflowError(w, "Failed to add component", err)
		return
	}

	h.writeJSON(w, node, http.StatusCreated)
}

// RenameComponent changes a component's name
func (h *CanvasHandler) RenameComponent(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	node, err := h.engine.RenameComponent(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeWorkflowError(w, "Failed to rename component", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// MoveComponent stores a component's canvas position
func (h *CanvasHandler) MoveComponent(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if err := decode(r, &pos); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	node, err := h.engine.MoveComponent(chi.URLParam(r, "id"), pos)
	if err != nil {
		h.writeWorkflowError(w, "Failed to move component", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// DeleteComponent deletes a component remotely, then from the canvas
func (h *CanvasHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteComponent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeWorkflowError(w, "Failed to delete component", err)
		return
	}

	h.writeJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}

// ============================================================================
// Links
// ============================================================================

// Connect runs the connection workflow. It blocks while prompts are open.
func (h *CanvasHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var params domain.ConnectionParams
	if err := decode(r, &params); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if params.Source == "" || params.Target == "" {
		h.writeError(w, "Source and target are required", "", http.StatusBadRequest)
		return
	}

	edge, err := h.engine.Connect(r.Context(), params)
	if err != nil {
		h.writeWorkflowError(w, "Failed to create connection", err)
		return
	}

	h.writeJSON(w, edge, http.StatusCreated)
}

// DeleteLink deletes a confirmed link
func (h *CanvasHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteLink(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeWorkflowError(w, "Failed to delete connection", err)
		return
	}

	h.writeJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}

// ============================================================================
// Selection and palette
// ============================================================================

// PaletteRequest names a palette entry
type PaletteRequest struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
}

// PaletteEntry is one component type offered by the palette
type PaletteEntry struct {
	Type        domain.ComponentType `json:"type"`
	Label       string               `json:"label"`
	HasSubtypes bool                 `json:"has_subtypes"`
}

// GetSelection returns the current selection
func (h *CanvasHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, selection.ViewOf(h.engine.Selection().Current()), http.StatusOK)
}

// ClearSelection clears the selection
func (h *CanvasHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.engine.Selection().Clear()
	h.writeJSON(w, selection.ViewOf(h.engine.Selection().Current()), http.StatusOK)
}

// SelectNode selects a component
func (h *CanvasHandler) SelectNode(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SelectNode(chi.URLParam(r, "id")); err != nil {
		h.writeWorkflowError(w, "Component not found", err)
		return
	}
	h.writeJSON(w, selection.ViewOf(h.engine.Selection().Current()), http.StatusOK)
}

// SelectEdge selects a link
func (h *CanvasHandler) SelectEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SelectEdge(chi.URLParam(r, "id")); err != nil {
		h.writeWorkflowError(w, "Cannot select connection", err)
		return
	}
	h.writeJSON(w, selection.ViewOf(h.engine.Selection().Current()), http.StatusOK)
}

// GetPalette lists the component types
func (h *CanvasHandler) GetPalette(w http.ResponseWriter, r *http.Request) {
	entries := make([]PaletteEntry, 0, len(domain.ComponentTypes))
	for _, t := range domain.ComponentTypes {
		entries = append(entries, PaletteEntry{Type: t, Label: t.Words(), HasSubtypes: h.engine.HasSubtypes(t)})
	}
	h.writeJSON(w, entries, http.StatusOK)
}

// GetSubtypes lists the subtypes of a component type
func (h *CanvasHandler) GetSubtypes(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseComponentType(chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, "Unknown component type", err.Error(), http.StatusBadRequest)
		return
	}

	options, err := h.engine.SubtypeOptions(r.Context(), t)
	if err != nil {
		h.writeWorkflowError(w, "Failed to load subtypes", err)
		return
	}
	if options == nil {
		options = []domain.SubtypeOption{}
	}
	h.writeJSON(w, options, http.StatusOK)
}

// Hover previews a palette entry
func (h *CanvasHandler) Hover(w http.ResponseWriter, r *http.Request) {
	t, subtype, ok := h.paletteRequest(w, r)
	if !ok {
		return
	}
	sel := h.engine.Selection().Hover(r.Context(), t, subtype)
	h.writeJSON(w, selection.ViewOf(sel), http.StatusOK)
}

// Unhover ends a hover preview
func (h *CanvasHandler) Unhover(w http.ResponseWriter, r *http.Request) {
	h.engine.Selection().Unhover()
	h.writeJSON(w, selection.ViewOf(h.engine.Selection().Current()), http.StatusOK)
}

// Pin keeps a palette preview until something else is selected
func (h *CanvasHandler) Pin(w http.ResponseWriter, r *http.Request) {
	t, subtype, ok := h.paletteRequest(w, r)
	if !ok {
		return
	}
	sel := h.engine.Selection().Pin(r.Context(), t, subtype)
	h.writeJSON(w, selection.ViewOf(sel), http.StatusOK)
}

// DragStart returns the payload a palette drag carries to the drop
func (h *CanvasHandler) DragStart(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.paletteRequest(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, h.engine.Selection().DragStart(r.Context(), t), http.StatusOK)
}

func (h *CanvasHandler) paletteRequest(w http.ResponseWriter, r *http.Request) (domain.ComponentType, string, bool) {
	var req PaletteRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	t, err := domain.ParseComponentType(req.Type)
	if err != nil {
		h.writeError(w, "Unknown component type", err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	return t, req.Subtype, true
}

// ============================================================================
// Prompts
// ============================================================================

// AnswerRequest resolves a prompt; Cancel dismisses it
type AnswerRequest struct {
	Value  string `json:"value"`
	Cancel bool   `json:"cancel,omitempty"`
}

// ListPrompts returns the open prompts, oldest first
func (h *CanvasHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.prompts.Pending(), http.StatusOK)
}

// AnswerPrompt answers or cancels an open prompt
func (h *CanvasHandler) AnswerPrompt(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	if req.Cancel {
		err = h.prompts.Cancel(id)
	} else {
		err = h.prompts.Answer(id, req.Value)
	}

	switch {
	case errors.Is(err, confirm.ErrPromptNotFound):
		h.writeError(w, "Prompt not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, confirm.ErrInvalidChoice):
		h.writeError(w, "Invalid choice", err.Error(), http.StatusUnprocessableEntity)
	case err != nil:
		h.writeError(w, "Failed to answer prompt", err.Error(), http.StatusInternalServerError)
	default:
		h.writeJSON(w, map[string]string{"status": "resolved"}, http.StatusOK)
	}
}

// ============================================================================
// Architecture
// ============================================================================

// EvaluateArchitecture returns the service's report for the architecture
func (h *CanvasHandler) EvaluateArchitecture(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.EvaluateArchitecture(r.Context())
	if err != nil {
		h.writeWorkflowError(w, "Failed to evaluate architecture", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// ValidateArchitecture returns the architecture's rule violations
func (h *CanvasHandler) ValidateArchitecture(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.ValidateArchitecture(r.Context())
	if err != nil {
		h.writeWorkflowError(w, "Failed to validate architecture", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// ResetCanvas clears the canvas and starts a new architecture
func (h *CanvasHandler) ResetCanvas(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetCanvas(r.Context()); err != nil {
		h.writeWorkflowError(w, "Failed to reset canvas", err)
		return
	}
	h.writeJSON(w, h.engine.Snapshot(), http.StatusOK)
}

// ============================================================================
// Helpers
// ============================================================================

func formatParam(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	return "json"
}

func contentType(format string) string {
	switch {
	case strings.HasSuffix(format, ".zst"):
		return "application/zstd"
	case format == "yaml":
		return "application/yaml"
	default:
		return "application/json"
	}
}
