package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/remote"
	"archcanvas/internal/selection"
	"archcanvas/internal/workflow"
)

// ============================================================================
// Fake graph service
// ============================================================================

type fakeGraphService struct {
	mu          sync.Mutex
	next        int
	suggestions []string
	valid       bool
	calls       []string
}

func (f *fakeGraphService) id(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakeGraphService) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeGraphService) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.record(req)
			next.ServeHTTP(w, req)
		})
	})
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	r.Post("/components", func(w http.ResponseWriter, req *http.Request) {
		var body remote.ComponentRequest
		json.NewDecoder(req.Body).Decode(&body)
		reply(w, remote.Component{ID: f.id("c"), Name: body.Name, Type: body.Type})
	})
	r.Put("/components/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body remote.ComponentRequest
		json.NewDecoder(req.Body).Decode(&body)
		reply(w, remote.Component{ID: chi.URLParam(req, "id"), Name: body.Name})
	})
	r.Delete("/components/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/components/subtypes/{type}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "type") == "CACHE" {
			reply(w, map[string]any{"subtypes": []string{"DISTRIBUTED", "IN_MEMORY"}})
			return
		}
		reply(w, []string{})
	})
	r.Get("/components/subtypes/{type}/{subtype}/heuristics", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]int{"latency": 3})
	})
	r.Post("/links/suggest", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, map[string]any{"validLinkTypes": f.suggestions})
	})
	r.Post("/links/validate", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.valid {
			reply(w, remote.ValidationResponse{Valid: true})
			return
		}
		reply(w, remote.ValidationResponse{Valid: false, Message: "Clients cannot stream into queues"})
	})
	r.Post("/links", func(w http.ResponseWriter, req *http.Request) {
		reply(w, remote.Link{ID: f.id("l")})
	})
	r.Delete("/links/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/links/types", func(w http.ResponseWriter, req *http.Request) {
		reply(w, []string{"API_CALL", "STREAM"})
	})
	r.Post("/architecture", func(w http.ResponseWriter, req *http.Request) {
		var body remote.ArchitectureRequest
		json.NewDecoder(req.Body).Decode(&body)
		reply(w, domain.Architecture{ID: "arch-1", Name: body.Name})
	})
	r.Post("/architecture/evaluate", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]int{"score": 80})
	})
	r.Post("/architecture/{id}/components", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/architecture/{id}/links", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/architecture/{id}/validate", func(w http.ResponseWriter, req *http.Request) {
		reply(w, domain.ValidationReport{Valid: false, Violations: []string{"orphan cache", "cycle"}})
	})
	return r
}

// ============================================================================
// Harness
// ============================================================================

type testEnv struct {
	api      *httptest.Server
	graph    *fakeGraphService
	engine   *workflow.Engine
	prompts  *confirm.Broker
	recorder *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	graph := &fakeGraphService{suggestions: []string{"API_CALL"}, valid: true}
	graphSrv := httptest.NewServer(graph.routes())
	t.Cleanup(graphSrv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := &notify.Recorder{}
	prompts := confirm.NewBroker("s1", nil)
	engine := workflow.New("s1", remote.NewClient(graphSrv.URL, 2*time.Second), prompts, workflow.Options{
		SubtypeTypes: []domain.ComponentType{domain.ComponentCache},
		Sink:         recorder,
		Logger:       logger,
	})
	if err := engine.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	api := httptest.NewServer(NewCanvasHandler(engine, prompts).Routes(nil))
	t.Cleanup(api.Close)

	return &testEnv{api: api, graph: graph, engine: engine, prompts: prompts, recorder: recorder}
}

// do sends a JSON request and decodes a JSON response into out when non-nil
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.api.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// restore loads two components into the session
func (e *testEnv) restore(t *testing.T) {
	t.Helper()
	canvas := domain.NewCanvas("s1")
	client := domain.NewComponentNode("n1", "c-100", domain.ComponentClient, "Browser")
	api := domain.NewComponentNode("n2", "c-200", domain.ComponentAPIService, "Orders")
	canvas.AddNode(client)
	canvas.AddNode(api)
	if status := e.do(t, http.MethodPost, "/api/canvas/import", canvas, nil); status != http.StatusOK {
		t.Fatalf("import status = %d", status)
	}
}

// waitPrompt waits for an open prompt of the given kind
func (e *testEnv) waitPrompt(t *testing.T, kind confirm.PromptKind) confirm.Prompt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var prompts []confirm.Prompt
		e.do(t, http.MethodGet, "/api/prompts", nil, &prompts)
		for _, p := range prompts {
			if p.Kind == kind {
				return p
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s prompt opened", kind)
	return confirm.Prompt{}
}

type result struct {
	status int
	node   domain.ComponentNode
	err    ErrorResponse
}

// dropAsync starts a drop and returns a channel with its response
func (e *testEnv) dropAsync(t *testing.T, req DropRequest) <-chan result {
	ch := make(chan result, 1)
	go func() {
		data, _ := json.Marshal(req)
		resp, err := http.Post(e.api.URL+"/api/components", "application/json", bytes.NewReader(data))
		if err != nil {
			ch <- result{status: -1}
			return
		}
		defer resp.Body.Close()
		res := result{status: resp.StatusCode}
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusCreated {
			json.Unmarshal(body, &res.node)
		} else if len(body) > 0 {
			json.Unmarshal(body, &res.err)
		}
		ch <- res
	}()
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("request did not finish")
		return result{}
	}
}

// ============================================================================
// Component Tests
// ============================================================================

func TestDropComponent(t *testing.T) {
	env := newTestEnv(t)

	done := env.dropAsync(t, DropRequest{Type: "cache", Position: domain.Position{X: 40, Y: 80}})

	subtype := env.waitPrompt(t, confirm.PromptSubtype)
	if len(subtype.Options) != 2 {
		t.Fatalf("subtype options = %+v, want 2", subtype.Options)
	}
	if status := env.do(t, http.MethodPost, "/api/prompts/"+subtype.ID, AnswerRequest{Value: "DISTRIBUTED"}, nil); status != http.StatusOK {
		t.Fatalf("answer subtype status = %d", status)
	}

	name := env.waitPrompt(t, confirm.PromptName)
	env.do(t, http.MethodPost, "/api/prompts/"+name.ID, AnswerRequest{Value: "Sessions"}, nil)

	res := await(t, done)
	if res.status != http.StatusCreated {
		t.Fatalf("drop status = %d (%+v)", res.status, res.err)
	}
	if res.node.DisplayName != "Sessions" || res.node.Subtype != "DISTRIBUTED" || res.node.RemoteID == "" {
		t.Errorf("node = %+v", res.node)
	}
	if res.node.Position != (domain.Position{X: 40, Y: 80}) {
		t.Errorf("Position = %+v", res.node.Position)
	}

	var canvas domain.Canvas
	env.do(t, http.MethodGet, "/api/canvas", nil, &canvas)
	if len(canvas.Nodes) != 1 {
		t.Errorf("canvas nodes = %d, want 1", len(canvas.Nodes))
	}
	if last, _ := env.recorder.Last(); last.Level != notify.LevelSuccess {
		t.Errorf("last notification = %+v", last)
	}
}

func TestDropComponentCancelled(t *testing.T) {
	env := newTestEnv(t)

	done := env.dropAsync(t, DropRequest{Type: "QUEUE"})
	name := env.waitPrompt(t, confirm.PromptName)
	env.do(t, http.MethodPost, "/api/prompts/"+name.ID, AnswerRequest{Cancel: true}, nil)

	res := await(t, done)
	if res.status != http.StatusNoContent {
		t.Fatalf("cancelled drop status = %d, want 204", res.status)
	}
	if n := len(env.engine.Canvas().Nodes()); n != 0 {
		t.Errorf("canvas nodes = %d, want 0", n)
	}
	if last, _ := env.recorder.Last(); last.Message != "Component creation cancelled" {
		t.Errorf("last notification = %q", last.Message)
	}
}

func TestDropComponentInvalid(t *testing.T) {
	env := newTestEnv(t)

	var errResp ErrorResponse
	if status := env.do(t, http.MethodPost, "/api/components", DropRequest{Type: "MAINFRAME"}, &errResp); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if errResp.Error != "Failed to add component" {
		t.Errorf("error = %q", errResp.Error)
	}

	if status := env.do(t, http.MethodPost, "/api/components", map[string]string{"kind": "CACHE"}, nil); status != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", status)
	}
}

func TestEditComponent(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)

	var node domain.ComponentNode
	if status := env.do(t, http.MethodPatch, "/api/components/n2", RenameRequest{Name: "Checkout API"}, &node); status != http.StatusOK {
		t.Fatalf("rename status = %d", status)
	}
	if node.Label() != "Checkout API" {
		t.Errorf("Label() = %q", node.Label())
	}

	if status := env.do(t, http.MethodPatch, "/api/components/n2", RenameRequest{Name: "  "}, nil); status != http.StatusBadRequest {
		t.Errorf("blank rename status = %d, want 400", status)
	}

	if status := env.do(t, http.MethodPut, "/api/components/n2/position", domain.Position{X: 5, Y: 6}, &node); status != http.StatusOK {
		t.Fatalf("move status = %d", status)
	}
	if node.Position != (domain.Position{X: 5, Y: 6}) {
		t.Errorf("Position = %+v", node.Position)
	}

	if status := env.do(t, http.MethodDelete, "/api/components/n2", nil, nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status := env.do(t, http.MethodDelete, "/api/components/n2", nil, nil); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
}

// ============================================================================
// Link Tests
// ============================================================================

func TestConnectSingleSuggestion(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)

	var edge domain.LinkEdge
	status := env.do(t, http.MethodPost, "/api/links", domain.ConnectionParams{Source: "n1", Target: "n2"}, &edge)
	if status != http.StatusCreated {
		t.Fatalf("connect status = %d", status)
	}
	if edge.LinkType != domain.LinkAPICall || edge.Optimistic || edge.RemoteID == "" {
		t.Errorf("edge = %+v", edge)
	}
	if len(env.prompts.Pending()) != 0 {
		t.Error("a single suggestion should not prompt")
	}

	if status := env.do(t, http.MethodDelete, "/api/links/"+edge.LocalID, nil, nil); status != http.StatusOK {
		t.Errorf("delete link status = %d", status)
	}
}

func TestConnectRejected(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)
	env.graph.mu.Lock()
	env.graph.valid = false
	env.graph.mu.Unlock()

	var errResp ErrorResponse
	status := env.do(t, http.MethodPost, "/api/links", domain.ConnectionParams{Source: "n1", Target: "n2"}, &errResp)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
	if !strings.Contains(errResp.Details, "Clients cannot stream into queues") {
		t.Errorf("details = %q", errResp.Details)
	}
	if n := len(env.engine.Canvas().Edges()); n != 0 {
		t.Errorf("edges = %d, want 0", n)
	}
}

func TestConnectValidation(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)

	if status := env.do(t, http.MethodPost, "/api/links", domain.ConnectionParams{Source: "n1"}, nil); status != http.StatusBadRequest {
		t.Errorf("missing target status = %d, want 400", status)
	}
	if status := env.do(t, http.MethodPost, "/api/links", domain.ConnectionParams{Source: "n1", Target: "gone"}, nil); status != http.StatusNotFound {
		t.Errorf("stale target status = %d, want 404", status)
	}
	if status := env.do(t, http.MethodDelete, "/api/links/nope", nil, nil); status != http.StatusNotFound {
		t.Errorf("delete unknown link status = %d, want 404", status)
	}
}

// ============================================================================
// Selection Tests
// ============================================================================

func TestSelectionAndPalette(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)

	var view selection.View
	env.do(t, http.MethodPost, "/api/selection/node/n1", nil, &view)
	if view.Kind != selection.KindNode || view.NodeID != "n1" {
		t.Fatalf("view = %+v", view)
	}

	// Hover does not displace a real selection
	env.do(t, http.MethodPost, "/api/palette/hover", PaletteRequest{Type: "CACHE", Subtype: "DISTRIBUTED"}, &view)
	if view.Kind != selection.KindNode {
		t.Errorf("hover replaced node selection: %+v", view)
	}

	env.do(t, http.MethodDelete, "/api/selection", nil, &view)
	env.do(t, http.MethodPost, "/api/palette/hover", PaletteRequest{Type: "CACHE", Subtype: "DISTRIBUTED"}, &view)
	if view.Kind != selection.KindPreview || view.Preview == nil || len(view.Preview.Heuristics) == 0 {
		t.Fatalf("hover view = %+v", view)
	}

	env.do(t, http.MethodDelete, "/api/palette/hover", nil, &view)
	if view.Kind != selection.KindNone {
		t.Errorf("after unhover view = %+v", view)
	}

	var payload selection.DragPayload
	env.do(t, http.MethodPost, "/api/palette/drag", PaletteRequest{Type: "CACHE"}, &payload)
	if payload.Type != domain.ComponentCache || payload.Subtype != "DISTRIBUTED" {
		t.Errorf("drag payload = %+v", payload)
	}

	if status := env.do(t, http.MethodPost, "/api/selection/edge/none", nil, nil); status != http.StatusNotFound {
		t.Errorf("select unknown edge status = %d, want 404", status)
	}
	if status := env.do(t, http.MethodPost, "/api/palette/pin", PaletteRequest{Type: "MAINFRAME"}, nil); status != http.StatusBadRequest {
		t.Errorf("pin unknown type status = %d, want 400", status)
	}
}

func TestPalette(t *testing.T) {
	env := newTestEnv(t)

	var entries []PaletteEntry
	env.do(t, http.MethodGet, "/api/palette", nil, &entries)
	if len(entries) != len(domain.ComponentTypes) {
		t.Fatalf("entries = %d", len(entries))
	}
	for _, e := range entries {
		if want := e.Type == domain.ComponentCache; e.HasSubtypes != want {
			t.Errorf("%s HasSubtypes = %v, want %v", e.Type, e.HasSubtypes, want)
		}
	}

	var options []domain.SubtypeOption
	env.do(t, http.MethodGet, "/api/palette/cache/subtypes", nil, &options)
	if len(options) != 2 {
		t.Errorf("cache subtypes = %+v", options)
	}
	env.do(t, http.MethodGet, "/api/palette/QUEUE/subtypes", nil, &options)
	if len(options) != 0 {
		t.Errorf("queue subtypes = %+v", options)
	}
}

// ============================================================================
// Prompt, Architecture and Canvas Tests
// ============================================================================

func TestAnswerPromptErrors(t *testing.T) {
	env := newTestEnv(t)

	if status := env.do(t, http.MethodPost, "/api/prompts/missing", AnswerRequest{Value: "x"}, nil); status != http.StatusNotFound {
		t.Errorf("unknown prompt status = %d, want 404", status)
	}

	done := env.dropAsync(t, DropRequest{Type: "CACHE"})
	p := env.waitPrompt(t, confirm.PromptSubtype)
	if status := env.do(t, http.MethodPost, "/api/prompts/"+p.ID, AnswerRequest{Value: "ON_DISK"}, nil); status != http.StatusUnprocessableEntity {
		t.Errorf("invalid choice status = %d, want 422", status)
	}
	env.do(t, http.MethodPost, "/api/prompts/"+p.ID, AnswerRequest{Cancel: true}, nil)
	await(t, done)
}

func TestArchitectureRoutes(t *testing.T) {
	env := newTestEnv(t)

	var report domain.ValidationReport
	if status := env.do(t, http.MethodPost, "/api/architecture/validate", nil, &report); status != http.StatusOK {
		t.Fatalf("validate status = %d", status)
	}
	if report.Valid || len(report.Violations) != 2 {
		t.Errorf("report = %+v", report)
	}
	if last, _ := env.recorder.Last(); last.Message != "Architecture has 2 violations" {
		t.Errorf("last notification = %q", last.Message)
	}

	var eval domain.EvaluationReport
	if status := env.do(t, http.MethodPost, "/api/architecture/evaluate", nil, &eval); status != http.StatusOK {
		t.Fatalf("evaluate status = %d", status)
	}
	if eval.ArchitectureID != "arch-1" {
		t.Errorf("ArchitectureID = %q", eval.ArchitectureID)
	}

	env.restore(t)
	var canvas domain.Canvas
	if status := env.do(t, http.MethodPost, "/api/architecture/reset", nil, &canvas); status != http.StatusOK {
		t.Fatalf("reset status = %d", status)
	}
	if len(canvas.Nodes) != 0 || canvas.Architecture == nil {
		t.Errorf("reset canvas = %+v", canvas)
	}
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.restore(t)

	resp, err := http.Get(env.api.URL + "/api/canvas/export?format=yaml")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type = %s", ct)
	}
	if !strings.Contains(string(body), "name: Orders") {
		t.Errorf("export body:\n%s", body)
	}

	// Importing into a non-empty canvas conflicts
	resp, err = http.Post(env.api.URL+"/api/canvas/import?format=yaml", "application/yaml", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("import status = %d, want 409", resp.StatusCode)
	}

	if status := env.do(t, http.MethodGet, "/api/canvas/export?format=xml", nil, nil); status != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", status)
	}
}

func TestNotificationsRoute(t *testing.T) {
	env := newTestEnv(t)

	if status := env.do(t, http.MethodGet, "/api/notifications", nil, nil); status != http.StatusNotFound {
		t.Errorf("status without journal = %d, want 404", status)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", workflow.ErrInvalidInput, http.StatusBadRequest},
		{"stale", workflow.ErrStaleReference, http.StatusNotFound},
		{"no architecture", workflow.ErrNoArchitecture, http.StatusConflict},
		{"optimistic", workflow.ErrOptimisticEdge, http.StatusConflict},
		{"rejection", &workflow.RejectionError{Message: "no"}, http.StatusUnprocessableEntity},
		{"no candidates", workflow.ErrNoCandidates, http.StatusUnprocessableEntity},
		{"remote", &remote.Error{Op: "create link", Status: 500, Message: "boom"}, http.StatusBadGateway},
		{"timeout", &remote.Error{Op: "create link", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(workflow.Classify(tt.err), tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
