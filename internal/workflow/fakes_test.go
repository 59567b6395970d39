package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/remote"
)

// fakeRemote is a scripted graph service
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	subtypes     map[domain.ComponentType][]domain.SubtypeOption
	subtypesErr  error
	subtypeHook  func()
	subtypeCalls int

	createComponentErr error
	lastCreate         remote.ComponentRequest
	nextComponent      int

	updateErr error

	suggest    []domain.LinkType
	suggestErr error

	validate    *remote.ValidationResponse
	validateErr error

	linkID         string
	createLinkErr  error
	createLinkHook func()
	nextLink      int

	deleteComponentErr error
	deleteLinkErr      error
	deleteLinkErrs     map[string]error
	deletedLinks       []string

	linkTypes    []domain.LinkType
	linkTypesErr error

	architectureErr error
	attachErr       error

	evaluation    json.RawMessage
	validation    *domain.ValidationReport
	evaluationErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		subtypes: map[domain.ComponentType][]domain.SubtypeOption{},
		validate: &remote.ValidationResponse{Valid: true},
	}
}

func (f *fakeRemote) record(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return &remote.Error{Op: call, Err: err}
	}
	return nil
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeRemote) CreateComponent(ctx context.Context, t domain.ComponentType, name string, props map[string]any) (*remote.Component, error) {
	if err := f.record(ctx, "createComponent"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreate = remote.ComponentRequest{Type: string(t), Name: name, Properties: props}
	if f.createComponentErr != nil {
		return nil, f.createComponentErr
	}
	f.nextComponent++
	return &remote.Component{
		ID:         fmt.Sprintf("comp-%d", f.nextComponent),
		Name:       name,
		Type:       string(t),
		Heuristics: json.RawMessage(`{"scores":{"latency":5}}`),
	}, nil
}

func (f *fakeRemote) UpdateComponent(ctx context.Context, id string, t domain.ComponentType, name string, props map[string]any) (*remote.Component, error) {
	if err := f.record(ctx, "updateComponent"); err != nil {
		return nil, err
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &remote.Component{ID: id, Name: name, Type: string(t)}, nil
}

func (f *fakeRemote) DeleteComponent(ctx context.Context, id string) error {
	if err := f.record(ctx, "deleteComponent"); err != nil {
		return err
	}
	return f.deleteComponentErr
}

func (f *fakeRemote) GetSubtypes(ctx context.Context, t domain.ComponentType) ([]domain.SubtypeOption, error) {
	if err := f.record(ctx, "getSubtypes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.subtypeCalls++
	hook := f.subtypeHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.subtypesErr != nil {
		return nil, f.subtypesErr
	}
	return f.subtypes[t], nil
}

func (f *fakeRemote) GetSubtypeHeuristics(ctx context.Context, t domain.ComponentType, subtype string) (json.RawMessage, error) {
	if err := f.record(ctx, "getSubtypeHeuristics"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"throughput":3}`), nil
}

func (f *fakeRemote) SuggestLinkTypes(ctx context.Context, sourceID, targetID string) ([]domain.LinkType, error) {
	if err := f.record(ctx, "suggestLinkTypes"); err != nil {
		return nil, err
	}
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return append([]domain.LinkType(nil), f.suggest...), nil
}

func (f *fakeRemote) ValidateLink(ctx context.Context, sourceID, targetID string, lt domain.LinkType) (*remote.ValidationResponse, error) {
	if err := f.record(ctx, "validateLink"); err != nil {
		return nil, err
	}
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	v := *f.validate
	return &v, nil
}

func (f *fakeRemote) CreateLink(ctx context.Context, sourceID, targetID string, lt domain.LinkType) (*remote.Link, error) {
	if err := f.record(ctx, "createLink"); err != nil {
		return nil, err
	}
	if f.createLinkHook != nil {
		f.createLinkHook()
	}
	if f.createLinkErr != nil {
		return nil, f.createLinkErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLink++
	id := f.linkID
	if id == "" {
		id = fmt.Sprintf("link-%d", f.nextLink)
	}
	return &remote.Link{ID: id, Heuristics: json.RawMessage(`{"scores":{"cost":2}}`)}, nil
}

func (f *fakeRemote) DeleteLink(ctx context.Context, id string) error {
	if err := f.record(ctx, "deleteLink"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteLinkErrs[id]; err != nil {
		return err
	}
	if f.deleteLinkErr != nil {
		return f.deleteLinkErr
	}
	f.deletedLinks = append(f.deletedLinks, id)
	return nil
}

func (f *fakeRemote) GetLinkTypes(ctx context.Context) ([]domain.LinkType, error) {
	if err := f.record(ctx, "getLinkTypes"); err != nil {
		return nil, err
	}
	return f.linkTypes, f.linkTypesErr
}

func (f *fakeRemote) CreateArchitecture(ctx context.Context, name string) (*domain.Architecture, error) {
	if err := f.record(ctx, "createArchitecture"); err != nil {
		return nil, err
	}
	if f.architectureErr != nil {
		return nil, f.architectureErr
	}
	return &domain.Architecture{ID: "arch-1", Name: name}, nil
}

func (f *fakeRemote) AttachComponent(ctx context.Context, architectureID, componentID string) error {
	if err := f.record(ctx, "attachComponent"); err != nil {
		return err
	}
	return f.attachErr
}

func (f *fakeRemote) AttachLink(ctx context.Context, architectureID, linkID string) error {
	if err := f.record(ctx, "attachLink"); err != nil {
		return err
	}
	return f.attachErr
}

func (f *fakeRemote) EvaluateArchitecture(ctx context.Context, architectureID string) (*domain.EvaluationReport, error) {
	if err := f.record(ctx, "evaluateArchitecture"); err != nil {
		return nil, err
	}
	if f.evaluationErr != nil {
		return nil, f.evaluationErr
	}
	return &domain.EvaluationReport{ArchitectureID: architectureID, Raw: f.evaluation}, nil
}

func (f *fakeRemote) ValidateArchitecture(ctx context.Context, architectureID string) (*domain.ValidationReport, error) {
	if err := f.record(ctx, "validateArchitecture"); err != nil {
		return nil, err
	}
	if f.validation == nil {
		return &domain.ValidationReport{Valid: true, Violations: []string{}}, nil
	}
	return f.validation, nil
}

// fakeSurface answers dialogs from a script
type fakeSurface struct {
	subtype        string
	subtypeErr     error
	subtypeCalls   int
	subtypeOptions []domain.SubtypeOption

	name        string
	nameErr     error
	nameCalls   int
	defaultName string

	linkType    domain.LinkType
	linkErr     error
	linkCalls   int
	linkOptions []domain.LinkType
	linkHook    func()
}

func (s *fakeSurface) ChooseSubtype(ctx context.Context, t domain.ComponentType, options []domain.SubtypeOption) (string, error) {
	s.subtypeCalls++
	s.subtypeOptions = options
	if s.subtypeErr != nil {
		return "", s.subtypeErr
	}
	if s.subtype == "" {
		return options[0].ID, nil
	}
	return s.subtype, nil
}

func (s *fakeSurface) EnterName(ctx context.Context, t domain.ComponentType, subtype, defaultName string) (string, error) {
	s.nameCalls++
	s.defaultName = defaultName
	if s.nameErr != nil {
		return "", s.nameErr
	}
	if s.name == "" {
		return defaultName, nil
	}
	return s.name, nil
}

func (s *fakeSurface) ChooseLinkType(ctx context.Context, options []domain.LinkType, sourceLabel, targetLabel string) (domain.LinkType, error) {
	s.linkCalls++
	s.linkOptions = options
	if s.linkHook != nil {
		s.linkHook()
	}
	if s.linkErr != nil {
		return "", s.linkErr
	}
	if s.linkType == "" {
		return options[0], nil
	}
	return s.linkType, nil
}

var _ confirm.Surface = (*fakeSurface)(nil)

var fixedNow = time.UnixMilli(1700000000000)

type harness struct {
	engine      *Engine
	remote      *fakeRemote
	surface     *fakeSurface
	rec         *notify.Recorder
	transitions []Transition
	mu          sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithSurface(t, &fakeSurface{})
}

func newHarnessWithSurface(t *testing.T, surface confirm.Surface) *harness {
	t.Helper()
	h := &harness{remote: newFakeRemote(), rec: &notify.Recorder{}}
	if fs, ok := surface.(*fakeSurface); ok {
		h.surface = fs
	}

	var ids atomic.Int64
	h.engine = New("session-1", h.remote, surface, Options{
		Sink:   h.rec,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return fixedNow },
		NewID:  func() string { return fmt.Sprintf("id-%d", ids.Add(1)) },
		Observer: func(tr Transition) {
			h.mu.Lock()
			h.transitions = append(h.transitions, tr)
			h.mu.Unlock()
		},
	})
	h.engine.Session().SetArchitecture(&domain.Architecture{ID: "arch-1", Name: "test"})
	return h
}

// addNode places a confirmed node directly in the store
func (h *harness) addNode(t *testing.T, localID, remoteID string, typ domain.ComponentType) *domain.ComponentNode {
	t.Helper()
	n := domain.NewComponentNode(localID, remoteID, typ, localID)
	if err := h.engine.store.InsertNode(n); err != nil {
		t.Fatalf("InsertNode(%s) failed: %v", localID, err)
	}
	return n
}

// addEdge places a confirmed edge directly in the store
func (h *harness) addEdge(t *testing.T, localID, remoteID, src, tgt string) {
	t.Helper()
	e := domain.NewConfirmedEdge(localID, remoteID, src, tgt, domain.LinkAPICall, nil)
	if err := h.engine.store.InsertEdge(e); err != nil {
		t.Fatalf("InsertEdge(%s) failed: %v", localID, err)
	}
}

// states returns the To states visited by workflow kind, in order
func (h *harness) states(kind domain.PendingKind) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, tr := range h.transitions {
		if tr.Workflow == kind {
			out = append(out, tr.To)
		}
	}
	return out
}

func (h *harness) onlyNotification(t *testing.T) notify.Notification {
	t.Helper()
	all := h.rec.All()
	if len(all) != 1 {
		t.Fatalf("expected exactly one notification, got %d: %+v", len(all), all)
	}
	return all[0]
}
