package selection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

type fakeHeuristics struct {
	calls int
	err   error
}

func (f *fakeHeuristics) GetSubtypeHeuristics(ctx context.Context, t domain.ComponentType, subtype string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"latency":` + `1}`), nil
}

type fakeSubtypes map[domain.ComponentType][]domain.SubtypeOption

func (f fakeSubtypes) SubtypeOptions(ctx context.Context, t domain.ComponentType) ([]domain.SubtypeOption, error) {
	opts, ok := f[t]
	if !ok {
		return nil, errors.New("unavailable")
	}
	return opts, nil
}

func TestState_RealSelectionClearsPreview(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		apply  func(s *State)
		want   Selection
	}{
		{"node", func(s *State) { s.SelectNode("n1") }, Node{LocalID: "n1"}},
		{"edge", func(s *State) { s.SelectEdge("e1") }, Edge{LocalID: "e1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s1", nil, nil, nil, nil)
			s.Pin(ctx, domain.ComponentCache, "DISTRIBUTED")
			if s.Current().Kind() != KindPreview {
				t.Fatalf("expected pinned preview, got %s", s.Current().Kind())
			}

			tt.apply(s)
			if diff := cmp.Diff(tt.want, s.Current()); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestState_HoverPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("hover on empty shows preview", func(t *testing.T) {
		s := New("s1", nil, nil, nil, nil)
		got := s.Hover(ctx, domain.ComponentDatabase, "SQL")
		want := Preview{Type: domain.ComponentDatabase, Subtype: "SQL"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("preview mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hover does not displace real selection", func(t *testing.T) {
		s := New("s1", nil, nil, nil, nil)
		s.SelectNode("n1")
		s.Hover(ctx, domain.ComponentDatabase, "SQL")
		if s.Current() != (Node{LocalID: "n1"}) {
			t.Errorf("expected node to stay selected, got %#v", s.Current())
		}
	})

	t.Run("hover does not displace pinned preview", func(t *testing.T) {
		s := New("s1", nil, nil, nil, nil)
		s.Pin(ctx, domain.ComponentCache, "LOCAL")
		s.Hover(ctx, domain.ComponentQueue, "KAFKA")
		p, ok := s.Current().(Preview)
		if !ok || p.Type != domain.ComponentCache || !p.Pinned {
			t.Errorf("expected pinned cache preview, got %#v", s.Current())
		}
	})

	t.Run("unhover clears only unpinned", func(t *testing.T) {
		s := New("s1", nil, nil, nil, nil)
		s.Hover(ctx, domain.ComponentQueue, "KAFKA")
		s.Unhover()
		if s.Current().Kind() != KindNone {
			t.Errorf("expected none after unhover, got %s", s.Current().Kind())
		}

		s.Pin(ctx, domain.ComponentQueue, "KAFKA")
		s.Unhover()
		if s.Current().Kind() != KindPreview {
			t.Errorf("expected pinned preview to survive unhover, got %s", s.Current().Kind())
		}
	})
}

func TestState_PreviewHeuristics(t *testing.T) {
	ctx := context.Background()

	h := &fakeHeuristics{}
	s := New("s1", nil, h, nil, nil)
	got := s.Pin(ctx, domain.ComponentCache, "DISTRIBUTED")
	p, ok := got.(Preview)
	if !ok {
		t.Fatalf("expected preview, got %#v", got)
	}
	if string(p.Heuristics) != `{"latency":1}` {
		t.Errorf("unexpected heuristics: %s", p.Heuristics)
	}

	failing := &fakeHeuristics{err: errors.New("boom")}
	s = New("s1", nil, failing, nil, nil)
	got = s.Hover(ctx, domain.ComponentCache, "LOCAL")
	p = got.(Preview)
	if p.Heuristics != nil || p.Subtype != "LOCAL" {
		t.Errorf("expected preview without heuristics, got %#v", p)
	}

	s.Hover(ctx, domain.ComponentClient, "")
	if failing.calls != 1 {
		t.Errorf("expected no fetch without a subtype, got %d calls", failing.calls)
	}
}

func TestState_DragStart(t *testing.T) {
	ctx := context.Background()
	subtypes := fakeSubtypes{
		domain.ComponentCache:  {{ID: "IN_MEMORY"}, {ID: "DISTRIBUTED"}},
		domain.ComponentClient: nil,
	}

	tests := []struct {
		name  string
		setup func(s *State)
		drag  domain.ComponentType
		want  DragPayload
	}{
		{
			name:  "pinned subtype",
			setup: func(s *State) { s.Pin(ctx, domain.ComponentCache, "DISTRIBUTED") },
			drag:  domain.ComponentCache,
			want:  DragPayload{Type: domain.ComponentCache, Subtype: "DISTRIBUTED"},
		},
		{
			name:  "first available",
			setup: func(s *State) {},
			drag:  domain.ComponentCache,
			want:  DragPayload{Type: domain.ComponentCache, Subtype: "IN_MEMORY"},
		},
		{
			name:  "pin of another type ignored",
			setup: func(s *State) { s.Pin(ctx, domain.ComponentQueue, "KAFKA") },
			drag:  domain.ComponentCache,
			want:  DragPayload{Type: domain.ComponentCache, Subtype: "IN_MEMORY"},
		},
		{
			name:  "hovered preview not captured",
			setup: func(s *State) { s.Hover(ctx, domain.ComponentCache, "DISTRIBUTED") },
			drag:  domain.ComponentCache,
			want:  DragPayload{Type: domain.ComponentCache, Subtype: "IN_MEMORY"},
		},
		{
			name:  "type without subtypes",
			setup: func(s *State) {},
			drag:  domain.ComponentClient,
			want:  DragPayload{Type: domain.ComponentClient},
		},
		{
			name:  "lookup failure",
			setup: func(s *State) {},
			drag:  domain.ComponentStorage,
			want:  DragPayload{Type: domain.ComponentStorage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s1", nil, nil, subtypes, nil)
			tt.setup(s)
			if diff := cmp.Diff(tt.want, s.DragStart(ctx, tt.drag)); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestState_ForgetAndEvents(t *testing.T) {
	bus := notify.NewEventBus()
	events := make(chan notify.Event, 8)
	bus.Subscribe(events)

	s := New("s1", bus, nil, nil, nil)
	s.SelectEdge("e1")
	s.Forget("other")
	if s.Current() != (Edge{LocalID: "e1"}) {
		t.Errorf("unrelated forget cleared selection: %#v", s.Current())
	}
	s.Forget("e1")
	if s.Current().Kind() != KindNone {
		t.Errorf("expected none, got %s", s.Current().Kind())
	}

	want := []View{
		{Kind: KindEdge, EdgeID: "e1"},
		{Kind: KindNone},
	}
	for i, w := range want {
		ev := <-events
		if ev.Type != notify.EventSelection {
			t.Errorf("event %d: expected selection event, got %s", i, ev.Type)
		}
		if diff := cmp.Diff(w, ev.Payload); diff != "" {
			t.Errorf("event %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}
