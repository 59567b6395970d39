package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"archcanvas/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("", 0)
	if client.BaseURL != DefaultBaseURL {
		t.Errorf("expected BaseURL %q, got %q", DefaultBaseURL, client.BaseURL)
	}
	if client.Timeout != DefaultTimeout {
		t.Errorf("expected Timeout %v, got %v", DefaultTimeout, client.Timeout)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient not initialized")
	}

	client = NewClient("http://graph.local/api/", time.Second)
	if client.BaseURL != "http://graph.local/api" {
		t.Errorf("trailing slash not trimmed: %q", client.BaseURL)
	}
}

func TestClient_CreateComponent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/components" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		var req ComponentRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Type != "DATABASE" || req.Name != "orders" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.Properties["subtype"] != "SQL" {
			t.Errorf("expected subtype property, got %v", req.Properties)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":         "c-1",
			"name":       "orders",
			"heuristics": map[string]any{"scores": map[string]int{"latency": 7}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	comp, err := client.CreateComponent(context.Background(), domain.ComponentDatabase, "orders", map[string]any{"subtype": "SQL"})
	if err != nil {
		t.Fatalf("CreateComponent failed: %v", err)
	}
	if comp.ID != "c-1" {
		t.Errorf("expected id c-1, got %q", comp.ID)
	}
	if len(comp.Heuristics) == 0 {
		t.Error("expected heuristics to be carried through")
	}
}

func TestClient_GetSubtypes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []domain.SubtypeOption
	}{
		{
			name: "bare array",
			body: `["SQL","NOSQL"]`,
			want: []domain.SubtypeOption{{ID: "SQL", Name: "SQL"}, {ID: "NOSQL", Name: "NOSQL"}},
		},
		{
			name: "envelope with mixed items",
			body: `{"subtypes":["SQL",{"id":"GRAPH","description":"graph store"}]}`,
			want: []domain.SubtypeOption{
				{ID: "SQL", Name: "SQL"},
				{ID: "GRAPH", Name: "GRAPH", Description: "graph store"},
			},
		},
		{
			name: "envelope with heuristics map",
			body: `{"subtypes":{"REDIS":{"latency":9},"MEMCACHED":null}}`,
			want: []domain.SubtypeOption{
				{ID: "MEMCACHED", Name: "MEMCACHED"},
				{ID: "REDIS", Name: "REDIS", Heuristics: json.RawMessage(`{"latency":9}`)},
			},
		},
		{
			name: "empty list",
			body: `{"subtypes":[]}`,
			want: []domain.SubtypeOption{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/components/subtypes/DATABASE" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			got, err := client.GetSubtypes(context.Background(), domain.ComponentDatabase)
			if err != nil {
				t.Fatalf("GetSubtypes failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("subtypes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClient_SuggestLinkTypes(t *testing.T) {
	t.Run("filters unknown types", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req LinkRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.SourceID != "a" || req.TargetID != "b" {
				t.Errorf("unexpected request: %+v", req)
			}
			w.Write([]byte(`{"validLinkTypes":["API_CALL","TELEPORT","stream"]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		got, err := client.SuggestLinkTypes(context.Background(), "a", "b")
		if err != nil {
			t.Fatalf("SuggestLinkTypes failed: %v", err)
		}
		want := []domain.LinkType{domain.LinkAPICall, domain.LinkStream}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("link types mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		_, err := client.SuggestLinkTypes(context.Background(), "a", "b")
		if !errors.Is(err, ErrMissingSuggestions) {
			t.Errorf("expected ErrMissingSuggestions, got %v", err)
		}
	})

	t.Run("empty list is not missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"validLinkTypes":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		got, err := client.SuggestLinkTypes(context.Background(), "a", "b")
		if err != nil {
			t.Fatalf("SuggestLinkTypes failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no suggestions, got %v", got)
		}
	})
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Cannot connect CLIENT to DATABASE"}`, "Cannot connect CLIENT to DATABASE"},
		{"message field", http.StatusConflict, `{"message":"duplicate link"}`, "duplicate link"},
		{"no body", http.StatusInternalServerError, ``, ""},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			_, err := client.CreateLink(context.Background(), "a", "b", domain.LinkAPICall)
			if err == nil {
				t.Fatal("expected error")
			}

			var re *Error
			if !errors.As(err, &re) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if re.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, re.Status)
			}
			if re.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, re.Message)
			}

			fallback := "Failed to create connection"
			want := tt.message
			if want == "" {
				want = fallback
			}
			if got := ServiceMessage(err, fallback); got != want {
				t.Errorf("ServiceMessage = %q, want %q", got, want)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, 20*time.Millisecond)
	err := client.DeleteComponent(context.Background(), "c-1")
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !re.Timeout() {
		t.Errorf("expected Timeout() to be true, got %v", err)
	}
}

func TestClient_ArchitectureFlow(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/architecture":
			w.Write([]byte(`{"id":"arch-1","name":"demo"}`))
		case "/architecture/arch-1/components", "/architecture/arch-1/links":
			w.WriteHeader(http.StatusNoContent)
		case "/architecture/evaluate":
			var req EvaluationRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.ArchitectureID != "arch-1" {
				t.Errorf("unexpected evaluation request: %+v", req)
			}
			w.Write([]byte(`{"score":0.8}`))
		case "/architecture/arch-1/validate":
			w.Write([]byte(`{"valid":true}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL, time.Second)

	arch, err := client.CreateArchitecture(ctx, "demo")
	if err != nil {
		t.Fatalf("CreateArchitecture failed: %v", err)
	}
	if arch.ID != "arch-1" {
		t.Errorf("expected arch-1, got %q", arch.ID)
	}
	if err := client.AttachComponent(ctx, arch.ID, "c-1"); err != nil {
		t.Errorf("AttachComponent failed: %v", err)
	}
	if err := client.AttachLink(ctx, arch.ID, "l-1"); err != nil {
		t.Errorf("AttachLink failed: %v", err)
	}

	report, err := client.EvaluateArchitecture(ctx, arch.ID)
	if err != nil {
		t.Fatalf("EvaluateArchitecture failed: %v", err)
	}
	if string(report.Raw) != `{"score":0.8}` {
		t.Errorf("unexpected report: %s", report.Raw)
	}

	validation, err := client.ValidateArchitecture(ctx, arch.ID)
	if err != nil {
		t.Fatalf("ValidateArchitecture failed: %v", err)
	}
	if !validation.Valid || validation.Violations == nil {
		t.Errorf("unexpected validation: %+v", validation)
	}

	want := []string{
		"POST /architecture",
		"POST /architecture/arch-1/components",
		"POST /architecture/arch-1/links",
		"POST /architecture/evaluate",
		"POST /architecture/arch-1/validate",
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
