// Package remote provides the client for the remote graph service that owns
// components, links and architectures.
//
// The client is a pure I/O boundary: it issues one request per operation,
// bounds each call with a timeout, and normalizes loosely shaped payloads
// before returning them. It makes no workflow decisions.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archcanvas/internal/domain"
)

// DefaultBaseURL is the graph service address used when none is configured
const DefaultBaseURL = "http://localhost:8080/api"

// DefaultTimeout bounds a single remote call
const DefaultTimeout = 10 * time.Second

// Client communicates with the remote graph service
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient creates a client for the service at baseURL. A zero timeout
// selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    timeout,
	}
}

// --- Components ---

// CreateComponent creates a component and returns it with its heuristics
func (c *Client) CreateComponent(ctx context.Context, componentType domain.ComponentType, name string, properties map[string]any) (*Component, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	req := ComponentRequest{Type: string(componentType), Name: name, Properties: properties}

	var out Component
	if err := c.do(ctx, "create component", http.MethodPost, "/components", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComponent renames a component or replaces its properties
func (c *Client) UpdateComponent(ctx context.Context, id string, componentType domain.ComponentType, name string, properties map[string]any) (*Component, error) {
	req := ComponentRequest{Type: string(componentType), Name: name, Properties: properties}

	var out Component
	if err := c.do(ctx, "update component", http.MethodPut, "/components/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComponent deletes a component
func (c *Client) DeleteComponent(ctx context.Context, id string) error {
	return c.do(ctx, "delete component", http.MethodDelete, "/components/"+url.PathEscape(id), nil, nil)
}

// GetSubtypes lists the subtypes available for a component type
func (c *Client) GetSubtypes(ctx context.Context, componentType domain.ComponentType) ([]domain.SubtypeOption, error) {
	var raw json.RawMessage
	path := "/components/subtypes/" + url.PathEscape(string(componentType))
	if err := c.do(ctx, "get subtypes", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	opts, err := decodeSubtypes(raw)
	if err != nil {
		return nil, &Error{Op: "get subtypes", Err: err}
	}
	return opts, nil
}

// GetSubtypeHeuristics fetches the heuristics of one subtype
func (c *Client) GetSubtypeHeuristics(ctx context.Context, componentType domain.ComponentType, subtype string) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/components/subtypes/%s/%s/heuristics",
		url.PathEscape(string(componentType)), url.PathEscape(subtype))
	if err := c.do(ctx, "get subtype heuristics", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// --- Links ---

// SuggestLinkTypes asks which link types may join source to target
func (c *Client) SuggestLinkTypes(ctx context.Context, sourceID, targetID string) ([]domain.LinkType, error) {
	var out SuggestionResponse
	req := LinkRequest{SourceID: sourceID, TargetID: targetID}
	if err := c.do(ctx, "suggest link types", http.MethodPost, "/links/suggest", req, &out); err != nil {
		return nil, err
	}
	if out.ValidLinkTypes == nil {
		return nil, &Error{Op: "suggest link types", Err: ErrMissingSuggestions}
	}
	return toLinkTypes(*out.ValidLinkTypes), nil
}

// ValidateLink asks whether a link of the given type is allowed
func (c *Client) ValidateLink(ctx context.Context, sourceID, targetID string, linkType domain.LinkType) (*ValidationResponse, error) {
	var out ValidationResponse
	req := LinkRequest{SourceID: sourceID, TargetID: targetID, LinkType: string(linkType)}
	if err := c.do(ctx, "validate link", http.MethodPost, "/links/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLink creates a link
func (c *Client) CreateLink(ctx context.Context, sourceID, targetID string, linkType domain.LinkType) (*Link, error) {
	var out Link
	req := LinkRequest{SourceID: sourceID, TargetID: targetID, LinkType: string(linkType)}
	if err := c.do(ctx, "create link", http.MethodPost, "/links", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLink deletes a link
func (c *Client) DeleteLink(ctx context.Context, id string) error {
	return c.do(ctx, "delete link", http.MethodDelete, "/links/"+url.PathEscape(id), nil, nil)
}

// GetLinkTypes lists every link type the service knows
func (c *Client) GetLinkTypes(ctx context.Context) ([]domain.LinkType, error) {
	var out []string
	if err := c.do(ctx, "get link types", http.MethodGet, "/links/types", nil, &out); err != nil {
		return nil, err
	}
	return toLinkTypes(out), nil
}

// --- Architecture ---

// CreateArchitecture creates a new, empty architecture
func (c *Client) CreateArchitecture(ctx context.Context, name string) (*domain.Architecture, error) {
	var out domain.Architecture
	if err := c.do(ctx, "create architecture", http.MethodPost, "/architecture", ArchitectureRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttachComponent adds a component to an architecture
func (c *Client) AttachComponent(ctx context.Context, architectureID, componentID string) error {
	path := "/architecture/" + url.PathEscape(architectureID) + "/components"
	return c.do(ctx, "attach component", http.MethodPost, path, AttachComponentRequest{ComponentID: componentID}, nil)
}

// AttachLink adds a link to an architecture
func (c *Client) AttachLink(ctx context.Context, architectureID, linkID string) error {
	path := "/architecture/" + url.PathEscape(architectureID) + "/links"
	return c.do(ctx, "attach link", http.MethodPost, path, AttachLinkRequest{LinkID: linkID}, nil)
}

// EvaluateArchitecture returns the scored report for an architecture
func (c *Client) EvaluateArchitecture(ctx context.Context, architectureID string) (*domain.EvaluationReport, error) {
	var raw json.RawMessage
	req := EvaluationRequest{ArchitectureID: architectureID}
	if err := c.do(ctx, "evaluate architecture", http.MethodPost, "/architecture/evaluate", req, &raw); err != nil {
		return nil, err
	}
	return &domain.EvaluationReport{ArchitectureID: architectureID, Raw: raw}, nil
}

// ValidateArchitecture checks an architecture against the connection rules
func (c *Client) ValidateArchitecture(ctx context.Context, architectureID string) (*domain.ValidationReport, error) {
	var out domain.ValidationReport
	path := "/architecture/" + url.PathEscape(architectureID) + "/validate"
	if err := c.do(ctx, "validate architecture", http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Violations == nil {
		out.Violations = []string{}
	}
	return &out, nil
}

// --- Transport ---

// do performs one bounded request. in is JSON-encoded when non-nil; out is
// decoded from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("marshaling request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) parseError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{Op: op, Status: resp.StatusCode}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Error != "" {
			e.Message = errResp.Error
		} else if errResp.Message != "" {
			e.Message = errResp.Message
		}
	}
	return e
}

func toLinkTypes(raw []string) []domain.LinkType {
	out := make([]domain.LinkType, 0, len(raw))
	for _, s := range raw {
		lt, err := domain.ParseLinkType(s)
		if err != nil {
			continue
		}
		out = append(out, lt)
	}
	return out
}
