package workflow

import (
	"context"
	"encoding/json"

	"archcanvas/internal/domain"
	"archcanvas/internal/remote"
)

// Remote is the graph service as the engine consumes it. *remote.Client
// implements it.
type Remote interface {
	CreateComponent(ctx context.Context, componentType domain.ComponentType, name string, properties map[string]any) (*remote.Component, error)
	UpdateComponent(ctx context.Context, id string, componentType domain.ComponentType, name string, properties map[string]any) (*remote.Component, error)
	DeleteComponent(ctx context.Context, id string) error
	GetSubtypes(ctx context.Context, componentType domain.ComponentType) ([]domain.SubtypeOption, error)
	GetSubtypeHeuristics(ctx context.Context, componentType domain.ComponentType, subtype string) (json.RawMessage, error)

	SuggestLinkTypes(ctx context.Context, sourceID, targetID string) ([]domain.LinkType, error)
	ValidateLink(ctx context.Context, sourceID, targetID string, linkType domain.LinkType) (*remote.ValidationResponse, error)
	CreateLink(ctx context.Context, sourceID, targetID string, linkType domain.LinkType) (*remote.Link, error)
	DeleteLink(ctx context.Context, id string) error
	GetLinkTypes(ctx context.Context) ([]domain.LinkType, error)

	CreateArchitecture(ctx context.Context, name string) (*domain.Architecture, error)
	AttachComponent(ctx context.Context, architectureID, componentID string) error
	AttachLink(ctx context.Context, architectureID, linkID string) error
	EvaluateArchitecture(ctx context.Context, architectureID string) (*domain.EvaluationReport, error)
	ValidateArchitecture(ctx context.Context, architectureID string) (*domain.ValidationReport, error)
}

var _ Remote = (*remote.Client)(nil)
