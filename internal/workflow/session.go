package workflow

import (
	"slices"
	"sync"

	"archcanvas/internal/domain"
)

// Session is the per-canvas context: its id, the architecture components and
// links attach to, and the globally known link types.
type Session struct {
	ID string

	mu           sync.RWMutex
	architecture *domain.Architecture
	linkTypes    []domain.LinkType
}

// NewSession creates a session without an architecture
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Architecture returns the session architecture, if one exists
func (s *Session) Architecture() (*domain.Architecture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.architecture == nil {
		return nil, false
	}
	a := *s.architecture
	return &a, true
}

// SetArchitecture replaces the session architecture; nil clears it
func (s *Session) SetArchitecture(a *domain.Architecture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.architecture = nil
		return
	}
	c := *a
	s.architecture = &c
}

// LinkTypes returns the globally known link types
func (s *Session) LinkTypes() []domain.LinkType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.linkTypes)
}

// SetLinkTypes replaces the globally known link types
func (s *Session) SetLinkTypes(types []domain.LinkType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linkTypes = slices.Clone(types)
}
