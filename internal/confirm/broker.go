package confirm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

var (
	ErrPromptNotFound = errors.New("confirm: prompt not found")
	ErrInvalidChoice  = errors.New("confirm: invalid choice")
)

// PromptKind identifies which dialog a prompt represents
type PromptKind string

const (
	PromptSubtype  PromptKind = "subtype"
	PromptName     PromptKind = "name"
	PromptLinkType PromptKind = "link_type"
)

// Option is one selectable answer
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Prompt is a dialog waiting for a remote operator
type Prompt struct {
	ID        string     `json:"id"`
	Kind      PromptKind `json:"kind"`
	Title     string     `json:"title"`
	Options   []Option   `json:"options,omitempty"`
	Default   string     `json:"default,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Resolution is published when a prompt is answered, cancelled or abandoned
type Resolution struct {
	ID        string `json:"id"`
	Value     string `json:"value,omitempty"`
	Cancelled bool   `json:"cancelled"`
}

type answer struct {
	value     string
	cancelled bool
}

type waiter struct {
	prompt Prompt
	reply  chan answer
}

// Broker presents dialogs as prompts that are answered out of band, e.g. over
// HTTP. Each open prompt is published as an event and blocks its workflow
// until Answer, Cancel or context cancellation.
type Broker struct {
	mu        sync.Mutex
	pending   map[string]*waiter
	order     []string
	pub       notify.Publisher
	sessionID string
}

// NewBroker creates a broker publishing prompts to pub
func NewBroker(sessionID string, pub notify.Publisher) *Broker {
	if pub == nil {
		pub = notify.Discard
	}
	return &Broker{
		pending:   make(map[string]*waiter),
		pub:       pub,
		sessionID: sessionID,
	}
}

// Pending returns the open prompts, oldest first
func (b *Broker) Pending() []Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Prompt, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.pending[id].prompt)
	}
	return out
}

// Answer resolves a prompt. Choice prompts accept only one of their option
// values; name prompts accept any text and fall back to the default when it is
// blank.
func (b *Broker) Answer(id, value string) error {
	b.mu.Lock()
	w, ok := b.pending[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}

	value = strings.TrimSpace(value)
	if w.prompt.Kind == PromptName {
		if value == "" {
			value = w.prompt.Default
		}
	} else if !slices.ContainsFunc(w.prompt.Options, func(o Option) bool { return o.Value == value }) {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidChoice, value)
	}

	b.removeLocked(id)
	b.mu.Unlock()

	w.reply <- answer{value: value}
	b.publishResolution(Resolution{ID: id, Value: value})
	return nil
}

// Cancel dismisses a prompt
func (b *Broker) Cancel(id string) error {
	b.mu.Lock()
	w, ok := b.pending[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	b.removeLocked(id)
	b.mu.Unlock()

	w.reply <- answer{cancelled: true}
	b.publishResolution(Resolution{ID: id, Cancelled: true})
	return nil
}

// ChooseSubtype implements Surface
func (b *Broker) ChooseSubtype(ctx context.Context, componentType domain.ComponentType, options []domain.SubtypeOption) (string, error) {
	opts := make([]Option, 0, len(options))
	for _, o := range options {
		opts = append(opts, Option{Value: o.ID, Label: o.DisplayName(), Description: o.Description})
	}
	return b.ask(ctx, Prompt{
		Kind:    PromptSubtype,
		Title:   fmt.Sprintf("Select %s subtype", componentType.Words()),
		Options: opts,
	})
}

// EnterName implements Surface
func (b *Broker) EnterName(ctx context.Context, componentType domain.ComponentType, subtype, defaultName string) (string, error) {
	title := fmt.Sprintf("Name for new %s", componentType.Words())
	if subtype != "" {
		title = fmt.Sprintf("%s (%s)", title, domain.TitleWords(subtype))
	}
	return b.ask(ctx, Prompt{Kind: PromptName, Title: title, Default: defaultName})
}

// ChooseLinkType implements Surface
func (b *Broker) ChooseLinkType(ctx context.Context, options []domain.LinkType, sourceLabel, targetLabel string) (domain.LinkType, error) {
	opts := make([]Option, 0, len(options))
	for _, lt := range options {
		opts = append(opts, Option{Value: string(lt), Label: lt.Words()})
	}
	v, err := b.ask(ctx, Prompt{
		Kind:    PromptLinkType,
		Title:   fmt.Sprintf("Select connection type from %s to %s", sourceLabel, targetLabel),
		Options: opts,
	})
	return domain.LinkType(v), err
}

func (b *Broker) ask(ctx context.Context, p Prompt) (string, error) {
	if ctx.Err() != nil {
		return "", cancelled(ctx)
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	w := &waiter{prompt: p, reply: make(chan answer, 1)}

	b.mu.Lock()
	b.pending[p.ID] = w
	b.order = append(b.order, p.ID)
	b.mu.Unlock()

	b.pub.Publish(notify.Event{Type: notify.EventPrompt, SessionID: b.sessionID, Payload: p})

	select {
	case a := <-w.reply:
		if a.cancelled {
			return "", ErrCancelled
		}
		return a.value, nil
	case <-ctx.Done():
		b.mu.Lock()
		_, open := b.pending[p.ID]
		if open {
			b.removeLocked(p.ID)
		}
		b.mu.Unlock()

		if !open {
			// Answered concurrently with cancellation; the workflow is gone
			// either way.
			<-w.reply
		} else {
			b.publishResolution(Resolution{ID: p.ID, Cancelled: true})
		}
		return "", cancelled(ctx)
	}
}

// removeLocked requires b.mu to be held
func (b *Broker) removeLocked(id string) {
	delete(b.pending, id)
	b.order = slices.DeleteFunc(b.order, func(s string) bool { return s == id })
}

func (b *Broker) publishResolution(r Resolution) {
	b.pub.Publish(notify.Event{Type: notify.EventPromptResolved, SessionID: b.sessionID, Payload: r})
}
