package workflow

import (
	"context"
	"slices"
	"sync"

	"archcanvas/internal/domain"
)

// registry records in-flight pending operations and serialises workflows of
// the same kind through one-slot semaphores
type registry struct {
	mu    sync.Mutex
	ops   map[string]domain.PendingOperation
	order []string
	slots map[domain.PendingKind]chan struct{}
}

func newRegistry() *registry {
	return &registry{
		ops: make(map[string]domain.PendingOperation),
		slots: map[domain.PendingKind]chan struct{}{
			domain.PendingKindComponent:  make(chan struct{}, 1),
			domain.PendingKindConnection: make(chan struct{}, 1),
		},
	}
}

// acquire waits for the kind's slot or for ctx to end
func (r *registry) acquire(ctx context.Context, kind domain.PendingKind) error {
	select {
	case r.slots[kind] <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *registry) release(kind domain.PendingKind) {
	<-r.slots[kind]
}

// put records or replaces the pending operation for a workflow
func (r *registry) put(id string, op domain.PendingOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[id]; !ok {
		r.order = append(r.order, id)
	}
	r.ops[id] = op
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[id]; !ok {
		return
	}
	delete(r.ops, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
}

func (r *registry) list() []domain.PendingOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PendingOperation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.ops[id])
	}
	return out
}
