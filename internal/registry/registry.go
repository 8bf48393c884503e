// Package registry is the in-process hub that fans canonical events out to
// subscribed handlers and collects their ordered results. Callers decide
// precedence over the result list (e.g. first deny wins); the registry only
// guarantees ordering and isolation.
package registry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// Handler observes an event and returns an opinion. A nil result counts as
// "continue". Errors are downgraded, not propagated: one broken subscriber
// must never block or silently deny unrelated operations.
type Handler func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error)

type entry struct {
	id int64
	fn Handler
}

// Registry dispatches events to three subscription tiers: global handlers,
// per-category handlers, and exact-type handlers. Within a tier, handlers run
// in registration order. Registration and removal are the only mutations;
// concurrent Emit calls for different events need no extra synchronization.
type Registry struct {
	mu       sync.RWMutex
	global   []entry
	category map[events.Category][]entry
	typed    map[string][]entry
	nextID   atomic.Int64
}

func New() *Registry {
	return &Registry{
		category: make(map[events.Category][]entry),
		typed:    make(map[string][]entry),
	}
}

// OnAll registers a handler for every event. The returned function removes
// the registration and is safe to call more than once.
func (r *Registry) OnAll(h Handler) func() {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.global = append(r.global, entry{id: id, fn: h})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.global = remove(r.global, id)
		r.mu.Unlock()
	}
}

// OnCategory registers a handler for every event whose type falls in the
// given category.
func (r *Registry) OnCategory(c events.Category, h Handler) func() {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.category[c] = append(r.category[c], entry{id: id, fn: h})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.category[c] = remove(r.category[c], id)
		r.mu.Unlock()
	}
}

// OnType registers a handler for one exact event type, e.g. "permission:request".
func (r *Registry) OnType(eventType string, h Handler) func() {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.typed[eventType] = append(r.typed[eventType], entry{id: id, fn: h})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.typed[eventType] = remove(r.typed[eventType], id)
		r.mu.Unlock()
	}
}

// Emit invokes, in order: all global handlers, then the handlers for the
// event's category, then the handlers for its exact type. Handlers run
// strictly sequentially so that ordering is deterministic; a handler that
// errors or panics contributes a continue result carrying the error text and
// later handlers still run. The full ordered result list is returned.
func (r *Registry) Emit(ctx context.Context, ev *events.AgentEvent) []events.EventResult {
	r.mu.RLock()
	chain := make([]entry, 0, len(r.global))
	chain = append(chain, r.global...)
	chain = append(chain, r.category[ev.Category()]...)
	chain = append(chain, r.typed[ev.Type]...)
	r.mu.RUnlock()

	results := make([]events.EventResult, 0, len(chain))
	for _, e := range chain {
		results = append(results, invoke(ctx, e.fn, ev))
	}
	return results
}

func invoke(ctx context.Context, h Handler, ev *events.AgentEvent) (res events.EventResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[registry] handler panic on %s: %v", ev.Type, rec)
			res = events.EventResult{Action: events.ActionContinue, Message: fmt.Sprintf("handler panic: %v", rec)}
		}
	}()

	out, err := h(ctx, ev)
	if err != nil {
		log.Printf("[registry] handler error on %s: %v", ev.Type, err)
		return events.EventResult{Action: events.ActionContinue, Message: err.Error()}
	}
	if out == nil {
		return events.Continue()
	}
	return *out
}

func remove(list []entry, id int64) []entry {
	for i, e := range list {
		if e.id == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
