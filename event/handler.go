// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ------------------------------------- Handler -------------------------------------

// Handler is a synchronized list of listeners for events carrying a payload
// of type T. Dispatch runs the listeners on the calling goroutine, newest
// first.
type Handler[T any] struct {
	list *listeners[T]
	opts *options
}

// New creates a handler with no listeners.
func New[T any](opts ...Option) *Handler[T] {
	return &Handler[T]{
		list: newListeners[T](),
		opts: newOptions(opts),
	}
}

// Clone returns a second handle to the same listeners. Subscriptions and
// removals made through either handle are visible to both.
func (h *Handler[T]) Clone() *Handler[T] {
	return &Handler[T]{list: h.list, opts: h.opts}
}

// Subscribe appends a listener. It will be invoked by every dispatch that
// starts after Subscribe returns, until it returns Remove.
func (h *Handler[T]) Subscribe(listener Listener[T]) {
	if listener == nil {
		return
	}
	h.list.add(listener)
}

// SubscribeFunc subscribes a function as a listener.
func (h *Handler[T]) SubscribeFunc(fn func(ev Args[T]) Action) {
	if fn != nil {
		h.Subscribe(ListenerFunc[T](fn))
	}
}

// Observe subscribes a function that stays registered forever.
func (h *Handler[T]) Observe(fn func(ev Args[T])) {
	if fn != nil {
		h.Subscribe(ObserverFunc[T](fn))
	}
}

// Len returns the number of registered listeners.
func (h *Handler[T]) Len() int {
	return len(h.list.load())
}

// Dispatch notifies the listeners with a payload the handler takes over. It
// returns false if any listener prevented the default action.
func (h *Handler[T]) Dispatch(data T) bool {
	return h.dispatch(context.Background(), NewOwnedArgs(data))
}

// DispatchRef notifies the listeners with a payload the caller keeps.
func (h *Handler[T]) DispatchRef(data *T) bool {
	return h.dispatch(context.Background(), NewRefArgs(data))
}

// DispatchContext is Dispatch with a parent context for the dispatch span.
// The context is not used for cancellation.
func (h *Handler[T]) DispatchContext(ctx context.Context, data T) bool {
	return h.dispatch(ctx, NewOwnedArgs(data))
}

// DispatchRefContext is DispatchRef with a parent context for the dispatch span.
func (h *Handler[T]) DispatchRefContext(ctx context.Context, data *T) bool {
	return h.dispatch(ctx, NewRefArgs(data))
}

// dispatch visits the listeners from the most recently subscribed to the
// oldest, then removes the ones that asked for it. A panic in a listener
// propagates to the caller and nothing is removed.
func (h *Handler[T]) dispatch(ctx context.Context, ev Args[T]) bool {
	snapshot := h.list.load()
	_, span := h.opts.tracer.Start(ctx, "event.dispatch", trace.WithAttributes(
		attribute.String("event.handler", h.opts.name),
		attribute.Int("event.listeners", len(snapshot)),
	))
	defer span.End()

	var removed []*entry[T]
	invoked := 0
	for i := len(snapshot) - 1; i >= 0; i-- {
		if ev.IsPropagationStopped() {
			break
		}

		invoked++
		if snapshot[i].listener.Call(ev) == Remove {
			removed = append(removed, snapshot[i])
		}
	}

	if len(removed) > 0 {
		h.list.remove(removed)
	}

	prevented := ev.IsDefaultPrevented()
	span.SetAttributes(
		attribute.Int("event.invoked", invoked),
		attribute.Int("event.removed", len(removed)),
		attribute.Bool("event.propagation_stopped", ev.IsPropagationStopped()),
		attribute.Bool("event.default_prevented", prevented),
	)
	h.opts.logger.Debugf("<%s> dispatched to %d/%d listeners, removed=%d prevented=%t",
		h.opts.name, invoked, len(snapshot), len(removed), prevented)

	return !prevented
}

// ------------------------------------- Listeners -------------------------------------

// entry gives each subscription a stable identity, so removals do not depend
// on positions that may have shifted since the dispatch started.
type entry[T any] struct {
	listener Listener[T]
}

// listeners holds an immutable slice of entries, replaced on every write
type listeners[T any] struct {
	items atomic.Pointer[[]*entry[T]] // Atomic pointer to immutable slice
	mu    sync.Mutex                  // Only for writes (subscribe/remove)
}

func newListeners[T any]() *listeners[T] {
	l := &listeners[T]{}
	empty := make([]*entry[T], 0)
	l.items.Store(&empty)
	return l
}

// load returns the current snapshot, which must not be modified
func (l *listeners[T]) load() []*entry[T] {
	return *l.items.Load()
}

// add appends a listener with copy-on-write
func (l *listeners[T]) add(listener Listener[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.load()
	next := make([]*entry[T], len(old), len(old)+1)
	copy(next, old)
	next = append(next, &entry[T]{listener: listener})
	l.items.Store(&next)
}

// remove drops the given entries, ignoring any that are already gone
func (l *listeners[T]) remove(gone []*entry[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(l.load()), func(e *entry[T]) bool {
		return slices.Contains(gone, e)
	})
	l.items.Store(&next)
}
