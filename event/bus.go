// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Event is a payload that knows its own type id, so a Bus can route it to
// the right handler.
type Event interface {
	Type() uint32
}

// registry holds an immutable sorted array of event mappings
type registry struct {
	keys []uint32 // Event types (sorted)
	hdls []any    // Corresponding *Handler[T]
}

// ------------------------------------- Bus -------------------------------------

// Bus routes events to one Handler per event type.
type Bus struct {
	subs atomic.Pointer[registry] // Atomic pointer to immutable array
	done chan struct{}            // Closed by Close
	opts []Option                 // Passed on to every handler
	mu   sync.Mutex               // Only for writes (new event types)
}

// NewBus creates a bus with no handlers.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		done: make(chan struct{}),
		opts: opts,
	}

	b.subs.Store(&registry{
		keys: make([]uint32, 0, 16),
		hdls: make([]any, 0, 16),
	})
	return b
}

// Close closes the bus. Subscribing afterwards panics, publishing is a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isClosed() {
		close(b.done)
	}
	return nil
}

// isClosed returns whether the bus is closed or not
func (b *Bus) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// find performs a lock-free binary search for the event type
func (b *Bus) find(eventType uint32) any {
	reg := b.subs.Load()
	keys := reg.keys

	left, right := 0, len(keys)
	for left < right {
		mid := left + (right-left)/2
		if keys[mid] < eventType {
			left = mid + 1
		} else {
			right = mid
		}
	}

	if left < len(keys) && keys[left] == eventType {
		return reg.hdls[left]
	}
	return nil
}

// HandlerFor returns the handler for events of type T, creating it if
// needed. The handler is shared with every other caller asking for T.
func HandlerFor[T Event](b *Bus) *Handler[T] {
	var ev T
	eventType := ev.Type()
	if existing := b.find(eventType); existing != nil {
		return handlerOf[T](eventType, existing)
	}

	if b.isClosed() {
		panic(errClosed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Close may have won the race for the lock
	if b.isClosed() {
		panic(errClosed)
	}

	// Another writer may have registered it in the meantime
	if existing := b.find(eventType); existing != nil {
		return handlerOf[T](eventType, existing)
	}

	opts := append([]Option{WithName(typeName[T]())}, b.opts...)
	h := New[T](opts...)

	// Copy-on-write: insert new entry in sorted position
	old := b.subs.Load()
	idx := sort.Search(len(old.keys), func(i int) bool {
		return old.keys[i] >= eventType
	})

	newKeys := make([]uint32, len(old.keys)+1)
	newHdls := make([]any, len(old.hdls)+1)

	copy(newKeys[:idx], old.keys[:idx])
	copy(newHdls[:idx], old.hdls[:idx])

	newKeys[idx] = eventType
	newHdls[idx] = h

	copy(newKeys[idx+1:], old.keys[idx:])
	copy(newHdls[idx+1:], old.hdls[idx:])

	b.subs.Store(&registry{keys: newKeys, hdls: newHdls})
	return h
}

// Subscribe subscribes a listener to events of type T.
func Subscribe[T Event](b *Bus, listener Listener[T]) {
	if b.isClosed() {
		panic(errClosed)
	}
	HandlerFor[T](b).Subscribe(listener)
}

// SubscribeFunc subscribes a function to events of type T. A nil function
// is ignored.
func SubscribeFunc[T Event](b *Bus, fn func(ev Args[T]) Action) {
	if fn == nil {
		return
	}
	Subscribe[T](b, ListenerFunc[T](fn))
}

// Publish dispatches an event to the listeners of its type. It returns
// false if a listener prevented the default action.
func Publish[T Event](b *Bus, ev T) bool {
	if b.isClosed() {
		return true
	}
	if existing := b.find(ev.Type()); existing != nil {
		return handlerOf[T](ev.Type(), existing).Dispatch(ev)
	}
	return true
}

// PublishRef is Publish for an event the caller keeps.
func PublishRef[T Event](b *Bus, ev *T) bool {
	if ev == nil || b.isClosed() {
		return true
	}
	if existing := b.find((*ev).Type()); existing != nil {
		return handlerOf[T]((*ev).Type(), existing).DispatchRef(ev)
	}
	return true
}

// count counts the number of listeners, this is for testing only.
func (b *Bus) count(eventType uint32) int {
	if h := b.find(eventType); h != nil {
		return h.(interface{ Len() int }).Len()
	}
	return 0
}

// handlerOf casts the stored handler to the specified generic type
func handlerOf[T Event](eventType uint32, h any) *Handler[T] {
	if handler, ok := h.(*Handler[T]); ok {
		return handler
	}

	panic(errConflict[T](eventType, h))
}

// ------------------------------------- Debugging -------------------------------------

var errClosed = fmt.Errorf("event bus is closed")

// typeName returns the short name of the payload type
func typeName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem().String()
	if idx := strings.LastIndex(typ, "/"); idx >= 0 {
		typ = typ[idx+1:]
	}
	return typ
}

// errConflict returns a conflict message
func errConflict[T any](eventType uint32, existing any) string {
	var want T
	return fmt.Sprintf(
		"conflicting event type, want=<%T>, registered=<%T>, event=0x%x",
		want, existing, eventType,
	)
}
