// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

// Listener is anything that can handle an event. Listeners are invoked on
// the dispatching goroutine, which is not necessarily the one that
// subscribed them.
type Listener[T any] interface {
	Call(ev Args[T]) Action
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc[T any] func(ev Args[T]) Action

// Call calls f(ev).
func (f ListenerFunc[T]) Call(ev Args[T]) Action {
	return f(ev)
}

// ObserverFunc adapts a function that never unsubscribes itself. It always
// reports Keep.
type ObserverFunc[T any] func(ev Args[T])

// Call calls f(ev) and keeps the listener.
func (f ObserverFunc[T]) Call(ev Args[T]) Action {
	f(ev)
	return Keep
}
