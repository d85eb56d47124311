// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

// Default is the process-wide bus
var Default = NewBus()

// On subscribes a function to events of type T on the default bus. This
// functions same way as SubscribeFunc() but uses the default bus instead.
func On[T Event](fn func(ev Args[T]) Action) {
	SubscribeFunc(Default, fn)
}

// Emit dispatches an event on the default bus. This functions same way as
// Publish() but uses the default bus instead.
func Emit[T Event](ev T) bool {
	return Publish(Default, ev)
}

// EmitRef dispatches an event the caller keeps on the default bus.
func EmitRef[T Event](ev *T) bool {
	return PublishRef(Default, ev)
}
