// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

// Action is what a listener asks the handler to do with it once it has
// handled an event.
type Action uint8

const (
	// Keep leaves the listener registered. It is the zero value, so a
	// listener that never unsubscribes itself does not have to spell it out.
	Keep Action = iota
	// Remove unregisters the listener after the current dispatch.
	Remove
)

// String returns the name of the action
func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}
