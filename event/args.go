// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

// Args is the per-dispatch context handed to every listener. Both flags are
// sticky: once set they stay set for the rest of the dispatch.
type Args[T any] interface {
	// IsPropagationStopped reports whether a listener stopped the propagation.
	IsPropagationStopped() bool

	// IsDefaultPrevented reports whether a listener prevented the default action.
	IsDefaultPrevented() bool

	// StopPropagation skips every listener not yet visited in this dispatch.
	StopPropagation()

	// PreventDefault makes the dispatch report that the default action must not run.
	PreventDefault()

	// Data returns the payload of the event.
	Data() T
}

// flags holds the propagation state shared by both argument shapes
type flags struct {
	stopped   bool
	prevented bool
}

func (f *flags) IsPropagationStopped() bool {
	return f.stopped
}

func (f *flags) IsDefaultPrevented() bool {
	return f.prevented
}

func (f *flags) StopPropagation() {
	f.stopped = true
}

func (f *flags) PreventDefault() {
	f.prevented = true
}

// OwnedArgs carries a payload that belongs to the argument itself.
type OwnedArgs[T any] struct {
	flags
	value T
}

// NewOwnedArgs wraps a payload the caller gives up.
func NewOwnedArgs[T any](value T) *OwnedArgs[T] {
	return &OwnedArgs[T]{value: value}
}

// Data returns the owned payload
func (a *OwnedArgs[T]) Data() T {
	return a.value
}

// RefArgs carries a payload borrowed from the caller for the duration of a
// dispatch. The caller keeps ownership and can inspect it afterwards.
type RefArgs[T any] struct {
	flags
	value *T
}

// NewRefArgs wraps a payload the caller keeps.
func NewRefArgs[T any](value *T) *RefArgs[T] {
	return &RefArgs[T]{value: value}
}

// Data returns the borrowed payload, or the zero value when nothing was lent.
func (a *RefArgs[T]) Data() T {
	if a.value == nil {
		var zero T
		return zero
	}
	return *a.value
}
