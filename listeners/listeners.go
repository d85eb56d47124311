// Package listeners provides reusable event.Listener building blocks.
package listeners

import (
	"sync/atomic"

	"github.com/mostlygeek/eventhandler/event"
	"github.com/tidwall/gjson"
)

// Once wraps a listener so it is removed after its first call.
func Once[T any](l event.Listener[T]) event.Listener[T] {
	return Times(1, l)
}

// Times wraps a listener so it is removed after n calls, or after the wrapped
// listener asks for it. n <= 0 means no limit.
func Times[T any](n int, l event.Listener[T]) event.Listener[T] {
	if n <= 0 {
		return l
	}

	var calls atomic.Int64
	return event.ListenerFunc[T](func(ev event.Args[T]) event.Action {
		count := calls.Add(1)
		if count > int64(n) {
			// concurrent dispatch already used up the budget
			return event.Remove
		}
		if action := l.Call(ev); action == event.Remove || count == int64(n) {
			return event.Remove
		}
		return event.Keep
	})
}

// Filter only calls l for payloads matching pred. Other payloads leave the
// event untouched and keep the listener.
func Filter[T any](pred func(data T) bool, l event.Listener[T]) event.Listener[T] {
	return event.ListenerFunc[T](func(ev event.Args[T]) event.Action {
		if !pred(ev.Data()) {
			return event.Keep
		}
		return l.Call(ev)
	})
}

// MatchJSON only calls l when the JSON payload has want at path. An empty
// want matches any existing value.
func MatchJSON(path, want string, l event.Listener[[]byte]) event.Listener[[]byte] {
	return Filter(func(data []byte) bool {
		if !gjson.ValidBytes(data) {
			return false
		}
		result := gjson.GetBytes(data, path)
		if !result.Exists() {
			return false
		}
		return want == "" || result.String() == want
	}, l)
}

// Logger is the subset of logmon.LogMonitor used by Logged.
type Logger interface {
	Debugf(format string, v ...any)
}

// Logged logs every call to l and the action it returned.
func Logged[T any](logger Logger, name string, l event.Listener[T]) event.Listener[T] {
	return event.ListenerFunc[T](func(ev event.Args[T]) event.Action {
		action := l.Call(ev)
		logger.Debugf("<%s> handled event: action=%s stopped=%t prevented=%t",
			name, action, ev.IsPropagationStopped(), ev.IsDefaultPrevented())
		return action
	})
}

// Stopper stops the propagation of every event it sees.
func Stopper[T any]() event.Listener[T] {
	return event.ObserverFunc[T](func(ev event.Args[T]) {
		ev.StopPropagation()
	})
}

// Preventer prevents the default action of every event it sees.
func Preventer[T any]() event.Listener[T] {
	return event.ObserverFunc[T](func(ev event.Args[T]) {
		ev.PreventDefault()
	})
}

// Remover is a no-op listener that removes itself on its first call.
func Remover[T any]() event.Listener[T] {
	return event.ListenerFunc[T](func(event.Args[T]) event.Action {
		return event.Remove
	})
}

// Chain calls every listener in order against the same event and removes
// itself as soon as one of them asks for it.
func Chain[T any](ls ...event.Listener[T]) event.Listener[T] {
	return event.ListenerFunc[T](func(ev event.Args[T]) event.Action {
		action := event.Keep
		for _, l := range ls {
			if l.Call(ev) == event.Remove {
				action = event.Remove
			}
		}
		return action
	})
}
