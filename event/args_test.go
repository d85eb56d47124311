package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsFlags(t *testing.T) {
	value := 3
	for name, ev := range map[string]Args[int]{
		"owned": NewOwnedArgs(3),
		"ref":   NewRefArgs(&value),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, ev.IsPropagationStopped())
			assert.False(t, ev.IsDefaultPrevented())
			assert.Equal(t, 3, ev.Data())

			ev.StopPropagation()
			ev.StopPropagation()
			assert.True(t, ev.IsPropagationStopped())
			assert.False(t, ev.IsDefaultPrevented())

			ev.PreventDefault()
			assert.True(t, ev.IsPropagationStopped())
			assert.True(t, ev.IsDefaultPrevented())
		})
	}
}

func TestRefArgsNil(t *testing.T) {
	ev := NewRefArgs[string](nil)
	assert.Equal(t, "", ev.Data())
}

func TestRefArgsSeesCallerValue(t *testing.T) {
	value := []int{1, 2}
	ev := NewRefArgs(&value)
	value = append(value, 3)
	assert.Equal(t, []int{1, 2, 3}, ev.Data())
}

func TestAction(t *testing.T) {
	var zero Action
	assert.Equal(t, Keep, zero)
	assert.Equal(t, "keep", Keep.String())
	assert.Equal(t, "remove", Remove.String())
	assert.Equal(t, "unknown", Action(9).String())
}

func TestListenerAdapters(t *testing.T) {
	ev := NewOwnedArgs(1)

	var l Listener[int] = ListenerFunc[int](func(ev Args[int]) Action { return Remove })
	assert.Equal(t, Remove, l.Call(ev))

	called := false
	l = ObserverFunc[int](func(ev Args[int]) { called = true })
	assert.Equal(t, Keep, l.Call(ev))
	assert.True(t, called)
}
