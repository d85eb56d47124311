package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debugf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, format)
}

func TestBasic(t *testing.T) {
	h := New[int]()
	var seen int
	h.Observe(func(ev Args[int]) { seen = ev.Data() })

	assert.True(t, h.Dispatch(5))
	assert.Equal(t, 5, seen)
}

func TestDispatchNoListeners(t *testing.T) {
	h := New[string]()
	assert.True(t, h.Dispatch("nobody"))
	assert.True(t, h.DispatchRef(nil))
	assert.Equal(t, 0, h.Len())
}

func TestDispatchOrder(t *testing.T) {
	h := New[int]()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		h.Observe(func(ev Args[int]) { order = append(order, name) })
	}

	h.Dispatch(0)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestStopPropagation(t *testing.T) {
	h := New[int]()
	var calledA, calledB, calledC int

	h.SubscribeFunc(func(ev Args[int]) Action {
		calledA++
		return Keep
	})
	h.SubscribeFunc(func(ev Args[int]) Action {
		calledB++
		return Remove
	})
	h.SubscribeFunc(func(ev Args[int]) Action {
		calledC++
		ev.StopPropagation()
		return Keep
	})

	assert.True(t, h.Dispatch(1))
	assert.Equal(t, 1, calledC)
	assert.Equal(t, 0, calledB, "B is skipped, so its Remove never happens")
	assert.Equal(t, 0, calledA)
	assert.Equal(t, 3, h.Len())
}

func TestPreventDefault(t *testing.T) {
	h := New[int]()
	var got int
	h.SubscribeFunc(func(ev Args[int]) Action {
		got = ev.Data()
		ev.PreventDefault()
		return Keep
	})

	assert.False(t, h.Dispatch(5))
	assert.Equal(t, 5, got)
	assert.Equal(t, 1, h.Len())

	// flags do not leak into the next dispatch
	got = 0
	assert.False(t, h.Dispatch(6))
	assert.Equal(t, 6, got)
}

func TestPreventDefaultWithStoppedPropagation(t *testing.T) {
	h := New[int]()
	h.SubscribeFunc(func(ev Args[int]) Action {
		t.Fatal("should have been skipped")
		return Keep
	})
	h.Observe(func(ev Args[int]) {
		ev.PreventDefault()
		ev.StopPropagation()
	})

	assert.False(t, h.Dispatch(0))
}

func TestRemoveSelf(t *testing.T) {
	h := New[int]()
	var calls int
	h.SubscribeFunc(func(ev Args[int]) Action {
		calls++
		return Remove
	})

	assert.True(t, h.Dispatch(1))
	assert.Equal(t, 0, h.Len())
	assert.True(t, h.Dispatch(2))
	assert.Equal(t, 1, calls)
}

func TestRemoveMany(t *testing.T) {
	h := New[int]()
	var calls [6]int
	for i := range calls {
		h.SubscribeFunc(func(ev Args[int]) Action {
			calls[i]++
			if i%2 == 0 {
				return Remove
			}
			return Keep
		})
	}

	h.Dispatch(0)
	assert.Equal(t, 3, h.Len())
	h.Dispatch(0)
	assert.Equal(t, [6]int{1, 2, 1, 2, 1, 2}, calls)
}

func TestRemoveThenStop(t *testing.T) {
	h := New[int]()
	var skipped, removed int
	h.Observe(func(ev Args[int]) { skipped++ })
	h.Observe(func(ev Args[int]) { ev.StopPropagation() })
	h.SubscribeFunc(func(ev Args[int]) Action {
		removed++
		return Remove
	})

	h.Dispatch(0)
	h.Dispatch(0)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 2, h.Len())
}

func TestDispatchRef(t *testing.T) {
	type payload struct {
		Name  string
		Count int
	}

	h := New[payload]()
	var seen payload
	h.Observe(func(ev Args[payload]) { seen = ev.Data() })

	p := payload{Name: "ref", Count: 3}
	assert.True(t, h.DispatchRef(&p))
	assert.Equal(t, p, seen)
	assert.Equal(t, payload{Name: "ref", Count: 3}, p)
}

func TestSubscribeDuringDispatch(t *testing.T) {
	h := New[int]()
	var inner int
	h.SubscribeFunc(func(ev Args[int]) Action {
		h.Observe(func(ev Args[int]) { inner++ })
		return Remove
	})

	h.Dispatch(0)
	assert.Equal(t, 0, inner, "listeners added mid-dispatch wait for the next one")
	assert.Equal(t, 1, h.Len())

	h.Dispatch(0)
	assert.Equal(t, 1, inner)
}

func TestListenerPanic(t *testing.T) {
	h := New[int]()
	var oldest int
	h.Observe(func(ev Args[int]) { oldest++ })
	h.SubscribeFunc(func(ev Args[int]) Action { return Remove })
	h.SubscribeFunc(func(ev Args[int]) Action {
		if ev.Data() == 0 {
			panic("boom")
		}
		return Keep
	})

	assert.PanicsWithValue(t, "boom", func() { h.Dispatch(0) })
	assert.Equal(t, 0, oldest)
	assert.Equal(t, 3, h.Len(), "nothing is removed when a listener panics")

	assert.True(t, h.Dispatch(1))
	assert.Equal(t, 1, oldest)
	assert.Equal(t, 2, h.Len())
}

func TestClone(t *testing.T) {
	h := New[int]()
	c := h.Clone()

	var calls int
	c.SubscribeFunc(func(ev Args[int]) Action {
		calls++
		return Remove
	})
	assert.Equal(t, 1, h.Len())

	h.Dispatch(0)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Len())
}

func TestSubscribeNil(t *testing.T) {
	h := New[int]()
	h.Subscribe(nil)
	h.SubscribeFunc(nil)
	h.Observe(nil)
	assert.Equal(t, 0, h.Len())
}

func TestConcurrentDispatch(t *testing.T) {
	h := New[int]()
	var total atomic.Int64
	var once atomic.Int64
	h.Observe(func(ev Args[int]) { total.Add(int64(ev.Data())) })
	h.SubscribeFunc(func(ev Args[int]) Action {
		once.Add(1)
		return Remove
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Dispatch(1)
			h.Observe(func(ev Args[int]) {})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), total.Load())
	assert.GreaterOrEqual(t, once.Load(), int64(1))
	assert.Equal(t, 51, h.Len())
}

func TestDispatchLogsAndTraces(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	logger := &recordingLogger{}

	h := New[int](WithName("clicks"), WithLogger(logger), WithTracer(provider.Tracer("test")))
	h.SubscribeFunc(func(ev Args[int]) Action { return Remove })
	h.Observe(func(ev Args[int]) { ev.PreventDefault() })

	assert.False(t, h.DispatchContext(context.Background(), 7))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "event.dispatch", spans[0].Name())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "clicks", attrs["event.handler"])
	assert.Equal(t, int64(2), attrs["event.listeners"])
	assert.Equal(t, int64(2), attrs["event.invoked"])
	assert.Equal(t, int64(1), attrs["event.removed"])
	assert.Equal(t, true, attrs["event.default_prevented"])

	require.Len(t, logger.lines, 1)
}

func BenchmarkDispatch(b *testing.B) {
	h := New[int]()
	for i := 0; i < 10; i++ {
		h.Observe(func(ev Args[int]) {})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Dispatch(i)
	}
}
