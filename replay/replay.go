// Package replay feeds payload files through an event handler built from a
// config file.
package replay

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"sync"

	"github.com/mostlygeek/eventhandler/config"
	"github.com/mostlygeek/eventhandler/event"
	"github.com/mostlygeek/eventhandler/listeners"
	"github.com/mostlygeek/eventhandler/logmon"
	"github.com/mostlygeek/eventhandler/payload"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Result is the outcome of dispatching one payload
type Result struct {
	File      string
	Index     int
	Allowed   bool // default action not prevented
	Remaining int  // listeners left after the dispatch
}

type Replayer struct {
	config  config.Config
	logger  *logmon.LogMonitor
	handler *event.Handler[[]byte]
	out     io.Writer

	mu    sync.Mutex
	calls map[string]int
}

// New subscribes one listener per configured spec, in config order, so the
// last one in the file is dispatched to first.
func New(cfg config.Config, logger *logmon.LogMonitor, out io.Writer) (*Replayer, error) {
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}

	r := &Replayer{
		config: cfg,
		logger: logger,
		out:    out,
		calls:  make(map[string]int),
		handler: event.New[[]byte](
			event.WithName("replay"),
			event.WithLogger(logger),
		),
	}

	for _, spec := range specs {
		r.handler.Subscribe(r.build(spec))
		logger.Debugf("subscribed listener %s", spec.Name)
	}
	return r, nil
}

// build turns a spec into a listener, match outermost so payloads that do
// not match never use up a times budget, and logging outside times so it
// sees the final remove
func (r *Replayer) build(spec config.ListenerSpec) event.Listener[[]byte] {
	var actions []event.Listener[[]byte]
	actions = append(actions, event.ObserverFunc[[]byte](func(event.Args[[]byte]) {
		r.mu.Lock()
		r.calls[spec.Name]++
		r.mu.Unlock()
	}))
	if spec.Prevent {
		actions = append(actions, listeners.Preventer[[]byte]())
	}
	if spec.Stop {
		actions = append(actions, listeners.Stopper[[]byte]())
	}
	if spec.Remove {
		actions = append(actions, listeners.Remover[[]byte]())
	}

	l := listeners.Times(spec.Times, listeners.Chain(actions...))
	if spec.Log {
		l = listeners.Logged(r.logger, spec.Name, l)
	}
	if spec.MatchPath != "" {
		l = listeners.MatchJSON(spec.MatchPath, spec.MatchValue, l)
	}
	return l
}

func (r *Replayer) Handler() *event.Handler[[]byte] {
	return r.handler
}

// Calls returns how many times each listener was invoked
func (r *Replayer) Calls() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.calls)
}

// Run dispatches every payload of every configured file, in order
func (r *Replayer) Run(ctx context.Context) ([]Result, error) {
	ctx, span := otel.Tracer("github.com/mostlygeek/eventhandler/replay").Start(ctx, "event.replay")
	defer span.End()

	var results []Result
	seq := 0
	for _, file := range r.config.Payloads.Files {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("replay interrupted before %s: %w", file, err)
		}

		docs, err := payload.Read(file, r.config.Payloads.Format)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, fmt.Errorf("reading payloads: %w", err)
		}
		r.logger.Infof("replaying %d payloads from %s", len(docs), file)

		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return results, fmt.Errorf("replay interrupted at %s#%d: %w", file, i, err)
			}

			seq++
			if r.config.Payloads.Stamp {
				if doc, err = payload.Stamp(doc, seq); err != nil {
					return results, fmt.Errorf("stamping %s#%d: %w", file, i, err)
				}
			}

			result := Result{
				File:    filepath.Base(file),
				Index:   i,
				Allowed: r.handler.DispatchContext(ctx, doc),
			}
			result.Remaining = r.handler.Len()
			results = append(results, result)

			if r.out != nil {
				fmt.Fprintf(r.out, "%s#%d allowed=%t listeners=%d\n",
					result.File, result.Index, result.Allowed, result.Remaining)
			}
		}
	}

	span.SetAttributes(attribute.Int("event.replay.payloads", seq))
	return results, nil
}
