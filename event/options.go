// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package event

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mostlygeek/eventhandler/event"

// Logger receives debug output about dispatches. *logmon.LogMonitor
// satisfies it.
type Logger interface {
	Debugf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// options are shared by a handler and every clone of it
type options struct {
	name   string
	logger Logger
	tracer trace.Tracer
}

// Option configures a Handler or a Bus.
type Option func(*options)

// WithName sets the name used in logs and span attributes.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used to record one span per dispatch. By default
// the tracer comes from the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		name:   "event",
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	return o
}
