package internal

import "github.com/starford/saga/internal/validate"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	sink   validate.EventSink
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEventSink sets an additional sink for lifecycle events. Used by
// one-shot runs and tests; serve mode always streams events over SSE.
func WithEventSink(sink validate.EventSink) Option {
	return func(a *application) {
		a.sink = sink
	}
}
