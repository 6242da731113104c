package vparcel

import "log/slog"

// DefaultMaxDepth limits nesting of versioned objects. Object graphs are
// expected to be acyclic; the limit turns an accidental cycle into an error
// instead of a stack overflow.
const DefaultMaxDepth = 100

// Options configure a single top-level encode or decode call. The zero value
// is ready to use.
type Options struct {
	// Registry resolves codecs. Defaults to Default.
	Registry *Registry

	// MaxDepth bounds versioned object nesting. Defaults to DefaultMaxDepth.
	MaxDepth int

	// Handles is the out-of-band handle table received alongside the bytes.
	// Only used when decoding.
	Handles []Handle

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = Default
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
