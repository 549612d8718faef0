package resolver

import (
	"log/slog"
	"time"
)

// DefaultMaxDepth bounds nested user-component expansion.
const DefaultMaxDepth = 256

// Option configures Resolve.
type Option func(*config)

type config struct {
	maxDepth  int
	logger    *slog.Logger
	telemetry *Telemetry
}

// WithMaxDepth sets the maximum nesting of user-component expansions.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithLogger sets the logger used for expansion tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTelemetry fills t with counters once Resolve returns.
func WithTelemetry(t *Telemetry) Option {
	return func(c *config) {
		c.telemetry = t
	}
}

// Telemetry holds expansion counters.
type Telemetry struct {
	Instantiations int           // Components resolved, slot placements excluded
	Expansions     int           // User-defined components expanded
	MaxDepth       int           // Deepest user-component nesting reached
	Nodes          int           // IR nodes in the result, root included
	Duration       time.Duration // Wall time of Resolve
}
