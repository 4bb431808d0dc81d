package lifecycle

import (
	"time"

	"github.com/rs/zerolog"
)

// OperatorOption configures an Operator
type OperatorOption func(*Operator)

// WithLogger sets the logger used for transition events
func WithLogger(logger zerolog.Logger) OperatorOption {
	return func(o *Operator) {
		o.logger = logger.With().Str("component", "lifecycle").Logger()
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(metrics *Metrics) OperatorOption {
	return func(o *Operator) {
		o.metrics = metrics
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) OperatorOption {
	return func(o *Operator) {
		o.now = now
	}
}

// WithCascadeConcurrency bounds how many sibling cascade branches run at once.
// 1 runs them sequentially.
func WithCascadeConcurrency(n int) OperatorOption {
	return func(o *Operator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithConflictRetries sets how many times a primary update is retried after a
// version conflict
func WithConflictRetries(n int, interval time.Duration) OperatorOption {
	return func(o *Operator) {
		if n >= 0 {
			o.retries = n
		}
		if interval > 0 {
			o.retryInterval = interval
		}
	}
}

// Option adjusts a single SoftDelete or Restore call
type Option func(*callOptions)

type callOptions struct {
	cascade bool
	actor   string
	reason  string
	// origin is the caller's reason before cascade tagging
	origin string
}

func newCallOptions(cascade bool, opts []Option) callOptions {
	call := callOptions{cascade: cascade}
	for _, opt := range opts {
		opt(&call)
	}
	call.origin = call.reason
	return call
}

// WithCascade turns cascading on or off. SoftDelete cascades by default,
// Restore does not.
func WithCascade(cascade bool) Option {
	return func(c *callOptions) {
		c.cascade = cascade
	}
}

// WithActor records who performed the transition
func WithActor(actor string) Option {
	return func(c *callOptions) {
		c.actor = actor
	}
}

// WithReason records why the transition happened
func WithReason(reason string) Option {
	return func(c *callOptions) {
		c.reason = reason
	}
}
