package scheduler

import (
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/observability"
)

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Scheduler.
type Option func(*options)

// WithLogger sets the logger. The default is the global logger tagged with
// the scheduler component.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metric instruments. Without it nothing is recorded.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
