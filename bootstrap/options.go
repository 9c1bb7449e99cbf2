package bootstrap

import (
	"time"

	"github.com/kbukum/npuflow/logger"
)

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

// WithLogger uses l instead of a logger built from cfg's logging section.
// Tests pass logger.Nop().
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds stop hooks plus component shutdown. Values
// <= 0 keep the default.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}
