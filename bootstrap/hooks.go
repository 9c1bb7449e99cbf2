package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/npuflow/logger"
)

// Hook is a lifecycle callback, e.g. a warm-up batch before the harness
// reports ready.
type Hook func(ctx context.Context) error

type phase string

const (
	phaseStart phase = "start"
	phaseReady phase = "ready"
	phaseStop  phase = "stop"
)

// OnStart registers hooks that run after every component has started.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers hooks that run after the ready check, before the task
// runs or the app waits for a signal.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers hooks that run before components stop. They share the
// graceful timeout with the components.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks runs hooks in order and stops at the first error.
func (a *App[C]) runHooks(ctx context.Context, p phase, hooks []Hook) error {
	for i, h := range hooks {
		start := time.Now()
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", p, i, err)
		}
		a.Logger.Debug("hook finished", logger.Fields(
			"phase", string(p),
			"hook", i,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
	return nil
}
