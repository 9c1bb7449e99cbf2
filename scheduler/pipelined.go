package scheduler

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/npuflow/assembler"
	"github.com/kbukum/npuflow/correlator"
	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/observability"
	"github.com/kbukum/npuflow/queue"
	"github.com/kbukum/npuflow/resilience"
)

const (
	stageProducer  = "producer"
	stageSubmitter = "submitter"
	stageCollector = "collector"
)

type completionEvent struct {
	slot  int
	out   engine.Output
	err   error
	fatal error
}

func (s *Scheduler[R]) initPipeline() error {
	var err error
	c := s.cfg.QueueCapacity
	if s.table, err = correlator.NewTable(c); err != nil {
		return err
	}
	if s.inputs, err = queue.New[*correlator.Request](c); err != nil {
		return err
	}
	s.completions, err = queue.New[completionEvent](c)
	return err
}

func (s *Scheduler[R]) runPipelined(ctx context.Context, log *logger.Logger, inputs [][]byte, asm *assembler.Assembler[R]) error {
	window := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "admission",
		MaxConcurrent: s.cfg.Window,
	})
	defer func() { s.notePeak(window.Peak()) }()

	c := s.cfg.QueueCapacity
	for start, slice := 0, 0; start < len(inputs); start, slice = start+c, slice+1 {
		end := min(start+c, len(inputs))
		if err := s.runSlice(ctx, log, window, slice, start, inputs[start:end], asm); err != nil {
			return err
		}
	}
	return nil
}

// runSlice runs producer, submitter and collector for one slice. On any
// failure both queues are stopped so every stage returns, and the error
// names the stage that failed first.
func (s *Scheduler[R]) runSlice(ctx context.Context, log *logger.Logger, window *resilience.Bulkhead,
	slice, base int, payloads [][]byte, asm *assembler.Assembler[R]) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSlice)
	span.SetAttributes(attribute.Int(observability.AttrSlice, slice))
	defer func() { observability.EndSpan(span, err) }()
	start := time.Now()
	n := len(payloads)

	if err := s.table.Reset(n); err != nil {
		return err
	}

	sliceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	epoch := s.openRoute(func(slot int, out engine.Output, err error) {
		s.metrics.RecordCompleted(ctx)
		if perr := s.completions.Push(sliceCtx, completionEvent{slot: slot, out: out, err: err}); perr != nil {
			s.log.Warn("completion after slice end dropped", logger.Fields(logger.FieldSlot, slot))
		}
	}, func(fatal error) {
		if perr := s.completions.Push(sliceCtx, completionEvent{slot: -1, fatal: fatal}); perr != nil {
			s.setLate(fatal)
		}
	})

	var aborted atomic.Bool
	abort := func() {
		aborted.Store(true)
		s.inputs.Stop()
		s.completions.Stop()
	}

	p := pool.New().WithContext(sliceCtx).WithCancelOnError()
	stage := func(name string, fn func(context.Context) error) {
		p.Go(func(ctx context.Context) error {
			err := fn(ctx)
			if err == nil {
				return nil
			}
			if aborted.Load() && isAbortSignal(err) {
				return nil
			}
			abort()
			s.metrics.RecordStageFailure(ctx, name)
			return errors.StageFailure(name, err)
		})
	}

	stage(stageProducer, func(ctx context.Context) error {
		for i, payload := range payloads {
			if err := s.inputs.Push(ctx, correlator.NewRequest(base+i, payload)); err != nil {
				return err
			}
		}
		s.inputs.Stop()
		return nil
	})

	stage(stageSubmitter, func(ctx context.Context) error {
		for slot := 0; ; slot++ {
			req, err := s.inputs.Pop(ctx)
			if stderrors.Is(err, queue.ErrEndOfStream) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := window.Acquire(ctx); err != nil {
				return err
			}
			if err := s.table.Bind(slot, req); err != nil {
				window.Release()
				return err
			}
			tag := engine.Tag{Epoch: epoch, Slot: slot}
			if err := s.submit(ctx, req.Index, func() error {
				return s.cb.SubmitAsync(ctx, req.Payload, tag)
			}); err != nil {
				window.Release()
				return err
			}
		}
	})

	stage(stageCollector, func(ctx context.Context) error {
		for got := 0; got < n; got++ {
			ev, err := s.popCompletion(ctx)
			if err != nil {
				return err
			}
			if ev.fatal != nil {
				return ev.fatal
			}
			c, err := s.table.Complete(ev.slot, ev.out, ev.err)
			if err != nil {
				return err
			}
			window.Release()
			r, err := s.decode(c)
			if err != nil {
				return err
			}
			if err := asm.Put(c.Index, r); err != nil {
				return err
			}
			if err := s.table.Request(ev.slot).Consume(); err != nil {
				return err
			}
		}
		s.completions.Stop()
		return nil
	})

	err = p.Wait()
	cancel()
	s.closeRoute()

	if err != nil {
		if dropped := len(s.inputs.Drain()) + len(s.completions.Drain()); dropped > 0 {
			log.Debug("discarded queued items after failure", logger.Fields("count", dropped))
		}
		s.resetQueues(log)
		return flattenStageErrors(err)
	}
	if err := s.resetQueues(log); err != nil {
		return err
	}

	s.metrics.RecordSlice(ctx, string(ModePipelined), time.Since(start))
	log.Debug("slice complete", logger.Fields(
		logger.FieldSlice, slice,
		logger.FieldEpoch, epoch,
		"size", n,
		"peak_inflight", window.Peak(),
	))
	return nil
}

// popCompletion waits for the next completion, bounded by the completion
// timeout.
func (s *Scheduler[R]) popCompletion(ctx context.Context) (completionEvent, error) {
	if s.cfg.CompletionTimeout <= 0 {
		return s.completions.Pop(ctx)
	}
	pctx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()
	ev, err := s.completions.Pop(pctx)
	if err != nil && ctx.Err() == nil && pctx.Err() != nil {
		return ev, errors.CompletionTimeout(stageCollector, s.table.Outstanding())
	}
	return ev, err
}

func (s *Scheduler[R]) resetQueues(log *logger.Logger) error {
	err := stderrors.Join(s.inputs.Reset(), s.completions.Reset())
	if err != nil {
		log.WithError(err).Error("queue reset failed")
	}
	return err
}

// isAbortSignal reports errors a stage sees only because a sibling aborted.
func isAbortSignal(err error) bool {
	return stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, queue.ErrEndOfStream) ||
		stderrors.Is(err, queue.ErrQueueClosed)
}

// flattenStageErrors returns a single stage failure as is, and wraps
// several in one STAGE_FAILURE naming the pipeline.
func flattenStageErrors(err error) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) == 1 {
			return errs[0]
		}
	}
	return errors.StageFailure("pipeline", err)
}
