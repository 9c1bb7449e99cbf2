package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/npuflow/assembler"
	"github.com/kbukum/npuflow/correlator"
	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/observability"
)

func (s *Scheduler[R]) runWindowed(ctx context.Context, log *logger.Logger, inputs [][]byte, asm *assembler.Assembler[R]) error {
	w := s.cfg.Window
	for start, slice := 0, 0; start < len(inputs); start, slice = start+w, slice+1 {
		end := min(start+w, len(inputs))
		if err := s.runWindow(ctx, log, slice, start, inputs[start:end], asm); err != nil {
			return err
		}
	}
	return nil
}

// runWindow submits one window, waits for all of it and assembles it.
func (s *Scheduler[R]) runWindow(ctx context.Context, log *logger.Logger, slice, base int, window [][]byte, asm *assembler.Assembler[R]) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSlice)
	span.SetAttributes(attribute.Int(observability.AttrSlice, slice))
	defer func() { observability.EndSpan(span, err) }()
	start := time.Now()

	reqs := make([]*correlator.Request, len(window))
	for i, payload := range window {
		reqs[i] = correlator.NewRequest(base+i, payload)
	}

	var records []correlator.Completion
	if s.waiter != nil {
		records, err = s.waitWindow(ctx, reqs)
	} else {
		records, err = s.barrierWindow(ctx, reqs)
	}
	if err != nil {
		return err
	}

	for slot, rec := range records {
		r, err := s.decode(rec)
		if err != nil {
			return err
		}
		if err := asm.Put(rec.Index, r); err != nil {
			return err
		}
		if err := reqs[slot].Consume(); err != nil {
			return err
		}
	}

	s.metrics.RecordSlice(ctx, string(ModeWindowed), time.Since(start))
	log.Debug("window complete", logger.Fields(
		logger.FieldSlice, slice,
		"size", len(window),
	))
	return nil
}

func (s *Scheduler[R]) barrierWindow(ctx context.Context, reqs []*correlator.Request) ([]correlator.Completion, error) {
	if err := s.barrier.Begin(len(reqs)); err != nil {
		return nil, err
	}
	epoch := s.openRoute(func(slot int, out engine.Output, err error) {
		s.metrics.RecordCompleted(ctx)
		if cerr := s.barrier.Complete(slot, out, err); cerr != nil {
			s.log.WithError(cerr).Error("completion rejected", logger.Fields(logger.FieldSlot, slot))
		}
	}, s.barrier.Fail)
	defer s.closeRoute()

	for slot, req := range reqs {
		if err := s.barrier.Bind(slot, req); err != nil {
			return nil, err
		}
		s.notePeak(s.barrier.Outstanding())
		tag := engine.Tag{Epoch: epoch, Slot: slot}
		if err := s.submit(ctx, req.Index, func() error {
			return s.cb.SubmitAsync(ctx, req.Payload, tag)
		}); err != nil {
			return nil, err
		}
	}
	return s.barrier.Await(ctx, s.cfg.CompletionTimeout)
}

func (s *Scheduler[R]) waitWindow(ctx context.Context, reqs []*correlator.Request) ([]correlator.Completion, error) {
	if err := s.waiter.Begin(len(reqs)); err != nil {
		return nil, err
	}
	for slot, req := range reqs {
		var h engine.Handle
		err := s.submit(ctx, req.Index, func() error {
			var err error
			h, err = s.we.Submit(ctx, req.Payload)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := s.waiter.Track(ctx, slot, req, h); err != nil {
			return nil, err
		}
		s.notePeak(s.waiter.Outstanding())
	}
	records, err := s.waiter.Await(ctx)
	if err == nil {
		for range records {
			s.metrics.RecordCompleted(ctx)
		}
	}
	return records, err
}
