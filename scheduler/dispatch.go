package scheduler

import (
	"context"
	"fmt"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/logger"
)

type sinkFunc func(slot int, out engine.Output, err error)

type route struct {
	epoch uint64
	sink  sinkFunc
	fail  func(error)
}

// dispatch is the callback registered with the driver. It forwards a
// completion to the active epoch's sink. A completion tagged with an
// earlier epoch of the running batch is a second delivery and fails the
// batch; one from an earlier batch is dropped as stray.
func (s *Scheduler[R]) dispatch(out engine.Output, tag engine.Tag, err error) {
	s.routeMu.RLock()
	defer s.routeMu.RUnlock()

	r := s.route
	if r != nil && r.epoch == tag.Epoch {
		r.sink(tag.Slot, out, err)
		return
	}

	if first := s.batchFirst.Load(); first != 0 && tag.Epoch >= first && tag.Epoch <= s.epoch.Load() {
		late := errors.MismatchedCompletion(tag.Slot,
			fmt.Sprintf("late completion for epoch %d of the running batch", tag.Epoch)).
			WithDetail("epoch", tag.Epoch)
		s.log.Error("late completion in running batch", logger.Fields(
			logger.FieldEpoch, tag.Epoch,
			logger.FieldSlot, tag.Slot,
		))
		if r != nil {
			r.fail(late)
		} else {
			s.setLate(late)
		}
		return
	}

	s.metrics.RecordStray(context.Background())
	s.log.Warn("stray completion dropped", logger.Fields(
		logger.FieldEpoch, tag.Epoch,
		logger.FieldSlot, tag.Slot,
	))
}

// openRoute starts a new epoch whose completions go to sink. fail receives
// a fatal error detected while the epoch is active. A fatal error recorded
// while no epoch was active is handed to fail before openRoute returns.
func (s *Scheduler[R]) openRoute(sink sinkFunc, fail func(error)) uint64 {
	epoch := s.epoch.Add(1)
	s.routeMu.Lock()
	s.route = &route{epoch: epoch, sink: sink, fail: fail}
	s.routeMu.Unlock()
	if err := s.takeLate(); err != nil {
		fail(err)
	}
	return epoch
}

// closeRoute ends the current epoch. No sink runs after it returns.
func (s *Scheduler[R]) closeRoute() {
	s.routeMu.Lock()
	s.route = nil
	s.routeMu.Unlock()
}

// beginBatch marks the next epoch as the first of a new batch.
func (s *Scheduler[R]) beginBatch() {
	s.routeMu.Lock()
	s.batchFirst.Store(s.epoch.Load() + 1)
	s.routeMu.Unlock()
	_ = s.takeLate()
}

// endBatch returns any fatal error recorded after the last epoch closed
// and stops treating the batch's epochs as live.
func (s *Scheduler[R]) endBatch() error {
	s.routeMu.Lock()
	s.batchFirst.Store(0)
	s.routeMu.Unlock()
	return s.takeLate()
}

func (s *Scheduler[R]) setLate(err error) {
	s.lateMu.Lock()
	if s.late == nil {
		s.late = err
	}
	s.lateMu.Unlock()
}

func (s *Scheduler[R]) takeLate() error {
	s.lateMu.Lock()
	defer s.lateMu.Unlock()
	err := s.late
	s.late = nil
	return err
}
