package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/npuflow/assembler"
	"github.com/kbukum/npuflow/correlator"
	"github.com/kbukum/npuflow/decode"
	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/observability"
	"github.com/kbukum/npuflow/queue"
	"github.com/kbukum/npuflow/resilience"
)

// Scheduler runs batches against one engine. Batches are serialized.
type Scheduler[R any] struct {
	cfg     Config
	info    engine.Info
	cb      engine.CallbackEngine
	we      engine.WaitEngine
	dec     decode.Decoder[R]
	log     *logger.Logger
	metrics *observability.Metrics

	runMu sync.Mutex

	epoch      atomic.Uint64
	batchFirst atomic.Uint64
	routeMu    sync.RWMutex
	route      *route

	lateMu sync.Mutex
	late   error

	// windowed
	barrier *correlator.Barrier
	waiter  *correlator.Waiter

	// pipelined
	table       *correlator.Table
	inputs      *queue.Queue[*correlator.Request]
	completions *queue.Queue[completionEvent]

	lastPeak atomic.Int64
}

// New creates a scheduler. The engine must implement engine.CallbackEngine
// for the barrier strategy and pipelined mode, or engine.WaitEngine for the
// wait strategy. A callback engine gets the scheduler's dispatcher
// registered as its callback.
func New[R any](eng engine.Engine, dec decode.Decoder[R], cfg Config, opts ...Option) (*Scheduler[R], error) {
	if eng == nil {
		return nil, errors.InvalidInput("engine", "is required")
	}
	if dec == nil {
		return nil, errors.InvalidInput("decoder", "is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("scheduler")
	}

	s := &Scheduler[R]{
		cfg:     cfg,
		info:    eng.Info(),
		dec:     dec,
		log:     o.log,
		metrics: o.metrics,
	}

	var err error
	switch {
	case cfg.Strategy == StrategyWait:
		we, ok := eng.(engine.WaitEngine)
		if !ok {
			return nil, errors.InvalidInput("engine", "wait strategy requires a WaitEngine")
		}
		s.we = we
		s.waiter, err = correlator.NewWaiter(we, cfg.Window, cfg.Window, cfg.CompletionTimeout)
	default:
		cb, ok := eng.(engine.CallbackEngine)
		if !ok {
			return nil, errors.InvalidInput("engine", "barrier strategy and pipelined mode require a CallbackEngine")
		}
		s.cb = cb
		if cfg.Mode == ModePipelined {
			err = s.initPipeline()
		} else {
			s.barrier, err = correlator.NewBarrier(cfg.Window)
		}
		if err == nil {
			cb.RegisterCallback(s.dispatch)
		}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Scheduler[R]) Config() Config {
	return s.cfg
}

// LastPeak returns the highest number of submitted requests the correlator
// held uncompleted during the most recent batch.
func (s *Scheduler[R]) LastPeak() int {
	return int(s.lastPeak.Load())
}

// RunBatch submits every input and returns the decoded results in input
// order. On error no results are returned.
func (s *Scheduler[R]) RunBatch(ctx context.Context, inputs [][]byte) ([]R, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if len(inputs) == 0 {
		return []R{}, nil
	}

	batchID := uuid.NewString()
	log := s.log.WithFields(logger.Fields(
		logger.FieldBatchID, batchID,
		logger.FieldMode, string(s.cfg.Mode),
	))
	ctx, span := observability.StartSpan(ctx, observability.SpanBatch)
	span.SetAttributes(
		attribute.String(observability.AttrBatchID, batchID),
		attribute.Int(observability.AttrBatchSize, len(inputs)),
		attribute.String(observability.AttrMode, string(s.cfg.Mode)),
		attribute.String(observability.AttrStrategy, string(s.cfg.Strategy)),
		attribute.String(observability.AttrEngine, s.info.Name),
	)

	start := time.Now()
	asm := assembler.New[R](len(inputs))
	s.lastPeak.Store(0)

	s.beginBatch()
	var err error
	if s.cfg.Mode == ModePipelined {
		err = s.runPipelined(ctx, log, inputs, asm)
	} else {
		err = s.runWindowed(ctx, log, inputs, asm)
	}
	if lerr := s.endBatch(); err == nil {
		err = lerr
	}

	var results []R
	if err == nil {
		results, err = asm.Finalize()
	}
	elapsed := time.Since(start)
	observability.EndSpan(span, err)

	status := "ok"
	if err != nil {
		status = "error"
		log.WithError(err).Error("batch failed", logger.Fields(
			"size", len(inputs),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	} else {
		log.Debug("batch complete", logger.Fields(
			"size", len(inputs),
			"peak_inflight", s.LastPeak(),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	}
	s.metrics.RecordBatch(ctx, string(s.cfg.Mode), status, len(inputs), elapsed)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// submit runs one submission attempt loop. engine.ErrBusy is retried with
// backoff; exhausting the attempts is fatal.
func (s *Scheduler[R]) submit(ctx context.Context, index int, fn func() error) error {
	cfg := s.cfg.SubmitRetry
	cfg.RetryIf = func(err error) bool { return errors.HasCode(err, errors.ErrCodeSubmissionRejected) }
	cfg.OnRetry = func(attempt int, _ error, backoff time.Duration) {
		s.metrics.RecordRejected(ctx)
		s.log.Debug("submission rejected, retrying", logger.Fields(
			logger.FieldIndex, index,
			"attempt", attempt,
			"backoff", backoff.String(),
		))
	}

	err := resilience.RetryFunc(ctx, cfg, func() error {
		err := fn()
		if stderrors.Is(err, engine.ErrBusy) {
			return errors.SubmissionRejected(index).WithCause(err)
		}
		return err
	})

	var exhausted *resilience.ExhaustedError
	if stderrors.As(err, &exhausted) {
		s.metrics.RecordRejected(ctx)
		return errors.SubmissionExhausted(index, exhausted.Attempts, exhausted.Last)
	}
	if err == nil {
		s.metrics.RecordSubmitted(ctx)
	}
	return err
}

func (s *Scheduler[R]) decode(c correlator.Completion) (R, error) {
	if c.Err != nil {
		var zero R
		return zero, errors.Internal(c.Err).WithDetail("index", c.Index)
	}
	r, err := s.dec.Decode(c.Output, s.info.Outputs)
	if err != nil {
		return r, errors.Internal(err).WithDetail("index", c.Index)
	}
	return r, nil
}

func (s *Scheduler[R]) notePeak(n int) {
	for {
		p := s.lastPeak.Load()
		if int64(n) <= p || s.lastPeak.CompareAndSwap(p, int64(n)) {
			return
		}
	}
}
