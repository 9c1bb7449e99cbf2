package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/npuflow/component"
	"github.com/kbukum/npuflow/decode"
	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/observability"
	"github.com/kbukum/npuflow/preprocess"
	"github.com/kbukum/npuflow/scheduler"
)

const componentName = "harness"

var (
	_ component.Component   = (*Submitter)(nil)
	_ component.Describable = (*Submitter)(nil)
)

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

// WithMetrics records scheduler instruments on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// WithPreprocessor replaces the raw-frame preprocessor.
func WithPreprocessor(p preprocess.Preprocessor) Option {
	return func(s *Submitter) { s.pre = p }
}

// Submitter is the benchmark host's view of one accelerator: it loads the
// model once, then runs batches through the scheduler.
type Submitter struct {
	cfg     Config
	open    engine.Opener
	pre     preprocess.Preprocessor
	log     *logger.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	eng   engine.Engine
	sched *scheduler.Scheduler[decode.Result]
}

// New creates a Submitter that opens engines with open.
func New(cfg Config, open engine.Opener, opts ...Option) (*Submitter, error) {
	if open == nil {
		return nil, errors.InvalidInput("opener", "is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Submitter{
		cfg:  cfg,
		open: open,
		pre:  preprocess.RawFrame{Layout: cfg.Layout, SwapRB: cfg.SwapRB},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithComponent(componentName)
	}
	return s, nil
}

// Initialize loads modelPath and builds the scheduler. Load time is kept
// out of RunBatch. Initializing twice is an error.
func (s *Submitter) Initialize(ctx context.Context, modelPath string) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanLoad)
	defer func() { observability.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng != nil {
		return errors.InvalidState("harness already initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	eng, err := s.open(modelPath)
	if err != nil {
		return fmt.Errorf("open model %s: %w", modelPath, err)
	}
	dec, err := decode.For(s.cfg.Decoder, s.cfg.Classes)
	if err != nil {
		_ = eng.Close()
		return err
	}
	sched, err := scheduler.New(eng, dec, s.cfg.Scheduler,
		scheduler.WithLogger(s.log.WithComponent("scheduler")),
		scheduler.WithMetrics(s.metrics),
	)
	if err != nil {
		_ = eng.Close()
		return err
	}

	s.eng, s.sched = eng, sched
	info := eng.Info()
	span.SetAttributes(attribute.String(observability.AttrEngine, info.Name))
	s.log.Info("model loaded", logger.Fields(
		logger.FieldEngine, info.Name,
		"model", modelPath,
		logger.FieldMode, string(s.cfg.Scheduler.Mode),
		"window", s.cfg.Scheduler.Window,
	))
	return nil
}

// RunBatch runs inputs and returns one result per input, in input order.
func (s *Submitter) RunBatch(ctx context.Context, inputs [][]byte) ([]decode.Result, error) {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched == nil {
		return nil, errors.NotInitialized(componentName)
	}
	return sched.RunBatch(ctx, inputs)
}

// Warmup runs cfg.Warmup blank frames and discards the results, so driver
// setup cost stays out of the first measured batch.
func (s *Submitter) Warmup(ctx context.Context) error {
	if s.cfg.Warmup == 0 {
		return nil
	}
	frames := make([][]byte, s.cfg.Warmup)
	blank := make([]byte, s.cfg.Layout.PackedBytes())
	for i := range frames {
		frames[i] = blank
	}
	start := time.Now()
	if _, err := s.RunBatch(ctx, frames); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	s.log.Info("warmup complete", logger.Fields(
		"frames", s.cfg.Warmup,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

// RunFiles preprocesses paths concurrently and runs them as one batch.
func (s *Submitter) RunFiles(ctx context.Context, paths []string) ([]decode.Result, error) {
	inputs, err := s.PreprocessAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	return s.RunBatch(ctx, inputs)
}

// Preprocess converts one input file into a submission payload.
func (s *Submitter) Preprocess(path string) ([]byte, error) {
	return s.pre.ToBytes(path)
}

// PreprocessAll converts paths with up to Workers files in flight. The
// payloads keep the order of paths.
func (s *Submitter) PreprocessAll(ctx context.Context, paths []string) (out [][]byte, err error) {
	_, span := observability.StartSpan(ctx, observability.SpanPreprocess)
	span.SetAttributes(attribute.Int(observability.AttrBatchSize, len(paths)))
	defer func() { observability.EndSpan(span, err) }()

	mapper := iter.Mapper[string, []byte]{MaxGoroutines: s.cfg.Workers}
	return mapper.MapErr(paths, func(path *string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.pre.ToBytes(*path)
	})
}

// Metadata returns the system-under-test description.
func (s *Submitter) Metadata() Metadata {
	return s.cfg.Metadata
}

// EngineInfo returns the loaded engine's description.
func (s *Submitter) EngineInfo() (engine.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.eng == nil {
		return engine.Info{}, errors.NotInitialized(componentName)
	}
	return s.eng.Info(), nil
}

// Name implements component.Component.
func (s *Submitter) Name() string { return componentName }

// Start implements component.Component by loading the configured model.
func (s *Submitter) Start(ctx context.Context) error {
	return s.Initialize(ctx, s.cfg.Model)
}

// Stop implements component.Component. It waits for in-flight requests
// and releases the engine.
func (s *Submitter) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	err := s.eng.Close()
	s.eng, s.sched = nil, nil
	return err
}

// Health implements component.Component.
func (s *Submitter) Health(context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.eng == nil {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "model not loaded"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (s *Submitter) Describe() component.Description {
	sc := s.cfg.Scheduler
	details := fmt.Sprintf("model=%s mode=%s window=%d", s.cfg.Model, sc.Mode, sc.Window)
	if sc.Mode == scheduler.ModeWindowed {
		details += " strategy=" + string(sc.Strategy)
	} else {
		details += fmt.Sprintf(" queue=%d", sc.QueueCapacity)
	}
	return component.Description{Name: "Inference Harness", Type: componentName, Details: details}
}
