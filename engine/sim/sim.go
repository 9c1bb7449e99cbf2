package sim

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kbukum/npuflow/engine"
)

// ErrClosed is returned by submissions after Close.
var ErrClosed = stderrors.New("sim: engine closed")

// OutputFunc computes the output tensors for one input.
type OutputFunc func(input []byte) (engine.Output, error)

// Option configures an Engine.
type Option func(*Engine)

// WithOutputFunc replaces the default classification output.
func WithOutputFunc(fn OutputFunc) Option {
	return func(e *Engine) { e.outputFn = fn }
}

// WithModel sets the model path reported by Info.
func WithModel(path string) Option {
	return func(e *Engine) { e.model = path }
}

type result struct {
	out engine.Output
	err error
}

// Engine is a simulated accelerator. It implements engine.WaitEngine and
// engine.CallbackEngine.
type Engine struct {
	cfg      Config
	model    string
	outputFn OutputFunc
	outInfo  engine.TensorInfo

	mu         sync.Mutex
	rng        *rand.Rand
	callback   engine.CallbackFunc
	inflight   int
	peak       int
	submitted  int
	completed  int
	rejected   int
	nextHandle engine.Handle
	pending    map[engine.Handle]chan result
	closed     bool

	wg sync.WaitGroup
}

var (
	_ engine.WaitEngine     = (*Engine)(nil)
	_ engine.CallbackEngine = (*Engine)(nil)
	_ engine.HandleReleaser = (*Engine)(nil)
)

// New creates a simulated accelerator.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	outType, err := engine.ParseDataType(cfg.OutputType)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		pending: make(map[engine.Handle]chan result),
	}
	if outType == engine.UInt16 {
		e.outInfo = engine.TensorInfo{Name: "argmax", Type: engine.UInt16, Shape: []int{1}}
		e.outputFn = e.indexOutput
	} else {
		e.outInfo = engine.TensorInfo{Name: "scores", Type: engine.Float32, Shape: []int{cfg.Classes}}
		e.outputFn = e.scoreOutput
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Opener returns an engine.Opener that builds a simulated engine per model.
func Opener(cfg Config) engine.Opener {
	return func(modelPath string) (engine.Engine, error) {
		return New(cfg, WithModel(modelPath))
	}
}

// Info implements engine.Engine.
func (e *Engine) Info() engine.Info {
	return engine.Info{
		Name:    e.cfg.Name,
		Model:   e.model,
		Input:   engine.TensorInfo{Name: "input", Type: engine.UInt8, Shape: e.cfg.InputShape},
		Outputs: []engine.TensorInfo{e.outInfo},
	}
}

// RegisterCallback implements engine.CallbackEngine.
func (e *Engine) RegisterCallback(fn engine.CallbackFunc) {
	e.mu.Lock()
	e.callback = fn
	e.mu.Unlock()
}

// SubmitAsync implements engine.CallbackEngine.
func (e *Engine) SubmitAsync(ctx context.Context, input []byte, tag engine.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.callback == nil {
		e.mu.Unlock()
		return fmt.Errorf("sim: no callback registered")
	}
	latency, err := e.admitLocked()
	cb := e.callback
	e.mu.Unlock()
	if err != nil {
		return err
	}

	go func() {
		defer e.wg.Done()
		time.Sleep(latency)
		out, err := e.outputFn(input)
		e.finish()
		cb(out, tag, err)
	}()
	return nil
}

// Submit implements engine.WaitEngine.
func (e *Engine) Submit(ctx context.Context, input []byte) (engine.Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	latency, err := e.admitLocked()
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	e.nextHandle++
	h := e.nextHandle
	done := make(chan result, 1)
	e.pending[h] = done
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		time.Sleep(latency)
		out, err := e.outputFn(input)
		e.finish()
		done <- result{out: out, err: err}
	}()
	return h, nil
}

// Wait implements engine.WaitEngine. Each handle can be waited on once.
func (e *Engine) Wait(ctx context.Context, h engine.Handle) (engine.Output, error) {
	e.mu.Lock()
	done, ok := e.pending[h]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sim: unknown handle %d", h)
	}

	select {
	case r := <-done:
		e.mu.Lock()
		delete(e.pending, h)
		e.mu.Unlock()
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release implements engine.HandleReleaser. The request still runs to
// completion; its result is discarded.
func (e *Engine) Release(h engine.Handle) {
	e.mu.Lock()
	delete(e.pending, h)
	e.mu.Unlock()
}

// Pending counts handles that have not been waited on or released.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close waits for every in-flight request to finish and forgets handles
// nobody waited on. Callbacks for in-flight requests still run.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	e.mu.Lock()
	clear(e.pending)
	e.mu.Unlock()
	return nil
}

// admitLocked reserves an in-flight slot and draws the request latency.
func (e *Engine) admitLocked() (time.Duration, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if e.inflight >= e.cfg.Capacity {
		e.rejected++
		return 0, engine.ErrBusy
	}
	e.inflight++
	e.submitted++
	if e.inflight > e.peak {
		e.peak = e.inflight
	}
	e.wg.Add(1)

	latency := e.cfg.MinLatency
	if spread := e.cfg.MaxLatency - e.cfg.MinLatency; spread > 0 {
		latency += time.Duration(e.rng.Int64N(int64(spread) + 1))
	}
	return latency, nil
}

// finish frees the in-flight slot before the completion is delivered.
func (e *Engine) finish() {
	e.mu.Lock()
	e.inflight--
	e.completed++
	e.mu.Unlock()
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	InFlight  int
	Peak      int
	Submitted int
	Completed int
	Rejected  int
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		InFlight:  e.inflight,
		Peak:      e.peak,
		Submitted: e.submitted,
		Completed: e.completed,
		Rejected:  e.rejected,
	}
}

// Peak returns the highest number of requests held at once.
func (e *Engine) Peak() int {
	return e.Stats().Peak
}

// ClassFor is the class the default output selects for input.
func (e *Engine) ClassFor(input []byte) int {
	return ClassFor(input, e.cfg.Classes)
}

// ClassFor returns the byte sum of input modulo classes.
func ClassFor(input []byte, classes int) int {
	sum := 0
	for _, b := range input {
		sum += int(b)
	}
	return sum % classes
}

func (e *Engine) scoreOutput(input []byte) (engine.Output, error) {
	scores := make([]float32, e.cfg.Classes)
	scores[ClassFor(input, e.cfg.Classes)] = 1
	return engine.Output{engine.Float32Tensor(e.outInfo.Name, scores)}, nil
}

func (e *Engine) indexOutput(input []byte) (engine.Output, error) {
	return engine.Output{engine.Uint16Tensor(e.outInfo.Name, []uint16{uint16(ClassFor(input, e.cfg.Classes))})}, nil
}
