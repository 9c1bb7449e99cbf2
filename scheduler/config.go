package scheduler

import (
	"time"

	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/resilience"
	"github.com/kbukum/npuflow/validation"
)

// Mode selects how a batch is scheduled.
type Mode string

const (
	// ModeWindowed submits W requests, waits for all of them, then moves to
	// the next W. Consecutive windows never overlap.
	ModeWindowed Mode = "windowed"
	// ModePipelined keeps up to W requests in flight across the whole slice
	// with producer, submitter and collector stages running concurrently.
	ModePipelined Mode = "pipelined"
)

// Strategy selects how windowed mode waits for completions.
type Strategy string

const (
	// StrategyBarrier uses driver callbacks and a counted barrier.
	StrategyBarrier Strategy = "barrier"
	// StrategyWait blocks on each request handle from a worker pool.
	StrategyWait Strategy = "wait"
)

// DefaultCompletionTimeout applies when CompletionTimeout is zero.
const DefaultCompletionTimeout = 10 * time.Second

// Config configures a Scheduler.
type Config struct {
	Mode     Mode     `yaml:"mode" mapstructure:"mode" validate:"oneof=windowed pipelined"`
	Strategy Strategy `yaml:"strategy" mapstructure:"strategy" validate:"oneof=barrier wait"`
	// Window is the admission window: the most requests in flight at once.
	Window int `yaml:"window" mapstructure:"window" validate:"min=1,max=4096"`
	// QueueCapacity bounds both pipelined queues and so the slice size.
	QueueCapacity int `yaml:"queue_capacity" mapstructure:"queue_capacity" validate:"min=1,max=65536"`
	// CompletionTimeout bounds each wait for completions. Zero selects the
	// default; a negative value disables the bound.
	CompletionTimeout time.Duration          `yaml:"completion_timeout" mapstructure:"completion_timeout"`
	SubmitRetry       resilience.RetryConfig `yaml:"submit_retry" mapstructure:"submit_retry"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeWindowed
	}
	if c.Strategy == "" {
		c.Strategy = StrategyBarrier
	}
	if c.Window <= 0 {
		c.Window = 3
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 64
	}
	if c.CompletionTimeout == 0 {
		c.CompletionTimeout = DefaultCompletionTimeout
	}
	c.SubmitRetry.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Mode == ModePipelined && c.Strategy == StrategyWait {
		return errors.InvalidInput("scheduler.strategy", "pipelined mode requires the barrier strategy")
	}
	return nil
}
