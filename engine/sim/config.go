package sim

import (
	"time"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/validation"
)

// Config configures the simulated accelerator.
type Config struct {
	Name       string        `yaml:"name" mapstructure:"name"`
	Capacity   int           `yaml:"capacity" mapstructure:"capacity" validate:"min=1"`
	MinLatency time.Duration `yaml:"min_latency" mapstructure:"min_latency" validate:"min=0"`
	MaxLatency time.Duration `yaml:"max_latency" mapstructure:"max_latency" validate:"min=0"`
	Seed       uint64        `yaml:"seed" mapstructure:"seed"`
	Classes    int           `yaml:"classes" mapstructure:"classes" validate:"min=1"`
	OutputType string        `yaml:"output_type" mapstructure:"output_type" validate:"oneof=float32 uint16"`
	InputShape []int         `yaml:"input_shape" mapstructure:"input_shape" validate:"dive,min=1"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "sim"
	}
	if c.Capacity <= 0 {
		c.Capacity = 16
	}
	if c.MaxLatency < c.MinLatency {
		c.MaxLatency = c.MinLatency
	}
	if c.Classes <= 0 {
		c.Classes = 1000
	}
	if c.OutputType == "" {
		c.OutputType = engine.Float32.String()
	}
	if len(c.InputShape) == 0 {
		c.InputShape = []int{224, 224, 3}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
