package harness

import (
	"github.com/kbukum/npuflow/preprocess"
	"github.com/kbukum/npuflow/scheduler"
	"github.com/kbukum/npuflow/validation"
)

// Config configures a Submitter.
type Config struct {
	// Model is the model file handed to the engine opener.
	Model string `yaml:"model" mapstructure:"model" validate:"required"`
	// Decoder names the output decoder; see decode.For.
	Decoder string `yaml:"decoder" mapstructure:"decoder" validate:"oneof=classification classification+probabilities passthrough"`
	Classes int    `yaml:"classes" mapstructure:"classes" validate:"min=0"`
	// Workers bounds concurrent file preprocessing.
	Workers int  `yaml:"workers" mapstructure:"workers" validate:"min=1"`
	SwapRB  bool `yaml:"swap_rb" mapstructure:"swap_rb"`
	// Warmup is the number of blank frames run once before serving.
	Warmup    int               `yaml:"warmup" mapstructure:"warmup" validate:"min=0"`
	Layout    preprocess.Layout `yaml:"layout" mapstructure:"layout"`
	Metadata  Metadata          `yaml:"metadata" mapstructure:"metadata"`
	Scheduler scheduler.Config  `yaml:"scheduler" mapstructure:"scheduler"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Decoder == "" {
		c.Decoder = "classification"
	}
	if c.Classes == 0 && c.Decoder != "passthrough" {
		c.Classes = 1000
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	c.Layout.ApplyDefaults()
	c.Metadata.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}
