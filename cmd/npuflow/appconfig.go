package main

import (
	stderrors "errors"

	"github.com/kbukum/npuflow/config"
	"github.com/kbukum/npuflow/engine/sim"
	"github.com/kbukum/npuflow/harness"
	"github.com/kbukum/npuflow/observability"
	"github.com/kbukum/npuflow/server"
)

const serviceName = "npuflow"

// AppConfig is the full binary configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Harness       harness.Config       `yaml:"harness" mapstructure:"harness"`
	Engine        sim.Config           `yaml:"engine" mapstructure:"engine"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies default values to every section. The simulated
// engine inherits the harness class count unless set.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Harness.ApplyDefaults()
	if c.Engine.Classes == 0 {
		c.Engine.Classes = c.Harness.Classes
	}
	c.Engine.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates every section and reports all failures.
func (c *AppConfig) Validate() error {
	return stderrors.Join(
		c.ServiceConfig.Validate(),
		c.Harness.Validate(),
		c.Engine.Validate(),
		c.Server.Validate(),
		c.Observability.Validate(),
	)
}

func (c *AppConfig) serviceInfo() observability.ServiceInfo {
	return observability.ServiceInfo{
		Name:        c.Name,
		Version:     c.Version,
		Environment: c.Environment,
	}
}
