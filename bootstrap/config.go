package bootstrap

import (
	"github.com/kbukum/npuflow/config"
)

// Config is satisfied by a pointer to any struct that embeds
// config.ServiceConfig and overrides ApplyDefaults and Validate to cover
// its own sections:
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Harness harness.Config `yaml:"harness" mapstructure:"harness"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
