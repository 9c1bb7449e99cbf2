package server

import (
	stderrors "errors"
	"time"

	"github.com/kbukum/npuflow/security"
	"github.com/kbukum/npuflow/server/middleware"
	"github.com/kbukum/npuflow/validation"
)

// Config configures the harness HTTP server.
type Config struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=0"`
	// MaxBodySize bounds request bodies, e.g. "64MB".
	MaxBodySize string `yaml:"max_body_size" mapstructure:"max_body_size"`
	// H2C serves HTTP/2 without TLS next to HTTP/1.1.
	H2C bool `yaml:"h2c" mapstructure:"h2c"`
	// TLS serves HTTPS, with HTTP/2 negotiated by ALPN. H2C is ignored
	// when TLS is enabled.
	TLS  security.TLSConfig    `yaml:"tls" mapstructure:"tls"`
	CORS middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	// A batch runs inside one request.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 10 * time.Minute
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return stderrors.Join(validation.Validate(c), c.TLS.Validate())
}
