package observability

import (
	"context"
	"sync"

	"github.com/kbukum/npuflow/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component installs the trace and meter providers on Start and flushes
// them on Stop. Instruments created earlier from the global meter start
// recording once it has started.
type Component struct {
	cfg Config
	svc ServiceInfo

	mu       sync.Mutex
	shutdown ShutdownFunc
}

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, svc ServiceInfo) *Component {
	return &Component{cfg: cfg, svc: svc}
}

// Name implements component.Component.
func (c *Component) Name() string { return "telemetry" }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error {
	shutdown, err := Setup(ctx, c.cfg, c.svc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.shutdown = shutdown
	c.mu.Unlock()
	return nil
}

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	shutdown := c.shutdown
	c.shutdown = nil
	c.mu.Unlock()
	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}

// Health implements component.Component.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "export disabled"
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = "otlp http " + c.cfg.Endpoint
	}
	return component.Description{Name: "OpenTelemetry", Type: "telemetry", Details: details}
}
