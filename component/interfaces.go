package component

import "context"

// HealthStatus is the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the application: the inference
// harness, the HTTP server, the telemetry exporters.
type Component interface {
	// Name returns the unique registration name.
	Name() string

	// Start brings the component up. A component that fails to start is
	// not stopped.
	Start(ctx context.Context) error

	// Stop releases the component's resources.
	Stop(ctx context.Context) error

	// Health reports the current state.
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself at startup.
type Description struct {
	// Name is the display name. Empty means Component.Name().
	Name string
	// Type categorizes the component: "harness", "server", "telemetry".
	Type string
	// Details is a one-line configuration summary, such as
	// "sim model=resnet50 mode=pipelined window=3".
	Details string
	// Port is the listening port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components that report a
// Description at startup.
type Describable interface {
	Describe() Description
}

// Route is one registered HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
