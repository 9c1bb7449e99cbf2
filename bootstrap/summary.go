package bootstrap

import (
	"fmt"
	"strings"

	"github.com/kbukum/npuflow/component"
	"github.com/kbukum/npuflow/logger"
)

// Summary is the startup report of components and routes.
type Summary struct {
	Name       string
	Version    string
	Components []component.Description
	Routes     []component.Route
}

// Summary collects the startup report from the registry.
func (a *App[C]) Summary() Summary {
	s := Summary{
		Name:       a.Name,
		Version:    a.Version,
		Components: a.Components.Describe(),
	}
	for _, c := range a.Components.All() {
		if rp, ok := c.(component.RouteProvider); ok {
			s.Routes = append(s.Routes, rp.Routes()...)
		}
	}
	return s
}

// LogSummary logs the startup report, one line per component and route.
func (a *App[C]) LogSummary() {
	s := a.Summary()
	a.Logger.Info("application started", logger.Fields(
		"name", s.Name,
		"version", s.Version,
		"components", len(s.Components),
		logger.FieldDuration, a.startupTime.Milliseconds(),
	))
	for _, d := range s.Components {
		fields := logger.Fields(logger.FieldComponent, d.Name, "type", d.Type)
		if d.Details != "" {
			fields["details"] = d.Details
		}
		if d.Port > 0 {
			fields["port"] = d.Port
		}
		a.Logger.Info("component", fields)
	}
	for _, r := range s.Routes {
		a.Logger.Debug("route", logger.Fields("route", formatRoute(r)))
	}
}

func formatRoute(r component.Route) string {
	out := fmt.Sprintf("%-6s %s", strings.ToUpper(r.Method), r.Path)
	if r.Handler != "" {
		out += " -> " + r.Handler
	}
	return out
}
