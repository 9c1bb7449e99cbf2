package main

import (
	"fmt"

	"github.com/kbukum/npuflow/bootstrap"
	"github.com/kbukum/npuflow/engine/sim"
	"github.com/kbukum/npuflow/harness"
	"github.com/kbukum/npuflow/observability"
)

type application = bootstrap.App[*AppConfig]

// newApplication builds the app with the telemetry and harness components
// registered, in start order. The warm-up batch runs once the harness is
// ready.
func newApplication(cfg *AppConfig, opts ...bootstrap.Option) (*application, *harness.Submitter, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}
	sub, err := harness.New(cfg.Harness, sim.Opener(cfg.Engine),
		harness.WithLogger(app.Logger.WithComponent("harness")),
		harness.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := app.RegisterComponent(observability.NewComponent(cfg.Observability, cfg.serviceInfo())); err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(sub); err != nil {
		return nil, nil, err
	}
	app.OnReady(sub.Warmup)
	return app, sub, nil
}
