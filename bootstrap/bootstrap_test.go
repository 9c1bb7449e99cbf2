package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/npuflow/component"
	"github.com/kbukum/npuflow/config"
	"github.com/kbukum/npuflow/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(context.Context) error {
	m.started = m.startErr == nil
	return m.startErr
}
func (m *mockComponent) Stop(context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(context.Context) component.Health { return m.health }

type serverComponent struct {
	mockComponent
}

func (s *serverComponent) Describe() component.Description {
	return component.Description{Type: "server", Details: ":8080", Port: 8080}
}

func (s *serverComponent) Routes() []component.Route {
	return []component.Route{{Method: "post", Path: "/v1/batches", Handler: "runBatch"}}
}

func healthy(name string) *mockComponent {
	return &mockComponent{name: name, health: component.Health{Name: name, Status: component.StatusHealthy}}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "npuflow-test", Version: "1.0.0"}}
	app, err := NewApp(cfg, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "npuflow-test" || app.Version != "1.0.0" {
		t.Errorf("name=%q version=%q", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("defaults not applied: %+v", app.Cfg.ServiceConfig)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("graceful timeout = %v", app.gracefulTimeout)
	}
	if app.Components == nil || app.Logger == nil {
		t.Error("registry and logger must be set")
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "lab"}}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(time.Second))
	if app.gracefulTimeout != time.Second {
		t.Errorf("graceful timeout = %v", app.gracefulTimeout)
	}
}

func TestRunTaskLifecycle(t *testing.T) {
	app := newTestApp(t)
	c := healthy("harness")
	if err := app.RegisterComponent(c); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(healthy("harness")); err == nil {
		t.Error("expected duplicate registration error")
	}

	var calls []string
	app.OnStart(func(context.Context) error { calls = append(calls, "start"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		calls = append(calls, "configure:"+a.Cfg.Name)
		return nil
	})
	app.OnReady(func(context.Context) error { calls = append(calls, "ready"); return nil })
	app.OnStop(func(context.Context) error { calls = append(calls, "stop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		if !c.started {
			t.Error("component not started before task")
		}
		calls = append(calls, "task")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "[start configure:npuflow-test ready task stop]"
	if fmt.Sprint(calls) != want {
		t.Errorf("calls = %v, want %s", calls, want)
	}
	if !c.stopped {
		t.Error("component not stopped")
	}
}

func TestRunTaskErrors(t *testing.T) {
	boom := fmt.Errorf("boom")
	tests := []struct {
		name  string
		setup func(app *App[*testConfig], c *mockComponent)
		task  func(context.Context) error
		ran   bool
	}{
		{
			name: "task error wins over stop error",
			setup: func(_ *App[*testConfig], c *mockComponent) {
				c.stopErr = fmt.Errorf("stop failed")
			},
			task: func(context.Context) error { return boom },
			ran:  true,
		},
		{
			name:  "component start error",
			setup: func(_ *App[*testConfig], c *mockComponent) { c.startErr = boom },
		},
		{
			name: "start hook error",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.OnStart(func(context.Context) error { return boom })
			},
		},
		{
			name: "configure error",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.OnConfigure(func(context.Context, *App[*testConfig]) error { return boom })
			},
		},
		{
			name: "ready hook error",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.OnReady(func(context.Context) error { return boom })
			},
		},
		{
			name: "stop hook error",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.OnStop(func(context.Context) error { return boom })
			},
			task: func(context.Context) error { return nil },
			ran:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			c := healthy("harness")
			_ = app.RegisterComponent(c)
			tt.setup(app, c)

			ran := false
			err := app.RunTask(context.Background(), func(ctx context.Context) error {
				ran = true
				if tt.task != nil {
					return tt.task(ctx)
				}
				return nil
			})
			if err == nil || !strings.Contains(err.Error(), "boom") {
				t.Errorf("expected boom, got %v", err)
			}
			if ran != tt.ran {
				t.Errorf("task ran = %v, want %v", ran, tt.ran)
			}
		})
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	c := healthy("server")
	_ = app.RegisterComponent(c)

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error { cancel(); return nil })

	if err := app.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.stopped {
		t.Error("component not stopped")
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("empty registry: %v", err)
	}
	_ = app.RegisterComponent(healthy("harness"))
	_ = app.RegisterComponent(&mockComponent{
		name:   "server",
		health: component.Health{Name: "server", Status: component.StatusDegraded, Message: "not listening"},
	})

	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "server=degraded(not listening)") {
		t.Errorf("ready check = %v", err)
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	app := newTestApp(t, WithLogger(log))
	_ = app.RegisterComponent(healthy("harness"))
	_ = app.RegisterComponent(&serverComponent{*healthy("server")})

	s := app.Summary()
	if len(s.Components) != 1 || s.Components[0].Name != "server" || s.Components[0].Port != 8080 {
		t.Errorf("components = %+v", s.Components)
	}
	if len(s.Routes) != 1 || s.Routes[0].Path != "/v1/batches" {
		t.Errorf("routes = %+v", s.Routes)
	}

	app.LogSummary()
	out := buf.String()
	if !strings.Contains(out, `"port":8080`) || !strings.Contains(out, "POST   /v1/batches -> runBatch") {
		t.Errorf("summary log = %s", out)
	}
}
