package component

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/npuflow/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	desc     *Description
	order    *[]string
	stopCtx  context.Context
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	if f.order != nil && f.startErr == nil {
		*f.order = append(*f.order, "start:"+f.name)
	}
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.stopCtx = ctx
	if f.order != nil {
		*f.order = append(*f.order, "stop:"+f.name)
	}
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

type describedComponent struct {
	fakeComponent
}

func (d *describedComponent) Describe() Description { return *d.desc }

func newRegistry() *Registry {
	return NewRegistry(logger.Nop())
}

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry()
	if err := r.Register(&fakeComponent{name: "harness"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakeComponent{name: "harness"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if got := r.Get("harness"); got == nil || got.Name() != "harness" {
		t.Errorf("Get = %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestLifecycleOrder(t *testing.T) {
	r := newRegistry()
	var order []string
	for _, name := range []string{"telemetry", "harness", "server"} {
		_ = r.Register(&fakeComponent{name: name, order: &order})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"start:telemetry", "start:harness", "start:server",
		"stop:server", "stop:harness", "stop:telemetry",
	}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestStartFailureStopsStartedOnly(t *testing.T) {
	r := newRegistry()
	var order []string
	_ = r.Register(&fakeComponent{name: "telemetry", order: &order})
	_ = r.Register(&fakeComponent{name: "harness", order: &order, startErr: fmt.Errorf("model not found")})
	_ = r.Register(&fakeComponent{name: "server", order: &order})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"start:telemetry", "stop:telemetry"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "a", stopErr: fmt.Errorf("flush failed")})
	_ = r.Register(&fakeComponent{name: "b", stopErr: fmt.Errorf("listener busy")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected stop error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("expected two joined errors, got %v", err)
	}
}

func TestStopTimeout(t *testing.T) {
	r := newRegistry()
	c := &fakeComponent{name: "server"}
	_ = r.Register(c)
	r.SetStopTimeout(time.Second)
	_ = r.StartAll(context.Background())
	_ = r.StopAll(context.Background())

	deadline, ok := c.stopCtx.Deadline()
	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("stop context deadline = %v, %v", deadline, ok)
	}
}

func TestHealthAll(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "harness", health: Health{Name: "harness", Status: StatusHealthy}})
	_ = r.Register(&fakeComponent{name: "server", health: Health{Name: "server", Status: StatusDegraded, Message: "not listening"}})

	got := r.HealthAll(context.Background())
	if len(got) != 2 || got[0].Status != StatusHealthy || got[1].Status != StatusDegraded {
		t.Errorf("health = %+v", got)
	}
}

func TestDescribe(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "plain"})
	_ = r.Register(&describedComponent{fakeComponent{name: "server", desc: &Description{Type: "server", Port: 8080}}})

	got := r.Describe()
	if len(got) != 1 {
		t.Fatalf("descriptions = %+v", got)
	}
	if got[0].Name != "server" || got[0].Port != 8080 {
		t.Errorf("description = %+v", got[0])
	}
}
