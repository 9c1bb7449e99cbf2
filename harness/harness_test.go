package harness

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/kbukum/npuflow/component"
	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/engine/sim"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/preprocess"
	"github.com/kbukum/npuflow/scheduler"
)

const classes = 10

func testConfig() Config {
	return Config{
		Model:   "resnet50.dxnn",
		Classes: classes,
		Layout:  preprocess.Layout{Width: 2, Height: 2, Channels: 3},
		Scheduler: scheduler.Config{
			Mode:   scheduler.ModePipelined,
			Window: 3,
		},
	}
}

func simOpener() engine.Opener {
	return sim.Opener(sim.Config{Classes: classes, MaxLatency: 2 * time.Millisecond})
}

func newSubmitter(t *testing.T, cfg Config) *Submitter {
	t.Helper()
	s, err := New(cfg, simOpener(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestLifecycle(t *testing.T) {
	s := newSubmitter(t, testConfig())
	ctx := context.Background()

	if _, err := s.RunBatch(ctx, [][]byte{{1}}); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Fatalf("expected NOT_INITIALIZED, got %v", err)
	}
	if h := s.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %+v", h)
	}

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(ctx, "other.dxnn"); !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("second initialize: %v", err)
	}
	info, err := s.EngineInfo()
	if err != nil || info.Model != "resnet50.dxnn" {
		t.Errorf("engine info = %+v, %v", info, err)
	}
	if h := s.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health after start = %+v", h)
	}

	inputs := [][]byte{{3}, {4, 4}, {9}, {1}, {2}}
	results, err := s.RunBatch(ctx, inputs)
	if err != nil {
		t.Fatal(err)
	}
	for i, in := range inputs {
		if want := sim.ClassFor(in, classes); results[i].ClassIndex != want {
			t.Errorf("result[%d] = %d, want %d", i, results[i].ClassIndex, want)
		}
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunBatch(ctx, inputs); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("run after stop: %v", err)
	}
}

func TestWarmup(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Warmup = 4
	s := newSubmitter(t, cfg)

	if err := s.Warmup(ctx); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Fatalf("warmup before start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Warmup(ctx); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	cfg.Warmup = 0
	idle := newSubmitter(t, cfg)
	if err := idle.Warmup(ctx); err != nil {
		t.Errorf("disabled warmup should be a no-op: %v", err)
	}
}

func TestRunFiles(t *testing.T) {
	cfg := testConfig()
	cfg.Layout.Align = 8
	s := newSubmitter(t, cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		frame := make([]byte, 12)
		frame[0] = byte(i)
		path := filepath.Join(dir, "frame"+strconv.Itoa(i)+".raw")
		if err := os.WriteFile(path, frame, 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	payload, err := s.Preprocess(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) != cfg.Layout.PackedBytes() {
		t.Errorf("payload = %d bytes, want %d", len(payload), cfg.Layout.PackedBytes())
	}

	results, err := s.RunFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.ClassIndex != i {
			t.Errorf("result[%d] = class %d", i, r.ClassIndex)
		}
	}

	_, err = s.RunFiles(context.Background(), append(paths, filepath.Join(dir, "missing.raw")))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing file: expected INVALID_INPUT, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing model", func(c *Config) { c.Model = "" }},
		{"unknown decoder", func(c *Config) { c.Decoder = "yolo" }},
		{"bad cooling", func(c *Config) { c.Metadata.Cooling = "Fan" }},
		{"pipelined wait", func(c *Config) { c.Scheduler.Strategy = scheduler.StrategyWait }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, simOpener()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
	if _, err := New(testConfig(), nil); err == nil {
		t.Error("expected error for nil opener")
	}
}

func TestOpenFailureLeavesUninitialized(t *testing.T) {
	s, err := New(testConfig(), func(string) (engine.Engine, error) {
		return nil, os.ErrNotExist
	}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected open error")
	}
	if _, err := s.EngineInfo(); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("engine info: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	s := newSubmitter(t, testConfig())
	d := s.Describe()
	if d.Type != "harness" || d.Details != "model=resnet50.dxnn mode=pipelined window=3 queue=64" {
		t.Errorf("describe = %+v", d)
	}
}

func TestMetadataDefaults(t *testing.T) {
	dir := t.TempDir()
	osRelease := filepath.Join(dir, "os-release")
	memInfo := filepath.Join(dir, "meminfo")
	_ = os.WriteFile(osRelease, []byte("NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 24.04.5 LTS\"\n"), 0o600)
	_ = os.WriteFile(memInfo, []byte("MemTotal:       33554432 kB\nMemFree: 1 kB\n"), 0o600)

	origOS, origMem := osReleasePath, memInfoPath
	osReleasePath, memInfoPath = osRelease, memInfo
	defer func() { osReleasePath, memInfoPath = origOS, origMem }()

	m := Metadata{CPUCoreCount: "16"}
	m.ApplyDefaults()
	if m.OperatingSystem != "Ubuntu 24.04.5 LTS" {
		t.Errorf("os = %q", m.OperatingSystem)
	}
	if m.CPURAMCapacity != "32 GiB" {
		t.Errorf("ram = %q", m.CPURAMCapacity)
	}
	if m.CPUCoreCount != "16" {
		t.Errorf("configured core count overwritten: %q", m.CPUCoreCount)
	}

	osReleasePath, memInfoPath = filepath.Join(dir, "none"), filepath.Join(dir, "none")
	m = Metadata{}
	m.ApplyDefaults()
	if m.OperatingSystem == "" || m.CPUCoreCount == "" || m.CPURAMCapacity != "" {
		t.Errorf("fallbacks = %+v", m)
	}
}
