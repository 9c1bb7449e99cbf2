package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func jsonLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewWithWriter(&Config{Level: level, Format: FormatJSON}, "npuflow", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test" {
		t.Errorf("expected service 'test', got %q", l.service)
	}
}

func TestJSONOutputCarriesServiceAndFields(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	l.Info("slice submitted", Fields(FieldSlice, 2, FieldMode, "pipelined"))

	m := decodeLine(t, buf)
	if m["message"] != "slice submitted" {
		t.Errorf("message = %v", m["message"])
	}
	if m["service"] != "npuflow" {
		t.Errorf("service = %v", m["service"])
	}
	if m[FieldSlice] != float64(2) {
		t.Errorf("slice = %v", m[FieldSlice])
	}
	if m[FieldMode] != "pipelined" {
		t.Errorf("mode = %v", m[FieldMode])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := jsonLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if m := decodeLine(t, buf); m["level"] != "warn" {
		t.Errorf("level = %v", m["level"])
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := jsonLogger(t, "nonsense")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}
	l.Info("shown")
	if buf.Len() == 0 {
		t.Fatal("expected info output")
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	cl := l.WithComponent("scheduler")
	if cl.service != "npuflow" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
	cl.Info("ready")
	if m := decodeLine(t, buf); m[FieldComponent] != "scheduler" {
		t.Errorf("component = %v", m[FieldComponent])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	l.WithFields(map[string]interface{}{FieldBatchID: "b-1"}).
		WithError(errors.New("boom")).
		Error("batch failed")

	m := decodeLine(t, buf)
	if m[FieldBatchID] != "b-1" {
		t.Errorf("batch_id = %v", m[FieldBatchID])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	l.WithComponent("x").Error("discarded")
}

func TestInit(t *testing.T) {
	Init(&Config{Level: "info", Format: "console", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := Nop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
	if WithComponent("x") == nil {
		t.Error("expected component logger")
	}
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
}

func TestConsoleFormatNoColor(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "npuflow", &buf)
	l.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "[NPU][INF]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("expected no color codes, got %q", out)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("Fields odd args = %v", f)
	}
	ef := ErrorFields("submit", errors.New("busy"))
	if ef[FieldOperation] != "submit" || ef[FieldError] != "busy" {
		t.Errorf("ErrorFields = %v", ef)
	}
	df := DurationFields("batch", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("DurationFields = %v", df)
	}
}
