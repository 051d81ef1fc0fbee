package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestWriterFieldsAndLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "pipeline"))

	log.Debug("hidden")
	log.Info("run finished", String("run_id", "r1"), Int("offers", 2), Err(errors.New("boom")))

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}
	got := lines[0]
	for k, want := range map[string]any{
		"level":   "info",
		"message": "run finished",
		"comp":    "pipeline",
		"run_id":  "r1",
		"offers":  float64(2),
		"err":     "boom",
	} {
		if got[k] != want {
			t.Fatalf("%s = %v, want %v", k, got[k], want)
		}
	}
	if c, _ := got["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %q", got["caller"])
	}
}

func TestWithDoesNotShareFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := NewWriter(&buf, "debug")
	a := base.With(String("route", "GIG-SSA"))
	_ = base.With(String("route", "GIG-REC"))
	a.Info("check")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 1 || lines[0]["route"] != "GIG-SSA" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"debug":   "debug",
		" WARN ":  "warn",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
		"":        "info",
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNopAndZero(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	zero.Info("dropped")
	if Nop().IsZero() {
		t.Fatal("Nop logger should not be zero")
	}
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "farewatch.log")
	log, closer, err := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Warn("provider call failed", String("stage", "calendar"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := decodeLines(t, b)
	if len(lines) != 1 || lines[0]["stage"] != "calendar" || lines[0]["level"] != "warn" {
		t.Fatalf("unexpected file log: %s", b)
	}
}
