package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"chatty":  zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode, "info")
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("not shown")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("silent", "k", 1)
	l.Sync()
}

func TestWrap_ReportsCallSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core, zap.AddCaller()))
	l.Info("hello", "k", 1)
	l.With("scope", "test").Warn("again")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if !e.Caller.Defined {
			t.Fatalf("caller not recorded for %q", e.Message)
		}
		if got := filepath.Base(e.Caller.File); got != "logger_test.go" {
			t.Fatalf("%q logged from %s, want logger_test.go", e.Message, got)
		}
	}
}
