package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	if err := Init("debug", "json"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if !Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	if err := Init("loud", "console"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	core := Logger().Core()
	if core.Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be disabled")
	}
	if !core.Enabled(zap.InfoLevel) {
		t.Fatal("expected info level to be enabled")
	}
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")

	if recorded.Len() != 3 {
		t.Fatalf("expected 3 log entries, got %d", recorded.Len())
	}

	messages := recorded.All()
	want := []string{"info message", "error message", "warn message"}
	for i, entry := range messages {
		if entry.Message != want[i] {
			t.Fatalf("entry %d message = %q, want %q", i, entry.Message, want[i])
		}
	}
	if field := messages[0].ContextMap()["k"]; field != "v" {
		t.Fatalf("expected field \"k\" to equal \"v\", got %v", field)
	}
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("registration").Info("module test")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if module := entries[0].ContextMap()["module"]; module != "registration" {
		t.Fatalf("expected module field to be \"registration\", got %v", module)
	}
}
