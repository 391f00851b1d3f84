package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", "dev"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewAppliesLevel(t *testing.T) {
	log, err := New("WARN", "prod")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if log.Core().Enabled(-1) {
		t.Fatalf("debug must be disabled at warn level")
	}
	if !log.Core().Enabled(1) {
		t.Fatalf("warn must be enabled at warn level")
	}
}
