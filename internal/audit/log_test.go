package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithEmail(ctx, "alice@example.com")

	if err := LogEvent(ctx, PostCreated, map[string]any{"post_id": "01HPOST"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0].ContextMap()
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "post.created" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["email"] != "alice@example.com" {
		t.Fatalf("unexpected email: %v", entry["email"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["post_id"] != "01HPOST" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventAnonymous(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	if err := LogEvent(context.Background(), AuthLoginFailed, nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	entry := logs.All()[0].ContextMap()
	if _, ok := entry["email"]; ok {
		t.Fatalf("anonymous event carries email: %v", entry)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("unexpected request id: %v", entry)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}
