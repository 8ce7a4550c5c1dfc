package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func captureDefault(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")

	if lc := GetContext(ctx); lc.RunID != "run-123" {
		t.Errorf("expected run-123, got %s", lc.RunID)
	}
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithWorkerID(ctx, 3)
	ctx = WithStage(ctx, "checkpoint")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" {
		t.Error("RunID was lost in chaining")
	}
	if lc.WorkerID != 3 {
		t.Errorf("expected worker 3, got %d", lc.WorkerID)
	}
	if lc.Stage != "checkpoint" {
		t.Error("expected checkpoint")
	}
}

func TestWorkerZeroIsLogged(t *testing.T) {
	attrs := Attrs(WithWorkerID(context.Background(), 0))
	if len(attrs) != 1 || attrs[0].Key != "worker.id" {
		t.Fatalf("expected worker.id attr for worker 0, got %v", attrs)
	}
}

func TestEmptyContext(t *testing.T) {
	if attrs := Attrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}

func TestInfoContextIncludesAttrs(t *testing.T) {
	buf := captureDefault(t, slog.LevelInfo)

	ctx := WithRunID(context.Background(), "run-9")
	InfoContext(ctx, "Batch merged", slog.Int("games", 1000))

	out := buf.String()
	for _, want := range []string{"Batch merged", "run.id=run-9", "games=1000"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestStartStageLogsFailure(t *testing.T) {
	buf := captureDefault(t, slog.LevelDebug)

	_, end := StartStage(context.Background(), "save")
	end(errors.New("disk full"))

	out := buf.String()
	if !strings.Contains(out, "Stage failed") || !strings.Contains(out, "stage=save") {
		t.Errorf("unexpected log output %q", out)
	}
}
