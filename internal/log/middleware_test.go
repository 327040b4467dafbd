package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: buf})
}

func TestMiddlewareInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside handler")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.component != ComponentHTTP {
		t.Fatalf("expected http component logger, got %+v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "request_id=req_1") || !strings.Contains(out, "component=http") {
		t.Fatalf("expected request id and component in log line, got %q", out)
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.component != "unknown" || l.Logger == nil {
		t.Fatalf("expected default logger, got %+v", l)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	ctx := context.Background()

	sl.LogError(ctx, "rejected", errors.New("invalid currency"), ErrorTypeValidation, OpCreate, nil)
	sl.LogError(ctx, "failed", errors.New("disk full"), ErrorTypeDatabase, OpCreate, NewFields().WithSubscriptionID("x"))
	sl.LogSubscriptionChange(ctx, OpDelete, "x", "Netflix", "USD", "monthly")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=WARN") {
		t.Errorf("validation errors should log at WARN: %s", lines[0])
	}
	if !strings.Contains(lines[1], "level=ERROR") || !strings.Contains(lines[1], "subscription_id=x") {
		t.Errorf("storage errors should log at ERROR with id: %s", lines[1])
	}
	if !strings.Contains(lines[2], "operation=delete") {
		t.Errorf("change log missing operation: %s", lines[2])
	}
}

func TestStructuredLoggerUsesRequestLogger(t *testing.T) {
	var fallback, scoped bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&fallback))

	h := Middleware(newBufferLogger(&scoped))(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sl.LogError(r.Context(), "Subscription not found", errors.New("subscription not found"), ErrorTypeNotFound, OpRead, nil)
			sl.LogSubscriptionChange(r.Context(), OpCreate, "x", "Netflix", "USD", "monthly")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if fallback.Len() != 0 {
		t.Fatalf("request logs should not use the fallback logger: %q", fallback.String())
	}
	lines := strings.Split(strings.TrimSpace(scoped.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", scoped.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "request_id=req_42") {
			t.Errorf("missing request id: %s", line)
		}
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Output: &buf}).
		With(FieldRequestID, "req_7").
		WithComponent(ComponentHTTP)

	logger.Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("expected a single http component, got %q", out)
	}
	if !strings.Contains(out, "request_id=req_7") {
		t.Fatalf("attributes added before WithComponent must survive: %q", out)
	}
}
