// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

package otelsetup

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup(t *testing.T) {
	// Disable exporters so the test neither needs a collector nor spams stdout.
	t.Setenv("OTEL_TRACES_EXPORTER", "none")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	ctx := context.Background()
	shutdown, err := Setup(ctx, "test-service", "0.0.1")
	if err != nil {
		t.Fatalf("Setup returned unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup returned nil shutdown function")
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown returned error: %v", err)
	}
}

// captureHandler is a slog.Handler that captures the last record's attributes.
type captureHandler struct {
	attrs   []slog.Attr
	enabled bool
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return h.enabled
}

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	h.attrs = nil
	record.Attrs(func(a slog.Attr) bool {
		h.attrs = append(h.attrs, a)
		return true
	})
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestTraceHandler_NoSpanContext(t *testing.T) {
	inner := &captureHandler{enabled: true}
	handler := NewTraceHandler(inner)

	rec := slog.Record{}
	rec.Message = "no span"

	if err := handler.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned unexpected error: %v", err)
	}

	for _, attr := range inner.attrs {
		if attr.Key == "trace.id" || attr.Key == "span.id" {
			t.Errorf("unexpected attribute %q on record without span context", attr.Key)
		}
	}
}

func TestTraceHandler_WithSpanContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatal("expected valid span context")
	}

	inner := &captureHandler{enabled: true}
	handler := NewTraceHandler(inner)

	rec := slog.Record{}
	rec.Message = "with span"

	if err := handler.Handle(ctx, rec); err != nil {
		t.Fatalf("Handle returned unexpected error: %v", err)
	}

	got := map[string]string{}
	for _, attr := range inner.attrs {
		got[attr.Key] = attr.Value.String()
	}
	if got["trace.id"] != sc.TraceID().String() {
		t.Errorf("trace.id = %q, want %q", got["trace.id"], sc.TraceID().String())
	}
	if got["span.id"] != sc.SpanID().String() {
		t.Errorf("span.id = %q, want %q", got["span.id"], sc.SpanID().String())
	}
}

func TestTraceHandler_Enabled(t *testing.T) {
	inner := &captureHandler{enabled: false}
	handler := NewTraceHandler(inner)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled should return false when inner handler returns false")
	}

	inner.enabled = true
	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled should return true when inner handler returns true")
	}
}

func TestNewLogger_TraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	sc := trace.SpanContextFromContext(ctx)

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	logger.InfoContext(ctx, "hello world")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v\nraw output: %s", err, buf.String())
	}

	if entry["trace.id"] != sc.TraceID().String() {
		t.Errorf("trace.id = %v, want %q", entry["trace.id"], sc.TraceID().String())
	}
	if entry["span.id"] != sc.SpanID().String() {
		t.Errorf("span.id = %v, want %q", entry["span.id"], sc.SpanID().String())
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("suppressed")
	if buf.Len() != 0 {
		t.Errorf("debug record should be suppressed at info level, got: %s", buf.String())
	}

	debugBuf := bytes.Buffer{}
	debugLogger := NewLogger(&debugBuf, slog.LevelDebug)
	debugLogger.Debug("visible")
	if debugBuf.Len() == 0 {
		t.Error("debug record should be emitted at debug level")
	}
}
