// SPDX-License-Identifier: MIT

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := Config{Enabled: false, ServiceName: "test-service"}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("expected noop provider (tp == nil)")
	}

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_WritesSpansToOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Enabled:      true,
		ServiceName:  "test-service",
		Output:       &buf,
		SamplingRate: 1.0,
	}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := Tracer("test").Start(context.Background(), "unit-of-work")
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "unit-of-work") {
		t.Errorf("expected exported span JSON to contain span name, got: %s", buf.String())
	}
}

func TestNewProvider_SamplingRates(t *testing.T) {
	rates := []float64{1.0, 0.0, 0.5}
	for _, rate := range rates {
		cfg := Config{Enabled: true, ServiceName: "test-service", SamplingRate: rate, Output: &bytes.Buffer{}}
		provider, err := NewProvider(context.Background(), cfg)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if provider == nil {
			t.Fatal("expected non-nil provider")
		}
		_ = provider.Shutdown(context.Background())
	}
}

func TestProvider_Shutdown(t *testing.T) {
	provider := &Provider{tp: nil}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on noop shutdown, got: %v", err)
	}
}

func TestProvider_ShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &Provider{tp: nil}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("expected no error on noop shutdown with canceled context, got: %v", err)
	}
}

func TestTracer(t *testing.T) {
	cfg := Config{Enabled: false, ServiceName: "test-service"}
	if _, err := NewProvider(context.Background(), cfg); err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	tracer := Tracer("test-tracer")
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}

	ctx, span := tracer.Start(context.Background(), "test-span")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	span.End()

	if trace.SpanFromContext(ctx) == nil {
		t.Error("expected span in context")
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := Config{
		ServiceName:    "layoutd",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		SamplingRate:   1.0,
	}

	if cfg.ServiceName != "layoutd" {
		t.Errorf("expected ServiceName=layoutd, got %s", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.0.0" {
		t.Errorf("expected ServiceVersion=1.0.0, got %s", cfg.ServiceVersion)
	}
	if cfg.Environment != "test" {
		t.Errorf("expected Environment=test, got %s", cfg.Environment)
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("expected SamplingRate=1.0, got %f", cfg.SamplingRate)
	}
}

func TestProvider_ConcurrentShutdown(t *testing.T) {
	provider := &Provider{tp: nil}

	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = provider.Shutdown(ctx)
			done <- struct{}{}
		}()
	}

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for concurrent shutdown")
		}
	}
}
