// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupDisabledInstallsPropagator(t *testing.T) {
	p, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	fields := otel.GetTextMapPropagator().Fields()
	var hasTraceParent bool
	for _, f := range fields {
		if f == "traceparent" {
			hasTraceParent = true
		}
	}
	if !hasTraceParent {
		t.Fatal("W3C propagator must be installed even with tracing off")
	}
}

func TestSetupWithoutEndpointRecordsSpans(t *testing.T) {
	p, err := Setup(context.Background(), Config{
		ServiceName:    "portald-test",
		ServiceVersion: "v0.0.0",
		SampleRate:     1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := Tracer("portald-test").Start(context.Background(), "probe-op")
	defer span.End()
	if !span.IsRecording() {
		t.Fatal("span must record with the SDK provider installed")
	}
	if !span.SpanContext().IsValid() {
		t.Fatal("span context must be valid for propagation")
	}
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{
		ServiceName: "portald-test",
		Exporter:    "carrier-pigeon",
		Endpoint:    "localhost:4318",
	})
	if err == nil {
		t.Fatal("expected unknown exporter to be rejected")
	}
}

func TestSamplerMapping(t *testing.T) {
	tests := []struct {
		rate float64
		want sdktrace.Sampler
	}{
		{1.0, sdktrace.AlwaysSample()},
		{1.5, sdktrace.AlwaysSample()},
		{0.0, sdktrace.NeverSample()},
		{-0.5, sdktrace.NeverSample()},
		{0.25, sdktrace.TraceIDRatioBased(0.25)},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate); got.Description() != tt.want.Description() {
			t.Errorf("samplerFor(%v) = %s, want %s", tt.rate, got.Description(), tt.want.Description())
		}
	}
}
