package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected no error on shutdown, got %v", err)
	}
}

func TestSetupExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Options{Enabled: true, Writer: &buf, ServiceName: "telemetry-test"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "exported span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected no error on shutdown, got %v", err)
	}
	if !strings.Contains(buf.String(), "exported span") {
		t.Fatalf("expected span to be exported, got %q", buf.String())
	}
}
