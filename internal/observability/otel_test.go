package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/worldloom/worldloom-backend/internal/logger"
)

func TestSetupInstallsProvider(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}

	// No endpoint selects the stdout exporter; nothing leaves the process.
	tr, err := Setup(context.Background(), Options{SampleRatio: 2.5, Version: "test"}, log)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer tr.Shutdown(context.Background())

	tracer := otel.Tracer("setup-test")
	_, span := tracer.Start(context.Background(), "setup-check")
	if !span.SpanContext().IsValid() {
		t.Fatal("installed provider should issue valid span contexts")
	}
	span.End()
}

func TestShutdownTolerates(t *testing.T) {
	var tr *Tracing
	tr.Shutdown(context.Background()) // nil receiver must not panic
}
