package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestInitInstallsProvider(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, Config{ServiceName: "tablewatch-test"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer shutdown(ctx)

	_, span := otel.Tracer("test").Start(ctx, "tick")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Error("span from installed provider should have a valid context")
	}
}

func TestInitStdout(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, Config{UseStdout: true})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

type partialDetector struct{}

func (partialDetector) Detect(context.Context) (*sdkresource.Resource, error) {
	return sdkresource.NewSchemaless(attribute.String("process.pid.source", "partial")), sdkresource.ErrPartialResource
}

type failingDetector struct{}

func (failingDetector) Detect(context.Context) (*sdkresource.Resource, error) {
	return nil, errors.New("detector exploded")
}

func TestNewResourceKeepsPartialResource(t *testing.T) {
	res, err := newResource(context.Background(), Config{ServiceName: "tablewatch-test"}, partialDetector{})
	if err != nil {
		t.Fatalf("partial detection should not fail: %v", err)
	}
	if res == nil {
		t.Fatal("nil resource")
	}
	set := res.Set()
	if v, ok := set.Value(semconv.ServiceNameKey); !ok || v.AsString() != "tablewatch-test" {
		t.Errorf("service.name = %v, %v", v, ok)
	}
	if v, ok := set.Value("process.pid.source"); !ok || v.AsString() != "partial" {
		t.Errorf("partial attributes dropped: %v, %v", v, ok)
	}
}

func TestNewResourceOtherErrorsFail(t *testing.T) {
	if _, err := newResource(context.Background(), Config{}, failingDetector{}); err == nil {
		t.Error("a failed detector should surface its error")
	}
}
