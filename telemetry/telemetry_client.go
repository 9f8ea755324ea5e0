package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TelemetryClient manages the lifecycle of the trace exporter and the global tracer provider.
type TelemetryClient struct {
	endpoint string
	service  string
	provider *sdktrace.TracerProvider
	mu       sync.Mutex
	disabled bool // if true, telemetry is disabled (no-op)
}

// NewNoOpTelemetryClient creates a disabled telemetry client that does nothing
func NewNoOpTelemetryClient() *TelemetryClient {
	return &TelemetryClient{
		disabled: true,
	}
}

// NewTelemetryClient builds a client exporting spans over OTLP/HTTP to endpoint (host:port).
// An empty endpoint yields a no-op client.
func NewTelemetryClient(endpoint, service string) *TelemetryClient {
	if endpoint == "" {
		return NewNoOpTelemetryClient()
	}
	return &TelemetryClient{
		endpoint: endpoint,
		service:  service,
	}
}

// Connect creates the exporter and installs the tracer provider globally.
func (c *TelemetryClient) Connect(ctx context.Context) error {
	if c.disabled {
		return nil
	}
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(c.endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter for %s: %w", c.endpoint, err)
	}
	return c.Install(sdktrace.WithBatcher(exp))
}

// Install builds a tracer provider from opts and makes it the global one.
func (c *TelemetryClient) Install(opts ...sdktrace.TracerProviderOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return fmt.Errorf("telemetry client already connected to %s", c.endpoint)
	}
	opts = append(opts, sdktrace.WithResource(resource.NewSchemaless(
		attribute.String("service.name", c.service),
	)))
	c.provider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(c.provider)
	return nil
}

// Close flushes pending spans and shuts the provider down.
func (c *TelemetryClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider == nil {
		return nil
	}
	err := c.provider.Shutdown(ctx)
	c.provider = nil
	return err
}

// Enabled reports whether spans are exported.
func (c *TelemetryClient) Enabled() bool {
	return !c.disabled
}
