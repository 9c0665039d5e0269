package otel

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := ConfigFromEnv("1.2.3")
	if cfg.ServiceName != DefaultServiceName || cfg.ServiceVersion != "1.2.3" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.OTLPEndpoint != "" || !cfg.MetricsEnabled {
		t.Errorf("expected metrics only, got %+v", cfg)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	if got := ConfigFromEnv("").OTLPEndpoint; got != "collector:4318" {
		t.Errorf("unexpected endpoint %q", got)
	}
}

func TestSetup_MetricsOnly(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{MetricsEnabled: true})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
