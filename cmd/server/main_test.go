package main

import (
	"context"
	"testing"

	"skybook/cmd/server/config"
	"skybook/internal/booking"
	"skybook/internal/observability"
)

func TestBuildSagaFallsBackToInMemory(t *testing.T) {
	metrics := observability.NewMetrics()

	saga, cleanup := buildSaga(
		context.Background(),
		config.StorageConfig{},
		config.AirlineConfig{BaseURL: "https://api.airline.test", Token: "tok"},
		config.PaymentsConfig{BaseURL: "https://api.payments.test", SecretKey: "sk"},
		config.AlertsConfig{},
		metrics,
		booking.NoopPublisher{},
		func(string, ...any) {},
	)
	t.Cleanup(cleanup)

	if saga == nil {
		t.Fatalf("expected saga without external backends")
	}
}

func TestBuildSagaBadRedisURLFallsBack(t *testing.T) {
	metrics := observability.NewMetrics()

	logged := false
	saga, cleanup := buildSaga(
		context.Background(),
		config.StorageConfig{RedisURL: "not-a-url"},
		config.AirlineConfig{BaseURL: "https://api.airline.test", Token: "tok"},
		config.PaymentsConfig{BaseURL: "https://api.payments.test", SecretKey: "sk"},
		config.AlertsConfig{},
		metrics,
		booking.NoopPublisher{},
		func(string, ...any) { logged = true },
	)
	t.Cleanup(cleanup)

	if saga == nil {
		t.Fatalf("expected saga despite bad redis url")
	}
	if !logged {
		t.Fatalf("expected fallback to be logged")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	t.Setenv("API_ADDR", "")

	if err := run(context.Background()); err == nil {
		t.Fatalf("expected error when API_ADDR is missing")
	}
}
