package config

import (
	"testing"
	"time"
)

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_ADDR", ":8080")

	cfg, err := LoadAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected api addr: %+v", cfg)
	}
}

func TestLoadAPI_Missing(t *testing.T) {
	t.Setenv("API_ADDR", "")

	if _, err := LoadAPI(); err == nil {
		t.Fatalf("expected error for missing API_ADDR")
	}
}

func TestLoadObservability(t *testing.T) {
	t.Setenv("OBS_ADDR", ":9999")

	cfg, err := LoadObservability()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("unexpected observability addr: %+v", cfg)
	}
}

func TestLoadAirline(t *testing.T) {
	t.Setenv("AIRLINE_API_URL", "https://api.airline.test")
	t.Setenv("AIRLINE_API_TOKEN", "tok")

	cfg, err := LoadAirline()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://api.airline.test" || cfg.Token != "tok" {
		t.Fatalf("unexpected airline cfg: %+v", cfg)
	}
}

func TestLoadAirline_MissingToken(t *testing.T) {
	t.Setenv("AIRLINE_API_URL", "https://api.airline.test")
	t.Setenv("AIRLINE_API_TOKEN", "")

	if _, err := LoadAirline(); err == nil {
		t.Fatalf("expected error for missing token")
	}
}

func TestLoadPayments(t *testing.T) {
	t.Setenv("PAYMENTS_API_URL", "https://api.payments.test")
	t.Setenv("PAYMENTS_SECRET_KEY", "sk_test")

	cfg, err := LoadPayments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://api.payments.test" || cfg.SecretKey != "sk_test" {
		t.Fatalf("unexpected payments cfg: %+v", cfg)
	}
}

func TestLoadStorage(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/skybook")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_WINDOW_TTL", "90s")

	cfg, err := LoadStorage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/skybook" {
		t.Fatalf("unexpected database url: %s", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected redis url: %s", cfg.RedisURL)
	}
	if cfg.RedisTTL != 90*time.Second {
		t.Fatalf("unexpected redis ttl: %v", cfg.RedisTTL)
	}
}

func TestLoadStorage_EmptyIsValid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_WINDOW_TTL", "")

	cfg, err := LoadStorage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected empty storage cfg: %+v", cfg)
	}
}

func TestLoadStorage_BadTTL(t *testing.T) {
	t.Setenv("REDIS_WINDOW_TTL", "soon")

	if _, err := LoadStorage(); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestLoadAlerts(t *testing.T) {
	t.Setenv("ALERT_WEBHOOK_URL", " https://hooks.chat.test/T123 ")

	cfg := LoadAlerts()
	if cfg.WebhookURL != "https://hooks.chat.test/T123" {
		t.Fatalf("unexpected webhook url: %q", cfg.WebhookURL)
	}
}
