package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// APIConfig holds the public HTTP server settings.
type APIConfig struct {
	Addr string
}

// ObservabilityConfig holds the HTTP address for the metrics endpoint.
type ObservabilityConfig struct {
	Addr string
}

// AirlineConfig holds the airline API connection settings.
type AirlineConfig struct {
	BaseURL string
	Token   string
}

// PaymentsConfig holds the payment processor connection settings.
type PaymentsConfig struct {
	BaseURL   string
	SecretKey string
}

// StorageConfig holds optional backing-store settings. Empty values
// mean the corresponding in-process fallback is used.
type StorageConfig struct {
	DatabaseURL string
	RedisURL    string
	RedisTTL    time.Duration
}

// AlertsConfig holds the optional chat webhook for saga alerts.
type AlertsConfig struct {
	WebhookURL string
}

// LoadAPI reads the public HTTP server settings from env.
func LoadAPI() (APIConfig, error) {
	addr, err := requiredString("API_ADDR")
	if err != nil {
		return APIConfig{}, err
	}
	return APIConfig{Addr: addr}, nil
}

// LoadObservability reads metrics HTTP server address from env.
func LoadObservability() (ObservabilityConfig, error) {
	addr, err := requiredString("OBS_ADDR")
	if err != nil {
		return ObservabilityConfig{}, err
	}
	return ObservabilityConfig{Addr: addr}, nil
}

// LoadAirline reads airline API settings from env.
func LoadAirline() (AirlineConfig, error) {
	baseURL, err := requiredString("AIRLINE_API_URL")
	if err != nil {
		return AirlineConfig{}, err
	}
	token, err := requiredString("AIRLINE_API_TOKEN")
	if err != nil {
		return AirlineConfig{}, err
	}
	return AirlineConfig{BaseURL: baseURL, Token: token}, nil
}

// LoadPayments reads payment processor settings from env.
func LoadPayments() (PaymentsConfig, error) {
	baseURL, err := requiredString("PAYMENTS_API_URL")
	if err != nil {
		return PaymentsConfig{}, err
	}
	key, err := requiredString("PAYMENTS_SECRET_KEY")
	if err != nil {
		return PaymentsConfig{}, err
	}
	return PaymentsConfig{BaseURL: baseURL, SecretKey: key}, nil
}

// LoadStorage reads optional Postgres and Redis settings from env.
func LoadStorage() (StorageConfig, error) {
	cfg := StorageConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
	}
	ttl, err := optionalDuration("REDIS_WINDOW_TTL")
	if err != nil {
		return cfg, err
	}
	if ttl != nil {
		cfg.RedisTTL = *ttl
	}
	return cfg, nil
}

// LoadAlerts reads the optional alert webhook from env.
func LoadAlerts() AlertsConfig {
	return AlertsConfig{WebhookURL: strings.TrimSpace(os.Getenv("ALERT_WEBHOOK_URL"))}
}

func requiredString(name string) (string, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return raw, nil
}

func optionalDuration(name string) (*time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if val < 0 {
		return nil, fmt.Errorf("%s must be >= 0", name)
	}
	return &val, nil
}
