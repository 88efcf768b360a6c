package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"skybook/cmd/server/config"
	"skybook/internal/airline"
	"skybook/internal/booking"
	bookingdb "skybook/internal/db/booking"
	"skybook/internal/observability"
	"skybook/internal/payments"
)

// buildSaga wires the booking saga from config. Postgres and Redis are
// optional: without them the service runs on in-process fallbacks,
// which is enough for local development and tests but loses
// cross-instance coordination.
func buildSaga(
	ctx context.Context,
	storage config.StorageConfig,
	airlineCfg config.AirlineConfig,
	paymentsCfg config.PaymentsConfig,
	alertsCfg config.AlertsConfig,
	metrics *observability.Metrics,
	events booking.EventPublisher,
	logf func(format string, args ...any),
) (*booking.Saga, func()) {
	if logf == nil {
		logf = log.Printf
	}

	cleanup := func() {}
	var ledger booking.Ledger = booking.NewInMemoryLedger()
	var trips booking.TripSource = booking.NewInMemoryTripSource()

	if storage.DatabaseURL != "" {
		sqlDB, err := sql.Open("pgx", storage.DatabaseURL)
		if err != nil {
			logf("postgres open failed, falling back to in-memory ledger: %v", err)
		} else {
			setupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			store, err := bookingdb.NewLedgerStoreWithSchema(setupCtx, sqlDB)
			if err != nil {
				logf("postgres init failed, falling back to in-memory ledger: %v", err)
				_ = sqlDB.Close()
			} else {
				logf("postgres ledger enabled")
				ledger = store
				trips = bookingdb.NewTripStore(sqlDB)
				cleanup = func() {
					if err := sqlDB.Close(); err != nil {
						logf("close postgres: %v", err)
					}
				}
			}
		}
	}

	var limiter airline.CallLimiter = airline.NewWindowLimiter(metrics.AddRateLimitWait)
	if storage.RedisURL != "" {
		opts, err := redis.ParseURL(storage.RedisURL)
		if err != nil {
			logf("redis url invalid, falling back to in-process rate limiter: %v", err)
		} else {
			client := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := client.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				logf("redis unreachable, falling back to in-process rate limiter: %v", err)
				_ = client.Close()
			} else {
				logf("redis rate limiter enabled")
				limiter = airline.NewRedisWindowLimiter(client, metrics.AddRateLimitWait)
				prevCleanup := cleanup
				cleanup = func() {
					if err := client.Close(); err != nil {
						logf("close redis: %v", err)
					}
					prevCleanup()
				}
			}
		}
	}

	airlineClient := airline.NewClient(airlineCfg.BaseURL, airlineCfg.Token, limiter, airline.DefaultRetryPolicy())
	paymentsClient := payments.NewClient(paymentsCfg.BaseURL, paymentsCfg.SecretKey)

	var alerts booking.Alerter = booking.NoopAlerter{}
	if alertsCfg.WebhookURL != "" {
		alerts = observability.NewChatAlerter(alertsCfg.WebhookURL)
	}

	compensator := booking.NewCompensator(paymentsClient, ledger, metrics, alerts, events)
	saga := booking.NewSaga(booking.Deps{
		Trips:       trips,
		Ledger:      ledger,
		Selector:    booking.NewOfferSelector(airlineClient),
		Payments:    paymentsClient,
		Airline:     airlineClient,
		Compensator: compensator,
		Counters:    metrics,
		Alerts:      alerts,
		Events:      events,
	})

	return saga, cleanup
}
