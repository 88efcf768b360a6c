package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"skybook/cmd/server/config"
	"skybook/internal/adapters/httpapi"
	"skybook/internal/booking"
	"skybook/internal/observability"
	"skybook/internal/realtime"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context) error {
	apiCfg, err := config.LoadAPI()
	if err != nil {
		return err
	}
	obsCfg, err := config.LoadObservability()
	if err != nil {
		return err
	}
	airlineCfg, err := config.LoadAirline()
	if err != nil {
		return err
	}
	paymentsCfg, err := config.LoadPayments()
	if err != nil {
		return err
	}
	storageCfg, err := config.LoadStorage()
	if err != nil {
		return err
	}
	alertsCfg := config.LoadAlerts()

	metrics := observability.NewMetrics()

	hub := realtime.NewHub()
	go hub.Run()
	events := booking.NewBroadcastPublisher(hub)

	saga, cleanup := buildSaga(ctx, storageCfg, airlineCfg, paymentsCfg, alertsCfg, metrics, events, log.Printf)
	defer cleanup()

	mux := http.NewServeMux()
	httpapi.NewHandler(saga, metrics).Register(mux)
	mux.HandleFunc("/events", hub.ServeWS)

	apiSrv := &http.Server{
		Addr:    apiCfg.Addr,
		Handler: mux,
	}

	obsMux := http.NewServeMux()
	obsMux.Handle("/metrics", observability.Handler(metrics))
	obsSrv := &http.Server{
		Addr:    obsCfg.Addr,
		Handler: obsMux,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("booking API listening on %s", apiCfg.Addr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("metrics listening on %s", obsCfg.Addr)
		if err := obsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		metrics.MarkShutdown(metrics.Snapshot().InFlight)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
		if err := obsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown: %v", err)
		}
		return nil
	})

	return g.Wait()
}
