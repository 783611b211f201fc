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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/remoteled/platform/internal/app"
	"github.com/remoteled/platform/internal/authz"
	"github.com/remoteled/platform/internal/ble"
	"github.com/remoteled/platform/internal/clock"
	"github.com/remoteled/platform/internal/config"
	"github.com/remoteled/platform/internal/domain"
	"github.com/remoteled/platform/internal/events"
	"github.com/remoteled/platform/internal/storage/postgres"
	transporthttp "github.com/remoteled/platform/internal/transport/http"
	"github.com/remoteled/platform/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	config.LoadEnvFile(logger)

	cfg, err := config.LoadFromEnv(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	key, err := cfg.LoadSigningKey(logger)
	if err != nil {
		log.Fatalf("load signing key: %v", err)
	}
	signer, err := authz.NewSigner(key)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	bus := events.NewBus(logger)
	var publisher app.EventPublisher = bus
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = events.Connect(cfg.NATSURL, "remoteled-api", logger)
		if err != nil {
			log.Fatalf("connect to nats: %v", err)
		}
		defer nc.Close()
		publisher = events.Multi{bus, events.NewNATSPublisher(nc)}
	} else {
		logger.Printf("WARN: NATS_URL not set, events stay in-process")
	}

	radio := ble.NewManager(newTransport(cfg, logger), ble.Config{
		Key:            cfg.BLEKey,
		ScanTimeout:    cfg.BLEScanTimeout,
		ConnectTimeout: cfg.BLEConnectTimeout,
	}, logger)

	clk := clock.NewSystem()
	orderRepo := postgres.NewOrderRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	authRepo := postgres.NewAuthorizationRepository(pool)
	logRepo := postgres.NewTelemetryRepository(pool)

	activation := app.NewActivationService(radio, publisher, clk, logger)
	bus.Subscribe(activation.HandleOrderEvent)

	catalogSvc := app.NewCatalogService(catalogRepo, clk)
	orderSvc := app.NewOrderService(orderRepo, catalogRepo, publisher, clk, app.WithOrderLogger(logger))
	authSvc := app.NewAuthorizationService(orderRepo, authRepo, signer, clk,
		app.WithAuthorizationWindow(cfg.AuthExpiry),
		app.WithAuthorizationLogger(logger),
	)
	paymentSvc := app.NewPaymentService(orderRepo, authSvc, activation, publisher, clk,
		app.WithMockPayments(cfg.EnableMockPayments),
		app.WithPaymentLogger(logger),
	)
	telemetrySvc := app.NewTelemetryService(orderRepo, logRepo, catalogRepo, publisher, clk, logger)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	if nc != nil {
		sub, err := events.SubscribeTelemetry(runCtx, nc, telemetryFromNATS(telemetrySvc), logger)
		if err != nil {
			log.Fatalf("subscribe telemetry: %v", err)
		}
		defer func() { _ = sub.Unsubscribe() }()
	}

	mux := transporthttp.NewRouter(transporthttp.Services{
		DB:             pool,
		Orders:         orderSvc,
		Payments:       paymentSvc,
		Authorizations: authSvc,
		PublicKey:      signer,
		Telemetry:      telemetrySvc,
		LED:            activation,
		Devices:        catalogSvc,
		Catalog:        catalogSvc,
	}, logger)
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("api listening on :%s mock_payments=%t ble=%t", cfg.Port, cfg.EnableMockPayments, !cfg.BLEDisabled)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	stopRun()
	if err := activation.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: activation tasks still running at exit: %v", err)
	}
	log.Printf("server stopped")
}

func newTransport(cfg config.Config, logger *log.Logger) ble.Transport {
	if cfg.BLEDisabled {
		logger.Printf("WARN: BLE disabled, LED commands will report led_triggered=false")
		return ble.Unavailable{}
	}
	t, err := ble.NewTinyGoTransport(cfg.BLEServiceUUID, cfg.BLECharUUID)
	if err != nil {
		logger.Printf("WARN: bluetooth adapter unavailable err=%v", err)
		return ble.Unavailable{}
	}
	return t
}

func telemetryFromNATS(svc *app.TelemetryService) events.TelemetryHandler {
	return func(ctx context.Context, deviceID string, msg events.TelemetryMessage) error {
		_, err := svc.Record(ctx, deviceID, app.TelemetryInput{
			Event:       domain.TelemetryEvent(msg.Event),
			OrderID:     msg.OrderID,
			Details:     msg.Details,
			PayloadHash: msg.PayloadHash,
		})
		return err
	}
}
