package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/config"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/logging"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/storage/postgres"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/storage/redis"
	transporthttp "github.com/zomestaydeveloper/Zomestay-sub001/internal/transport/http"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/worker"
	"github.com/zomestaydeveloper/Zomestay-sub001/migrations"
)

const startupTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.Log)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("parse database url")
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}
	if len(applied) > 0 {
		logger.WithField("migrations", applied).Info("applied migrations")
	}

	publisher := events.New(startupCtx, cfg.Events.Publisher(), logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("close event publisher")
		}
	}()

	webhookOpts := transporthttp.WebhookOptions{Secret: cfg.Webhook.Secret}
	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET not set, payment webhook signatures are not verified")
	}
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		deduper := redis.NewDeduper(client, cfg.Webhook.DedupeTTL)
		if err := deduper.Ping(startupCtx); err != nil {
			logger.WithError(err).Warn("redis unreachable, webhook deliveries are not deduplicated")
		} else {
			webhookOpts.Deduper = deduper
		}
	}

	clk := clock.NewSystem()
	tx := postgres.NewTransactor(pool)
	rooms := postgres.NewRoomRepository(pool)
	ledger := postgres.NewAvailabilityRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	bookings := postgres.NewBookingRepository(pool)

	detector := app.NewConflictDetector(ledger, clk)
	holdSvc := app.NewHoldService(tx, rooms, ledger, clk,
		app.WithHoldTTL(cfg.Hold.TTL),
		app.WithHoldLogger(logger),
	)
	statusSvc := app.NewStatusService(tx, rooms, ledger, orders, clk, logger)
	orderSvc := app.NewOrderService(tx, rooms, ledger, orders, clk,
		app.WithOrderTTL(cfg.Order.TTL),
		app.WithOrderLogger(logger),
	)
	reconSvc := app.NewReconciliationService(tx, rooms, ledger, orders, bookings, clk,
		app.WithPublisher(publisher),
		app.WithPublishTimeout(cfg.Events.PublishTimeout),
		app.WithReconciliationLogger(logger),
	)
	boardSvc := app.NewBoardService(rooms, ledger, bookings, clk)
	adminSvc := app.NewAdminService(rooms, clk)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Reaper.Enabled {
		reaper := app.NewHoldReaper(ledger, orders, reconSvc, clk,
			app.WithReaperGrace(cfg.Reaper.Grace),
			app.WithReaperBatchSize(cfg.Reaper.BatchSize),
			app.WithReaperLogger(logger),
		)
		go worker.NewHoldReaperWorker(reaper, cfg.Reaper.Interval, logger).Start(stopCtx)
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Logger:       logger,
		CORSOrigins:  cfg.HTTP.Origins(),
		DB:           pool,
		Availability: detector,
		Holds:        holdSvc,
		Orders:       orderSvc,
		Cash:         reconSvc,
		Gateway:      reconSvc,
		Webhook:      webhookOpts,
		Board:        boardSvc,
		Status:       statusSvc,
		Inventory:    adminSvc,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("port", cfg.HTTP.Port).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server shutdown error")
	}
	logger.Info("server stopped")
}
