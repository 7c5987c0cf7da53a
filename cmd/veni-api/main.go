// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"veni/internal/config"
	httptransport "veni/internal/http"
	"veni/internal/infra"
	"veni/internal/modules/dispatch"
	"veni/internal/modules/driver"
	"veni/internal/modules/placement"
	"veni/internal/modules/pricing"
	"veni/internal/modules/trip"
	"veni/internal/notify"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tripStore trip.Store
	switch cfg.Storage.Mode {
	case "postgres":
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Error("postgres init", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		tripStore = trip.NewPGStore(dbPool)
	default:
		tripStore = trip.NewMemStore()
	}

	var driverStore driver.Store
	if cfg.Drivers.Store == "redis" {
		redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisClient.Close()
		driverStore = driver.NewRedisStore(redisClient)
	} else {
		driverStore = driver.NewMemStore()
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Notify.Mode == "amqp" {
		conn, ch, err := infra.NewRabbit(cfg.Notify.URL)
		if err != nil {
			log.Error("rabbitmq init", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		defer ch.Close()
		notifier, err = notify.NewAMQPNotifier(ch, cfg.Notify.Exchange)
		if err != nil {
			log.Error("rabbitmq exchange", "error", err)
			os.Exit(1)
		}
	}

	trips := trip.NewService(tripStore, pricing.NewEstimator(cfg.Fare), log)

	drivers := driver.NewDirectory(driverStore, cfg.Drivers, log)
	if err := drivers.Seed(ctx, cfg.Drivers.Seed); err != nil {
		log.Error("seed drivers", "error", err)
		os.Exit(1)
	}

	coord := dispatch.NewCoordinator(
		trips,
		drivers,
		placement.NewClassifier(cfg.Placement.HeavyRouteThresholdKm),
		placement.NewScorer(cfg.Placement),
		notifier,
		cfg.Dispatch,
		log,
	)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Coordinator: coord,
		Trips:       trips,
		Drivers:     drivers,
		JWTSecret:   cfg.JWT.Secret,
		Log:         log,
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, router)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("server starting",
		"addr", cfg.HTTP.Addr,
		"storage", cfg.Storage.Mode,
		"drivers", cfg.Drivers.Store,
		"dispatch", cfg.Dispatch.Mode,
	)
	if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
