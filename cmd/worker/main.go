package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilim-app/bilim/internal/infrastructure/cache"
	"github.com/bilim-app/bilim/internal/infrastructure/config"
	"github.com/bilim-app/bilim/internal/infrastructure/database"
	"github.com/bilim-app/bilim/internal/infrastructure/scheduler"
	httpiface "github.com/bilim-app/bilim/internal/interfaces/http"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	biztime.MustInit("")

	log := logger.NewLogger()
	log.Infow("starting billing worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	redisClient, err := cache.NewClient(&cfg.Redis)
	if err != nil {
		log.Warnw("redis unavailable, entitlement cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	container, err := httpiface.BuildContainer(cfg, database.Get(), redisClient, log)
	if err != nil {
		logger.Fatal("failed to build application", "error", err)
	}

	manager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		logger.Fatal("failed to create scheduler", "error", err)
	}

	sweepInterval := time.Duration(cfg.Billing.Reconcile.SweepIntervalMinutes) * time.Minute
	if err := manager.RegisterBillingJobs(container.CancelStale, container.Sweep, sweepInterval); err != nil {
		logger.Fatal("failed to register billing jobs", "error", err)
	}

	manager.Start()
	log.Infow("billing worker started", "sweep_interval", sweepInterval.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Infow("received signal, shutting down", "signal", sig)
	if err := manager.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
	}
	log.Infow("billing worker stopped")
}
