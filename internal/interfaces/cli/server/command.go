// Package server implements the HTTP server command.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/bilim-app/bilim/internal/infrastructure/cache"
	"github.com/bilim-app/bilim/internal/infrastructure/config"
	"github.com/bilim-app/bilim/internal/infrastructure/database"
	httpiface "github.com/bilim-app/bilim/internal/interfaces/http"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/goroutine"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Bilim billing HTTP server with the configured payment gateways.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	ginMode := mapEnvToGinMode(env)

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = ginMode

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	biztime.MustInit("")

	log := logger.NewLogger()
	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if err := database.AutoMigrate(database.Get()); err != nil {
			return err
		}
		log.Infow("database migrations applied")
	}

	redisClient, err := cache.NewClient(&cfg.Redis)
	if err != nil {
		// The cache is an optimization; the server runs without it.
		log.Warnw("redis unavailable, entitlement cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	container, err := httpiface.BuildContainer(cfg, database.Get(), redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.GetAddr(),
		Handler: container.Router,
	}

	goroutine.SafeGo(log, "http-server", func() {
		log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server failed", "error", err)
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Infow("server stopped")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
