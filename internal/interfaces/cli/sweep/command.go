// Package sweep implements the one-shot reconciliation sweep command.
package sweep

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bilim-app/bilim/internal/infrastructure/cache"
	"github.com/bilim-app/bilim/internal/infrastructure/config"
	"github.com/bilim-app/bilim/internal/infrastructure/database"
	httpiface "github.com/bilim-app/bilim/internal/interfaces/http"
	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation sweep and exit",
		Long:  `Cancel stale pending transactions and reconcile every entitlement with the payment ledger, then exit.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	biztime.MustInit("")
	log := logger.NewLogger()

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
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
		return fmt.Errorf("failed to build application: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cancelled, err := container.CancelStale.Execute(ctx)
	if err != nil {
		return fmt.Errorf("stale transaction pass failed: %w", err)
	}

	result, err := container.Sweep.Run(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("stale cancelled: %d, repaired: %d, downgraded: %d, activated: %d, errors: %d\n",
		cancelled, result.Repaired, result.Downgraded, result.Activated, result.Errors)
	return nil
}
