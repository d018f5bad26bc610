package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	"github.com/bilim-app/bilim/internal/application/billing/atmoswebhook"
	"github.com/bilim-app/bilim/internal/application/billing/paymerpc"
	appentitlement "github.com/bilim-app/bilim/internal/application/entitlement"
	"github.com/bilim-app/bilim/internal/infrastructure/cache"
	infraconfig "github.com/bilim-app/bilim/internal/infrastructure/config"
	"github.com/bilim-app/bilim/internal/infrastructure/gateway/atmos"
	"github.com/bilim-app/bilim/internal/infrastructure/repository"
	"github.com/bilim-app/bilim/internal/infrastructure/token"
	"github.com/bilim-app/bilim/internal/interfaces/http/handlers"
	"github.com/bilim-app/bilim/internal/shared/db"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// Container holds the wired application graph shared by the HTTP server
// and the background worker.
type Container struct {
	Router      *gin.Engine
	Reconciler  *appentitlement.Reconciler
	Sweep       *appentitlement.Sweep
	CancelStale *appbilling.CancelStaleUseCase
}

// BuildContainer wires repositories, use cases and handlers. redisClient
// may be nil; the entitlement cache is then disabled.
func BuildContainer(cfg *infraconfig.Config, gormDB *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	prices, err := appbilling.NewPriceTable(cfg.Billing.Pricing)
	if err != nil {
		return nil, err
	}

	txRepo := repository.NewTransactionRepository(gormDB)
	entRepo := repository.NewEntitlementRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)
	resolver := repository.NewAccountResolver(userRepo, txRepo)

	var entCache appentitlement.ViewCache
	if redisClient != nil {
		entCache = cache.NewEntitlementCache(redisClient)
	}

	txManager := db.NewTransactionManager(gormDB)
	reconciler := appentitlement.NewReconciler(entRepo, txRepo, prices, txManager, entCache, log)
	sweep := appentitlement.NewSweep(reconciler, entRepo, txRepo, log)
	cancelStale := appbilling.NewCancelStaleUseCase(txRepo, cfg.Billing.Payme, log)

	paymeSvc := paymerpc.NewService(txRepo, resolver, prices, reconciler, cfg.Billing.Payme, log)
	atmosSvc := atmoswebhook.NewService(txRepo, reconciler, cfg.Billing.Atmos, log)

	tokens := token.NewAtmosTokenProvider(cfg.Billing.Atmos, log)
	atmosClient := atmos.NewClient(cfg.Billing.Atmos, tokens, log)
	checkout := appbilling.NewCreateInvoiceUseCase(txRepo, userRepo, prices, atmosClient, log)

	router := NewRouter(RouterDeps{
		PaymeHandler:       handlers.NewPaymeHandler(paymeSvc, log),
		AtmosHandler:       handlers.NewAtmosHandler(atmosSvc, log),
		EntitlementHandler: handlers.NewEntitlementHandler(reconciler, checkout, log),
		Logger:             log,
		Mode:               cfg.Server.Mode,
	})

	return &Container{
		Router:      router,
		Reconciler:  reconciler,
		Sweep:       sweep,
		CancelStale: cancelStale,
	}, nil
}
