// Package http wires the HTTP surface: provider endpoints, entitlement
// reads and admin operations.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bilim-app/bilim/internal/interfaces/http/handlers"
	"github.com/bilim-app/bilim/internal/interfaces/http/middleware"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	PaymeHandler       *handlers.PaymeHandler
	AtmosHandler       *handlers.AtmosHandler
	EntitlementHandler *handlers.EntitlementHandler
	Logger             logger.Interface
	Mode               string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(deps.Logger))
	engine.Use(middleware.Logger(deps.Logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider endpoints. Payme authenticates inside the envelope; Atmos
	// authenticates with the payload signature.
	payments := engine.Group("/api/v1/payments")
	{
		payments.POST("/payme", deps.PaymeHandler.Handle)
		payments.POST("/atmos/callback", deps.AtmosHandler.Handle)
	}

	api := engine.Group("/api/v1")
	{
		api.GET("/entitlements/:user_id", deps.EntitlementHandler.Get)
		api.POST("/entitlements/:user_id/grant", deps.EntitlementHandler.Grant)
		api.POST("/billing/invoices", deps.EntitlementHandler.CreateInvoice)
	}

	return engine
}
