package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bilim-app/bilim/internal/application/billing/atmoswebhook"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// AtmosHandler exposes the Atmos callback endpoint. Authentication failures
// get 403, unparseable payloads 400; every business outcome is 200 so the
// provider stops redelivering.
type AtmosHandler struct {
	svc    *atmoswebhook.Service
	logger logger.Interface
}

func NewAtmosHandler(svc *atmoswebhook.Service, log logger.Interface) *AtmosHandler {
	return &AtmosHandler{svc: svc, logger: log.Named("atmos-handler")}
}

func (h *AtmosHandler) Handle(c *gin.Context) {
	var cb atmoswebhook.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	ack, err := h.svc.Process(c.Request.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, atmoswebhook.ErrBadSignature):
			h.logger.Warnw("rejected callback with bad signature",
				"invoice_id", cb.InvoiceID, "client_ip", c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		case errors.Is(err, atmoswebhook.ErrMalformed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		default:
			h.logger.Errorw("failed to process callback",
				"invoice_id", cb.InvoiceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, ack)
}
