package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bilim-app/bilim/internal/application/billing/paymerpc"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// PaymeHandler exposes the Payme merchant RPC endpoint. The provider always
// expects HTTP 200 with a protocol envelope; failures are expressed as RPC
// error objects, never as HTTP statuses.
type PaymeHandler struct {
	svc    *paymerpc.Service
	logger logger.Interface
}

func NewPaymeHandler(svc *paymerpc.Service, log logger.Interface) *PaymeHandler {
	return &PaymeHandler{svc: svc, logger: log.Named("payme-handler")}
}

func (h *PaymeHandler) Handle(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		c.JSON(http.StatusOK, paymerpc.ErrorResponse(nil,
			paymerpc.NewRPCError(paymerpc.CodeInsufficientPrivileges, "insufficient privileges")))
		return
	}
	if rpcErr := h.svc.CheckAuth(username, password); rpcErr != nil {
		h.logger.Warnw("rejected unauthenticated RPC call", "client_ip", c.ClientIP())
		c.JSON(http.StatusOK, paymerpc.ErrorResponse(nil, rpcErr))
		return
	}

	var req paymerpc.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, paymerpc.ErrorResponse(nil,
			paymerpc.NewRPCError(paymerpc.CodeParseError, "parse error")))
		return
	}

	c.JSON(http.StatusOK, h.svc.Handle(c.Request.Context(), &req))
}
