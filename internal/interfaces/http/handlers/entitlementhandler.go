package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appbilling "github.com/bilim-app/bilim/internal/application/billing"
	appentitlement "github.com/bilim-app/bilim/internal/application/entitlement"
	evo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/shared/errors"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// EntitlementHandler serves entitlement reads, manual grants and checkout.
type EntitlementHandler struct {
	reconciler *appentitlement.Reconciler
	checkout   *appbilling.CreateInvoiceUseCase
	logger     logger.Interface
}

func NewEntitlementHandler(
	reconciler *appentitlement.Reconciler,
	checkout *appbilling.CreateInvoiceUseCase,
	log logger.Interface,
) *EntitlementHandler {
	return &EntitlementHandler{
		reconciler: reconciler,
		checkout:   checkout,
		logger:     log.Named("entitlement-handler"),
	}
}

func (h *EntitlementHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	view, err := h.reconciler.GetEntitlement(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type grantRequest struct {
	Plan   string `json:"plan" binding:"required"`
	Days   int    `json:"days" binding:"required"`
	Source string `json:"source"`
}

func (h *EntitlementHandler) Grant(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan and days are required"})
		return
	}
	if req.Source == "" {
		req.Source = evo.SourceManual.String()
	}

	if err := h.reconciler.Grant(c.Request.Context(), userID, evo.Plan(req.Plan), req.Days, evo.Source(req.Source)); err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.reconciler.GetEntitlement(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type checkoutRequest struct {
	UserID uint  `json:"user_id" binding:"required"`
	Amount int64 `json:"amount" binding:"required"`
}

func (h *EntitlementHandler) CreateInvoice(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and amount are required"})
		return
	}

	result, err := h.checkout.Execute(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *EntitlementHandler) respondError(c *gin.Context, err error) {
	if stderrors.Is(err, user.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if appErr := errors.GetAppError(err); appErr != nil {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	h.logger.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func parseUserID(c *gin.Context) (uint, bool) {
	raw := c.Param("user_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return uint(id), true
}
