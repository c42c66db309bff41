package handlers

import (
	"context"
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PurchaseEventHandler verifies a signed purchase event and applies it.
type PurchaseEventHandler interface {
	HandleEvent(ctx context.Context, token string) (*lifecycle.TransitionResult, error)
}

type PurchaseRequest struct {
	UserID string             `json:"user_id" binding:"required"`
	PlanID string             `json:"plan_id" binding:"required"`
	Mode   types.PurchaseMode `json:"mode" binding:"required,oneof=new upgrade renew"`
}

type PurchaseEventRequest struct {
	Token string `json:"token" binding:"required"`
}

// @Summary      Apply a validated purchase
// @Description  Creates, upgrades or renews the user's subscription. Payment must already be validated by the caller.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body PurchaseRequest true "Purchase"
// @Success      200  {object}  handlers.RespTransition
// @Router       /api/v1/billing/purchase [post]
func ApiPurchase(lc *lifecycle.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := lc.Purchase(c.Request.Context(), req.UserID, req.PlanID, req.Mode)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Apply a signed purchase event
// @Description  Verifies an HS256 signed purchase event from the billing provider and applies it.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body PurchaseEventRequest true "Signed event"
// @Success      200  {object}  handlers.RespTransition
// @Router       /api/v1/billing/purchase_event [post]
func ApiPurchaseEvent(h PurchaseEventHandler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := h.HandleEvent(c.Request.Context(), req.Token)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterBillingRoutes(r gin.IRouter, lc *lifecycle.Service, events PurchaseEventHandler, log *zap.SugaredLogger) {
	r.POST("/purchase", ApiPurchase(lc, log))
	r.POST("/purchase_event", ApiPurchaseEvent(events, log))
}
