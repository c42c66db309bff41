package handlers

import (
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/service/history"
	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary      Get current subscription
// @Description  Returns the live subscription of a user, or the most recently retired one. A subscription past its expiry is expired on read.
// @Tags         Account
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/account/{user_id}/subscription [get]
func ApiGetSubscription(lc *lifecycle.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := lc.GetCurrentSubscription(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List available post types
// @Description  Lists the post types of the user's plan with used, limit and remaining counts, highest priority first.
// @Tags         Account
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  handlers.RespAvailablePostTypes
// @Router       /api/v1/account/{user_id}/post_types [get]
func ApiGetAvailablePostTypes(q *quota.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := q.GetAvailablePostTypes(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get package history
// @Description  Lists the user's retired subscriptions, most recent first.
// @Tags         Account
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  handlers.RespHistory
// @Router       /api/v1/account/{user_id}/history [get]
func ApiGetHistory(h *history.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.GetHistory(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Start trial
// @Description  Grants the one-time trial plan to a user without a live subscription.
// @Tags         Account
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  handlers.RespTransition
// @Router       /api/v1/account/{user_id}/trial [post]
func ApiStartTrial(lc *lifecycle.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := lc.StartTrial(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Cancel subscription
// @Description  Cancels the live subscription and deactivates the listings published under it.
// @Tags         Account
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  handlers.RespHistoryEntry
// @Router       /api/v1/account/{user_id}/cancel [post]
func ApiCancel(lc *lifecycle.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := lc.Cancel(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAccountRoutes(r gin.IRouter, lc *lifecycle.Service, q *quota.Service, h *history.Service, log *zap.SugaredLogger) {
	r.GET("/:user_id/subscription", ApiGetSubscription(lc, log))
	r.GET("/:user_id/post_types", ApiGetAvailablePostTypes(q, log))
	r.GET("/:user_id/history", ApiGetHistory(h, log))
	r.POST("/:user_id/trial", ApiStartTrial(lc, log))
	r.POST("/:user_id/cancel", ApiCancel(lc, log))
}
