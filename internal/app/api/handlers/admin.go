package handlers

import (
	"context"
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SweepRunner runs one expiry sweep unless another replica holds the lock.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*lifecycle.SweepReport, bool, error)
}

type SweepResponse struct {
	Ran    bool                   `json:"ran"`
	Report *lifecycle.SweepReport `json:"report"`
}

// @Summary      Run the expiry sweep (Admin)
// @Description  Expires every subscription past its expiry date. Skipped when a sweep is already running.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespSweep
// @Router       /api/v1/admin/sweep [post]
func ApiSweep(w SweepRunner, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ran, err := w.RunOnce(c.Request.Context())
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&SweepResponse{Ran: ran, Report: report}))
	}
}

// @Summary      Get statistics (Admin)
// @Description  Computes the requested statistic data items.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/statistic [post]
func ApiGetStatistic(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Scan package history (Admin)
// @Description  Retrieves a paginated and filterable list of package history across users.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ScanHistoryRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanHistory
// @Router       /api/v1/admin/history [post]
func ApiScanHistory(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ScanHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.ScanHistory(c.Request.Context(), &req)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, sweeper SweepRunner, stats *statistics.Service, log *zap.SugaredLogger) {
	r.POST("/sweep", ApiSweep(sweeper, log))
	r.POST("/statistic", ApiGetStatistic(stats, log))
	r.POST("/history", ApiScanHistory(stats, log))
}
