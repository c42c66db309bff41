package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
)

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const healthCheckTimeout = 2 * time.Second

// @Summary      Health check
// @Description  Reports ok when every backing dependency answers, degraded (HTTP 503) otherwise
// @Tags         System
// @Produce      json
// @Success      200  {object}  handlers.RespHealth
// @Failure      503  {object}  handlers.RespHealth
// @Router       /healthz [get]
func Healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := HealthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status.Status = "degraded"
				status.Checks[name] = err.Error()
				continue
			}
			status.Checks[name] = "ok"
		}
		if status.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, response.ErrorT(response.APIResponseCodeError, status))
			return
		}
		c.JSON(http.StatusOK, response.OKT(status))
	}
}

func RegisterHealthRoutes(r gin.IRouter, checks map[string]HealthCheck) {
	r.GET("/healthz", Healthz(checks))
}
