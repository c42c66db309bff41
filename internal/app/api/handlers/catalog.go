package handlers

import (
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
)

// @Summary      List plans
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespPlans
// @Router       /api/v1/catalog/plans [get]
func ApiListPlans(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(cat.Plans()))
	}
}

// @Summary      List post types
// @Description  Post types in priority order.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespPostTypes
// @Router       /api/v1/catalog/post_types [get]
func ApiListPostTypes(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(cat.PostTypes()))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, cat *catalog.Service) {
	r.GET("/plans", ApiListPlans(cat))
	r.GET("/post_types", ApiListPostTypes(cat))
}
