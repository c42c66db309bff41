package handlers

import (
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/service/listing"
	"github.com/fatflowers/entitlement/internal/app/service/promotion"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostTypeRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	PostTypeID string `json:"post_type_id" binding:"required"`
}

type AttachRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	PropertyID string `json:"property_id" binding:"required"`
	Title      string `json:"title" binding:"max=256"`
	PostTypeID string `json:"post_type_id" binding:"required"`
}

type ListingRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	PropertyID string `json:"property_id" binding:"required"`
}

// @Summary      Check whether a user can post
// @Description  Advisory check. A denial is returned as data with allowed=false and a reason.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body PostTypeRequest true "User and post type"
// @Success      200  {object}  handlers.RespDecision
// @Router       /api/v1/listing/check_can_post [post]
func ApiCheckCanPost(q *quota.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PostTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := q.CheckCanPost(c.Request.Context(), req.UserID, req.PostTypeID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Consume one post unit
// @Description  Atomically increments the usage counter of the post type. Callers that fail to create their listing afterwards release the unit.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body PostTypeRequest true "User and post type"
// @Success      200  {object}  handlers.RespConsumption
// @Router       /api/v1/listing/consume_post [post]
func ApiConsumePost(q *quota.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PostTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := q.ConsumePost(c.Request.Context(), req.UserID, req.PostTypeID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Release one post unit
// @Description  Gives back a unit consumed through consume_post.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body PostTypeRequest true "User and post type"
// @Success      200  {object}  handlers.RespConsumption
// @Router       /api/v1/listing/release_post [post]
func ApiReleasePost(q *quota.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PostTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := q.ReleasePost(c.Request.Context(), req.UserID, req.PostTypeID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Attach a listing to the user's package
// @Description  Consumes one unit of the post type and freezes the current package onto the listing.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body AttachRequest true "Listing to attach"
// @Success      200  {object}  handlers.RespAttach
// @Router       /api/v1/listing/attach [post]
func ApiAttach(ls *listing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AttachRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := ls.Attach(c.Request.Context(), req.UserID, req.PropertyID, req.Title, req.PostTypeID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Detach a listing from its package
// @Description  Clears the frozen package. Usage counters are not given back.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body ListingRequest true "Listing to detach"
// @Success      200  {object}  handlers.RespListing
// @Router       /api/v1/listing/detach [post]
func ApiDetach(ls *listing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := ls.Detach(c.Request.Context(), req.UserID, req.PropertyID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Promote a listing to the top
// @Description  Spends one push and moves the listing to the top of its tier.
// @Tags         Listing
// @Accept       json
// @Produce      json
// @Param        request body ListingRequest true "Listing to promote"
// @Success      200  {object}  handlers.RespPromotion
// @Router       /api/v1/listing/promote [post]
func ApiPromote(p *promotion.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := p.PromoteToTop(c.Request.Context(), req.UserID, req.PropertyID)
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get a listing
// @Description  Returns the listing with its frozen package and whether it can still be edited.
// @Tags         Listing
// @Produce      json
// @Param        user_id      path  string  true  "User ID"
// @Param        property_id  path  string  true  "Property ID"
// @Success      200  {object}  handlers.RespListingView
// @Router       /api/v1/listing/{user_id}/{property_id} [get]
func ApiGetListing(ls *listing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := ls.Get(c.Request.Context(), c.Param("user_id"), c.Param("property_id"))
		if err != nil {
			replyError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterListingRoutes(r gin.IRouter, q *quota.Service, ls *listing.Service, p *promotion.Service, log *zap.SugaredLogger) {
	r.POST("/check_can_post", ApiCheckCanPost(q, log))
	r.POST("/consume_post", ApiConsumePost(q, log))
	r.POST("/release_post", ApiReleasePost(q, log))
	r.POST("/attach", ApiAttach(ls, log))
	r.POST("/detach", ApiDetach(ls, log))
	r.POST("/promote", ApiPromote(p, log))
	r.GET("/:user_id/:property_id", ApiGetListing(ls, log))
}
