package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/internal/domains/promotion/service"
	"promotion-engine/internal/shared/middleware"
	"promotion-engine/internal/shared/response"
)

// PublicHandler serves the storefront and order pipeline endpoints.
type PublicHandler struct {
	service service.ServiceInterface
}

func NewPublicHandler(promotionService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: promotionService}
}

// Evaluate prices a cart against every applicable promotion.
//
// @Summary      Evaluate cart
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        request body model.EvaluateRequest true "Cart and optional coupon code"
// @Success      200 {object} response.Response{data=model.EvaluationResult}
// @Failure      400 {object} response.Response
// @Router       /v1/promotions/evaluate [post]
func (h *PublicHandler) Evaluate(c *gin.Context) {
	var req model.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	// nil for guests
	req.CustomerID = middleware.UserIDFromContext(c)

	result, err := h.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Redeem records the usage of an applied promotion for a committed order.
// A dropped redemption is still a 200 with redeemed=false and a warning.
//
// @Summary      Redeem promotion
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        request body model.RedeemRequest true "Committed order amounts"
// @Success      200 {object} response.Response{data=model.RedeemResponse}
// @Failure      400 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /v1/promotions/redeem [post]
func (h *PublicHandler) Redeem(c *gin.Context) {
	var req model.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	result, err := h.service.Redeem(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
