package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/internal/domains/promotion/service"
	"promotion-engine/internal/shared/response"
)

type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(service service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// GetPromotion returns a promotion with its derived status.
//
// @Summary      Get promotion (Admin)
// @Tags         admin-promotions
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Success      200 {object} response.Response{data=model.PromotionDetailResponse}
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id} [get]
func (h *AdminHandler) GetPromotion(c *gin.Context) {
	id, ok := promotionID(c)
	if !ok {
		return
	}

	promo, err := h.service.GetPromotion(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, promo)
}

// UpdatePromotion applies a partial update. Unknown fields are rejected so a
// typo never turns into a silent no-op.
//
// @Summary      Update promotion (Admin)
// @Tags         admin-promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Param        request body model.UpdatePromotionCommand true "Fields to change plus the version read"
// @Success      200 {object} response.Response{data=model.PromotionDetailResponse}
// @Failure      400 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /v1/admin/promotions/{id} [patch]
func (h *AdminHandler) UpdatePromotion(c *gin.Context) {
	id, ok := promotionID(c)
	if !ok {
		return
	}

	var cmd model.UpdatePromotionCommand
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		invalidBody(c, err)
		return
	}
	if dec.More() {
		invalidBody(c, fmt.Errorf("unexpected data after JSON body"))
		return
	}

	promo, err := h.service.UpdatePromotion(c.Request.Context(), id, &cmd)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, promo)
}

func promotionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Invalid promotion ID")
		return uuid.Nil, false
	}
	return id, true
}
