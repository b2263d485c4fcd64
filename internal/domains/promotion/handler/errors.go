package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/internal/shared/response"
	"promotion-engine/pkg/logger"
)

// handleError maps service errors to the response envelope.
func handleError(c *gin.Context, err error) {
	var appErr *model.AppError
	switch {
	case errors.As(err, &appErr):
		response.ErrorWithDetails(c, appErr.Code.HTTPStatus(), string(appErr.Code), appErr.Message, appErr.Details)
	case errors.Is(err, model.ErrPromotionNotFound):
		response.ErrorResponse(c, http.StatusNotFound, "PROMOTION_NOT_FOUND", err.Error())
	case errors.Is(err, model.ErrVersionConflict):
		response.ErrorResponse(c, http.StatusConflict, "VERSION_CONFLICT", err.Error())
	case errors.Is(err, model.ErrDuplicateRedemption):
		response.ErrorResponse(c, http.StatusConflict, "DUPLICATE_REDEMPTION", err.Error())
	default:
		logger.ErrorWithFields("request failed", err, map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		})
		response.InternalServerError(c, "Internal server error")
	}
}

func invalidBody(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Invalid request body", err.Error())
}
