package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"promotion-engine/internal/domains/promotion/model"
)

// RejectionRecorder persists the audit row for a dropped redemption.
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, rejection *model.RedemptionRejection) error
}

// RedemptionRejectedHandler writes promotion:redemption_rejected tasks to the
// audit table the order pipeline reads to drop discounts retroactively.
type RedemptionRejectedHandler struct {
	repo RejectionRecorder
}

func NewRedemptionRejectedHandler(repo RejectionRecorder) *RedemptionRejectedHandler {
	return &RedemptionRejectedHandler{repo: repo}
}

func (h *RedemptionRejectedHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var rejection model.RedemptionRejection
	if err := json.Unmarshal(task.Payload(), &rejection); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal RedemptionRejected payload")
		// A malformed payload will never decode; don't retry it.
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().
		Str("promotion_id", rejection.PromotionID.String()).
		Str("order_id", rejection.OrderID.String()).
		Str("reason", string(rejection.Reason)).
		Msg("Recording rejected redemption")

	// Duplicates from retried tasks are ignored by the insert.
	if err := h.repo.RecordRejection(ctx, &rejection); err != nil {
		return fmt.Errorf("record rejection: %w", err)
	}
	return nil
}
