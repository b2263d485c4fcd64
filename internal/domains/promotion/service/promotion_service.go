package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"promotion-engine/internal/domains/promotion/engine"
	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/internal/domains/promotion/repository"
	"promotion-engine/internal/shared"
	"promotion-engine/internal/shared/utils"
	"promotion-engine/pkg/kafka"
	"promotion-engine/pkg/logger"
)

const eventSource = "promotion-engine"

// promotionService loads catalog data around the pure engine and owns the
// commit-time follow-ups (events, rejection tasks).
type promotionService struct {
	repo          repository.PromotionRepository
	engine        *engine.Engine
	ledger        Redeemer
	events        EventPublisher // nil disables events
	tasks         TaskEnqueuer   // nil disables rejection tasks
	redeemedTopic string
	now           func() time.Time
}

// Option configures the service.
type Option func(*promotionService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *promotionService) { s.now = now }
}

// NewPromotionService wires the service. events and tasks may be nil.
func NewPromotionService(
	repo repository.PromotionRepository,
	eng *engine.Engine,
	ledger Redeemer,
	events EventPublisher,
	tasks TaskEnqueuer,
	redeemedTopic string,
	opts ...Option,
) ServiceInterface {
	s := &promotionService{
		repo:          repo,
		engine:        eng,
		ledger:        ledger,
		events:        events,
		tasks:         tasks,
		redeemedTopic: redeemedTopic,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -------------------------------------------------------------------
// EVALUATE
// -------------------------------------------------------------------

// Evaluate prices a cart.
//
// Business Logic:
// 1. Validate the request
// 2. Load active candidates (cached) plus the coupon's promotion, which may be
//    outside its window and must still produce a coded reason
// 3. Load the customer's prior redemptions for per-user limits
// 4. Run the engine
func (s *promotionService) Evaluate(ctx context.Context, req *model.EvaluateRequest) (*model.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewAppError(model.ErrCodeValidationFailed, err.Error())
	}

	start := time.Now()
	defer func() { evaluationDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now().UTC()
	candidates, err := s.repo.ListActiveCandidates(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active candidates: %w", err)
	}

	code := model.NormalizeCode(req.Code)
	if code != "" && !hasCode(candidates, code) {
		promo, err := s.repo.FindByCode(ctx, code)
		switch {
		case err == nil:
			candidates = append(candidates[:len(candidates):len(candidates)], promo)
		case errors.Is(err, model.ErrPromotionNotFound):
			// reported as CODE_NOT_FOUND by the engine
		default:
			return nil, fmt.Errorf("find promotion by code: %w", err)
		}
	}

	customer, err := s.loadCustomer(ctx, req.CustomerID, candidates)
	if err != nil {
		return nil, err
	}

	result := s.engine.Evaluate(engine.Input{
		Cart:       req.Cart(),
		Customer:   customer,
		Code:       code,
		Now:        now,
		Candidates: candidates,
	})
	recordEvaluation(result)

	logger.Debug("cart evaluated", map[string]interface{}{
		"applied":        len(result.Applied),
		"rejections":     len(result.Rejections),
		"total_discount": result.TotalDiscount.String(),
	})
	return result, nil
}

// loadCustomer returns nil for guests. Counts are only queried for
// promotions that carry a per-user limit.
func (s *promotionService) loadCustomer(ctx context.Context, customerID *uuid.UUID, candidates []*model.Promotion) (*model.CustomerRef, error) {
	if customerID == nil {
		return nil, nil
	}

	customer := &model.CustomerRef{ID: *customerID}

	var limited []uuid.UUID
	for _, p := range candidates {
		if p != nil && p.PerUserLimit != nil {
			limited = append(limited, p.ID)
		}
	}
	if len(limited) == 0 {
		return customer, nil
	}

	counts, err := s.repo.CountUserRedemptions(ctx, *customerID, limited)
	if err != nil {
		return nil, fmt.Errorf("count user redemptions: %w", err)
	}
	customer.Redemptions = counts
	return customer, nil
}

func hasCode(candidates []*model.Promotion, code string) bool {
	for _, p := range candidates {
		if p != nil && p.MatchesCode(code) {
			return true
		}
	}
	return false
}

// -------------------------------------------------------------------
// REDEEM
// -------------------------------------------------------------------

// Redeem records the usage for a committed order.
//
// A lost race, a timeout or a store failure never fails the order: the
// response carries a warning, the rejection is queued for audit, and the
// pipeline drops the discount. Only malformed or duplicate requests are
// returned as errors.
func (s *promotionService) Redeem(ctx context.Context, req *model.RedeemRequest) (*model.RedeemResponse, error) {
	usage, err := s.ledger.TryRedeem(ctx, req.ToRedemption())
	if err == nil {
		redemptionsTotal.WithLabelValues("redeemed").Inc()
		s.publishRedeemed(ctx, usage)
		return &model.RedeemResponse{Redeemed: true, Usage: usage}, nil
	}

	switch {
	case model.CodeOf(err) == model.ErrCodeValidationFailed:
		return nil, err
	case errors.Is(err, model.ErrDuplicateRedemption):
		redemptionsTotal.WithLabelValues("duplicate").Inc()
		return nil, err
	}

	warning := redemptionWarning(err)
	redemptionsTotal.WithLabelValues("rejected").Inc()
	logger.ErrorWithFields("promotion redemption dropped", err, map[string]interface{}{
		"promotion_id": req.PromotionID.String(),
		"order_id":     req.OrderID.String(),
		"reason":       string(warning.Code),
	})

	s.enqueueRejection(ctx, req, warning)
	return &model.RedeemResponse{Redeemed: false, Warning: warning}, nil
}

func redemptionWarning(err error) *model.AppError {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return model.NewAppError(model.ErrCodeDiscountConflict, "Redemption could not be recorded")
}

func (s *promotionService) enqueueRejection(ctx context.Context, req *model.RedeemRequest, warning *model.AppError) {
	if s.tasks == nil {
		return
	}

	rejection := &model.RedemptionRejection{
		ID:             uuid.New(),
		PromotionID:    req.PromotionID,
		CustomerID:     req.CustomerID,
		OrderID:        req.OrderID,
		DiscountAmount: req.DiscountAmount,
		Reason:         warning.Code,
		Message:        warning.Message,
		RejectedAt:     s.now().UTC(),
	}

	task, err := utils.MarshalTask(shared.TypePromotionRedemptionRejected, rejection)
	if err != nil {
		logger.Error("Failed to marshal redemption rejection task", err)
		return
	}

	// The caller's deadline may already be spent by the ledger.
	_, err = s.tasks.EnqueueContext(context.WithoutCancel(ctx), task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(fmt.Sprintf("rejection:%s:%s", req.PromotionID, req.OrderID)),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.ErrorWithFields("Failed to enqueue redemption rejection task", err, map[string]interface{}{
			"order_id": req.OrderID.String(),
		})
	}
}

func (s *promotionService) publishRedeemed(ctx context.Context, usage *model.PromotionUsage) {
	if s.events == nil {
		return
	}

	event, err := kafka.NewEvent(shared.EventPromotionRedeemed, usage.PromotionID.String(), "promotion", eventSource, usage, usage.CreatedAt)
	if err != nil {
		logger.Error("Failed to build redeemed event", err)
		return
	}
	event.WithCorrelationID(usage.OrderID.String())

	if err := s.events.Publish(ctx, s.redeemedTopic, event); err != nil {
		logger.ErrorWithFields("Failed to publish redeemed event", err, map[string]interface{}{
			"promotion_id": usage.PromotionID.String(),
			"order_id":     usage.OrderID.String(),
		})
	}
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// GetPromotion returns the promotion with its derived status.
func (s *promotionService) GetPromotion(ctx context.Context, id uuid.UUID) (*model.PromotionDetailResponse, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find promotion: %w", err)
	}
	return model.NewPromotionDetailResponse(promo, s.now().UTC()), nil
}

// UpdatePromotion applies a typed partial update.
//
// Business Logic:
// 1. Validate the command on its own
// 2. Merge into the stored promotion and validate the merged definition
// 3. Write with optimistic locking on the version the caller read
func (s *promotionService) UpdatePromotion(ctx context.Context, id uuid.UUID, cmd *model.UpdatePromotionCommand) (*model.PromotionDetailResponse, error) {
	if err := cmd.Validate(); err != nil {
		return nil, model.NewAppError(model.ErrCodeValidationFailed, err.Error())
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find promotion: %w", err)
	}
	if current.Version != cmd.Version {
		return nil, model.ErrVersionConflict
	}

	merged, err := cmd.Apply(current)
	if err != nil {
		return nil, model.NewAppError(model.ErrCodeInvalidDefinition, err.Error())
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	logger.Info("promotion updated", map[string]interface{}{
		"promotion_id": id.String(),
		"version":      merged.Version,
	})
	return model.NewPromotionDetailResponse(merged, s.now().UTC()), nil
}
