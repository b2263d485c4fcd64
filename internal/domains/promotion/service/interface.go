package service

import (
	"context"

	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/pkg/kafka"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type ServiceInterface interface {
	// Storefront
	Evaluate(ctx context.Context, req *model.EvaluateRequest) (*model.EvaluationResult, error)

	// Order pipeline
	Redeem(ctx context.Context, req *model.RedeemRequest) (*model.RedeemResponse, error)

	// Admin methods
	GetPromotion(ctx context.Context, id uuid.UUID) (*model.PromotionDetailResponse, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, cmd *model.UpdatePromotionCommand) (*model.PromotionDetailResponse, error)
}

// Redeemer is the commit-time ledger.
type Redeemer interface {
	TryRedeem(ctx context.Context, req model.RedemptionRequest) (*model.PromotionUsage, error)
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
