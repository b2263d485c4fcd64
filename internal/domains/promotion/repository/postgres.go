package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"promotion-engine/internal/domains/promotion/ledger"
	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/pkg/database"
	"promotion-engine/pkg/logger"
)

// PostgresRepository implements PromotionRepository and ledger.Store on PostgreSQL.
type PostgresRepository struct {
	db database.DB
}

var (
	_ PromotionRepository = (*PostgresRepository)(nil)
	_ ledger.Store        = (*PostgresRepository)(nil)
)

// NewPostgresRepository creates a repository over a pgx pool.
func NewPostgresRepository(db database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const promotionColumns = `
	id, COALESCE(code, '') AS code, name, description,
	type, discount_type, discount_value, max_discount, apply_to,
	product_ids, category_ids, customer_ids,
	min_purchase, min_quantity, max_quantity,
	bogo_config, free_gift_config,
	usage_limit, per_user_limit, usage_count,
	start_date, end_date, is_active,
	priority, can_stack, stacks_with,
	is_ai_generated, is_public, show_on_website,
	version, created_at, updated_at`

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// FindByID finds a promotion by id
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by id: %w", err)
	}
	return p, nil
}

// FindByCode finds a promotion by code, ignoring status.
//
// Expired, scheduled and disabled codes are returned too, so the engine can
// tell the customer exactly why the code did not apply.
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE UPPER(code) = $1`

	p, err := scanPromotion(r.db.QueryRow(ctx, query, model.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}
	return p, nil
}

// ListActiveCandidates returns the active promotions whose window contains now.
//
// Note: served by idx_promotions_active_window
func (r *PostgresRepository) ListActiveCandidates(ctx context.Context, now time.Time) ([]*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE is_active = true
		  AND start_date <= $1
		  AND end_date > $1
		ORDER BY priority DESC, start_date ASC, id ASC`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	defer rows.Close()

	var promos []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active promotion: %w", err)
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active promotions: %w", err)
	}
	return promos, nil
}

// CountUserRedemptions counts a customer's prior redemptions per promotion.
//
// Note: served by idx_promotion_usages_user
func (r *PostgresRepository) CountUserRedemptions(ctx context.Context, userID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(promotionIDs))
	if len(promotionIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT promotion_id, COUNT(*)
		FROM promotion_usages
		WHERE user_id = $1 AND promotion_id = ANY($2)
		GROUP BY promotion_id
	`

	rows, err := r.db.Query(ctx, query, userID, pq.Array(promotionIDs))
	if err != nil {
		return nil, fmt.Errorf("count user redemptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan user redemption count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user redemption counts: %w", err)
	}
	return counts, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Update writes every mutable column with optimistic locking.
//
// Note:
// - promo.Version must be the version the caller read
// - On success promo.Version and promo.UpdatedAt hold the new values
// - usage_count is never written here; only Redeem moves it
func (r *PostgresRepository) Update(ctx context.Context, promo *model.Promotion) error {
	bogo, err := encodeConfig(promo.BogoConfig)
	if err != nil {
		return fmt.Errorf("encode bogo config: %w", err)
	}
	gift, err := encodeConfig(promo.FreeGiftConfig)
	if err != nil {
		return fmt.Errorf("encode free gift config: %w", err)
	}

	query := `
		UPDATE promotions SET
			name = $2, description = $3,
			discount_type = $4, discount_value = $5, max_discount = $6, apply_to = $7,
			product_ids = $8, category_ids = $9, customer_ids = $10,
			min_purchase = $11, min_quantity = $12, max_quantity = $13,
			bogo_config = $14, free_gift_config = $15,
			usage_limit = $16, per_user_limit = $17,
			start_date = $18, end_date = $19, is_active = $20,
			priority = $21, can_stack = $22, stacks_with = $23,
			is_public = $24, show_on_website = $25,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $26
		RETURNING version, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Name,
		promo.Description,
		string(promo.DiscountType),
		promo.DiscountValue,
		promo.MaxDiscount,
		string(promo.ApplyTo),
		pq.Array(promo.ProductIDs),
		pq.Array(promo.CategoryIDs),
		pq.Array(promo.CustomerIDs),
		promo.MinPurchase,
		promo.MinQuantity,
		promo.MaxQuantity,
		bogo,
		gift,
		promo.UsageLimit,
		promo.PerUserLimit,
		promo.StartDate,
		promo.EndDate,
		promo.IsActive,
		promo.Priority,
		promo.CanStack,
		pq.Array(promo.StacksWith),
		promo.IsPublic,
		promo.ShowOnWebsite,
		promo.Version,
	).Scan(&promo.Version, &promo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrVersionConflict
		}
		return fmt.Errorf("update promotion: %w", err)
	}

	logger.Info("promotion updated", map[string]interface{}{
		"promotion_id": promo.ID.String(),
		"version":      promo.Version,
	})
	return nil
}

// RecordRejection stores the audit row for a redemption lost at commit time.
func (r *PostgresRepository) RecordRejection(ctx context.Context, rej *model.RedemptionRejection) error {
	query := `
		INSERT INTO promotion_redemption_rejections (
			id, promotion_id, user_id, order_id,
			discount_amount, reason, message, rejected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (promotion_id, order_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		rej.ID,
		rej.PromotionID,
		rej.CustomerID,
		rej.OrderID,
		rej.DiscountAmount,
		string(rej.Reason),
		rej.Message,
		rej.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("record redemption rejection: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------
// LEDGER
// -------------------------------------------------------------------

// Redeem implements ledger.Store.
//
// Business Logic (one transaction):
// 1. Conditional increment; the UPDATE also takes the row lock, so
//    concurrent redemptions of the same promotion serialise here
// 2. Zero rows → DISCOUNT_CONFLICT (limit reached, disabled or out of window)
// 3. Count (promotion, customer) usages if per_user_limit is set
// 4. Insert the usage row; unique (promotion_id, order_id) rejects replays
func (r *PostgresRepository) Redeem(ctx context.Context, usage *model.PromotionUsage, now time.Time) error {
	return database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		incrementQuery := `
			UPDATE promotions
			SET usage_count = usage_count + 1, updated_at = NOW()
			WHERE id = $1
			  AND is_active = true
			  AND start_date <= $2
			  AND end_date > $2
			  AND (usage_limit IS NULL OR usage_count < usage_limit)
			RETURNING per_user_limit
		`

		var perUserLimit *int
		err := tx.QueryRow(ctx, incrementQuery, usage.PromotionID, now).Scan(&perUserLimit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ledger.Conflict("usage limit reached or promotion no longer active")
			}
			return fmt.Errorf("increment usage count: %w", err)
		}

		if perUserLimit != nil {
			if usage.UserID == nil {
				return ledger.Conflict("per-customer limited promotion requires a customer")
			}

			countQuery := `
				SELECT COUNT(*)
				FROM promotion_usages
				WHERE promotion_id = $1 AND user_id = $2
			`
			var count int
			if err := tx.QueryRow(ctx, countQuery, usage.PromotionID, *usage.UserID).Scan(&count); err != nil {
				return fmt.Errorf("count user usage: %w", err)
			}
			if count >= *perUserLimit {
				return ledger.Conflict("per-customer limit reached")
			}
		}

		insertQuery := `
			INSERT INTO promotion_usages (
				id, promotion_id, user_id, order_id,
				discount_amount, subtotal_before, total_after, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err = tx.Exec(ctx, insertQuery,
			usage.ID,
			usage.PromotionID,
			usage.UserID,
			usage.OrderID,
			usage.DiscountAmount,
			usage.SubtotalBefore,
			usage.TotalAfter,
			usage.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateRedemption
			}
			return fmt.Errorf("insert promotion usage: %w", err)
		}
		return nil
	})
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var (
		p        model.Promotion
		bogoRaw  []byte
		giftRaw  []byte
		typ      string
		discount string
		applyTo  string
	)

	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&typ,
		&discount,
		&p.DiscountValue,
		&p.MaxDiscount,
		&applyTo,
		&p.ProductIDs,
		&p.CategoryIDs,
		&p.CustomerIDs,
		&p.MinPurchase,
		&p.MinQuantity,
		&p.MaxQuantity,
		&bogoRaw,
		&giftRaw,
		&p.UsageLimit,
		&p.PerUserLimit,
		&p.UsageCount,
		&p.StartDate,
		&p.EndDate,
		&p.IsActive,
		&p.Priority,
		&p.CanStack,
		&p.StacksWith,
		&p.IsAIGenerated,
		&p.IsPublic,
		&p.ShowOnWebsite,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Type = model.PromotionType(typ)
	p.DiscountType = model.DiscountType(discount)
	p.ApplyTo = model.ApplyTo(applyTo)

	if len(bogoRaw) > 0 {
		p.BogoConfig = &model.BogoConfig{}
		if err := json.Unmarshal(bogoRaw, p.BogoConfig); err != nil {
			return nil, fmt.Errorf("decode bogo config: %w", err)
		}
	}
	if len(giftRaw) > 0 {
		p.FreeGiftConfig = &model.FreeGiftConfig{}
		if err := json.Unmarshal(giftRaw, p.FreeGiftConfig); err != nil {
			return nil, fmt.Errorf("decode free gift config: %w", err)
		}
	}
	return &p, nil
}

// encodeConfig returns nil for a nil config so the column is written as NULL.
func encodeConfig[T any](cfg *T) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	return json.Marshal(cfg)
}

// isUniqueViolation checks for SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
