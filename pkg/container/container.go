package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"promotion-engine/internal/config"
	"promotion-engine/internal/domains/promotion/engine"
	promotionHandler "promotion-engine/internal/domains/promotion/handler"
	promotionJob "promotion-engine/internal/domains/promotion/job"
	"promotion-engine/internal/domains/promotion/ledger"
	promotionRepo "promotion-engine/internal/domains/promotion/repository"
	promotionService "promotion-engine/internal/domains/promotion/service"
	infraCache "promotion-engine/internal/infrastructure/cache"
	"promotion-engine/internal/infrastructure/database"
	"promotion-engine/pkg/cache"
	"promotion-engine/pkg/jwt"
	"promotion-engine/pkg/kafka"
	"promotion-engine/pkg/logger"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph. Every component is a
// singleton for the lifetime of the process.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Producer    *kafka.Producer // nil when KAFKA_BROKERS is empty

	// ========================================
	// REPOSITORY LAYER (DATA ACCESS)
	// ========================================
	PromotionStore *promotionRepo.PostgresRepository
	PromotionRepo  *promotionRepo.CachedRepository

	// ========================================
	// DOMAIN LAYER
	// ========================================
	Engine *engine.Engine
	Ledger *ledger.Ledger

	// ========================================
	// SERVICE LAYER (BUSINESS LOGIC)
	// ========================================
	PromotionService promotionService.ServiceInterface

	// ========================================
	// HANDLER LAYER (HTTP + JOBS)
	// ========================================
	PromotionPublicHandler *promotionHandler.PublicHandler
	PromotionAdminHandler  *promotionHandler.AdminHandler
	RedemptionRejectedJob  *promotionJob.RedemptionRejectedHandler
	CatalogRefreshJob      *promotionJob.CatalogRefreshHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer loads config, connects infrastructure and wires every layer.
// Redis is non-critical: the catalog cache degrades to direct reads.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	logger.Info("config loaded", map[string]interface{}{"environment": cfg.App.Environment})

	db := database.NewPostgresDB(cfg.DBConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		logger.Warn("redis connection failed (non-critical)", map[string]interface{}{"error": err.Error()})
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client)

	c.AsynqClient = asynq.NewClient(c.RedisClientOpt())

	if len(cfg.Kafka.Brokers) > 0 {
		c.Producer = kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers))
	} else {
		logger.Warn("KAFKA_BROKERS not set, redeemed events are disabled", nil)
	}

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := c.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	c.initHandlers()

	logger.Info("container initialized", nil)
	return c, nil
}

func (c *Container) initRepositories() error {
	c.PromotionStore = promotionRepo.NewPostgresRepository(c.DB.Pool)
	c.PromotionRepo = promotionRepo.NewCachedRepository(c.PromotionStore, c.Cache, c.Config.Engine.CatalogCacheTTL)
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	c.Engine = engine.New(engine.Options{Scale: c.Config.Engine.CurrencyScale})

	store, err := c.ledgerStore(ctx)
	if err != nil {
		return err
	}
	c.Ledger = ledger.New(store, c.Config.Engine.LedgerTimeout)

	var events promotionService.EventPublisher
	if c.Producer != nil {
		events = c.Producer
	}

	c.PromotionService = promotionService.NewPromotionService(
		c.PromotionRepo,
		c.Engine,
		c.Ledger,
		events,
		c.AsynqClient,
		c.Config.Kafka.TopicRedeemed,
	)
	return nil
}

// ledgerStore picks the redemption backend. The memory backend is seeded
// with the promotions active at startup and is meant for local runs.
func (c *Container) ledgerStore(ctx context.Context) (ledger.Store, error) {
	if c.Config.Engine.LedgerBackend != "memory" {
		return c.PromotionStore, nil
	}

	promos, err := c.PromotionStore.ListActiveCandidates(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("seed memory ledger: %w", err)
	}
	logger.Warn("using in-memory ledger", map[string]interface{}{"promotions": len(promos)})
	return ledger.NewMemoryStore(promos...), nil
}

func (c *Container) initHandlers() {
	c.PromotionPublicHandler = promotionHandler.NewPublicHandler(c.PromotionService)
	c.PromotionAdminHandler = promotionHandler.NewAdminHandler(c.PromotionService)
	c.RedemptionRejectedJob = promotionJob.NewRedemptionRejectedHandler(c.PromotionStore)
	c.CatalogRefreshJob = promotionJob.NewCatalogRefreshHandler(c.PromotionRepo)
}

// RedisClientOpt is the asynq connection shared by the client, the worker
// and the scheduler.
func (c *Container) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// Cleanup closes every connection the container opened.
func (c *Container) Cleanup() {
	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			logger.Error("failed to close kafka producer", err)
		}
	}

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("failed to close asynq client", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}
}
