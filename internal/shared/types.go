package shared

// Task types handled by the worker
const (
	TypePromotionRedemptionRejected = "promotion:redemption_rejected"
	TypePromotionCatalogRefresh     = "promotion:catalog_refresh"
)

// Queue names
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Kafka event types
const (
	EventPromotionRedeemed = "promotion.redeemed"
)

// Context keys set by the auth middleware
const (
	ContextKeyUserID = "userID"
	ContextKeyRole   = "role"
)

// RoleAdmin is the JWT role allowed on /admin routes.
const RoleAdmin = "admin"
