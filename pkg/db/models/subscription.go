package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// Subscription persists one payment-provider subscription per row. Rows are
// never hard-deleted; cancelled rows stay for audit and MRR history.
type Subscription struct {
	ID                     uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                 uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Tier                   enums.SubscriptionTier   `gorm:"column:tier;type:subscription_tier;not null" json:"tier"`
	Status                 enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'" json:"status"`
	ProviderSubscriptionID string                   `gorm:"column:provider_subscription_id;not null;unique" json:"provider_subscription_id"`
	CurrentPeriodEnd       time.Time                `gorm:"column:current_period_end;not null" json:"current_period_end"`
	CanceledAt             *time.Time               `gorm:"column:canceled_at" json:"canceled_at,omitempty"`
	Metadata               json.RawMessage          `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt              time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
