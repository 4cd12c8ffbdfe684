package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// BillingPlan captures the local metadata for a subscription tier shown on
// the pricing page. Monthly quotas live in config, not here.
type BillingPlan struct {
	ID           string                 `gorm:"column:id;primaryKey" json:"id"`
	Name         string                 `gorm:"column:name;not null" json:"name"`
	Tier         enums.SubscriptionTier `gorm:"column:tier;type:subscription_tier;not null;uniqueIndex" json:"tier"`
	Status       enums.PlanStatus       `gorm:"column:status;type:plan_status;not null" json:"status"`
	Interval     enums.BillingInterval  `gorm:"column:interval;type:billing_interval;not null" json:"interval"`
	PriceAmount  decimal.Decimal        `gorm:"column:price_amount;type:numeric(12,2);not null" json:"price_amount"`
	CurrencyCode string                 `gorm:"column:currency_code;not null" json:"currency_code"`
	TrialDays    int                    `gorm:"column:trial_days;not null;default:0" json:"trial_days"`
	Features     pq.StringArray         `gorm:"column:features;type:text[];default:ARRAY[]::text[]" json:"features"`
	UI           json.RawMessage        `gorm:"column:ui;type:jsonb" json:"ui,omitempty"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
