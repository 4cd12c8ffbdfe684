package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// WebhookEvent is the applied-event ledger for payment webhooks. The unique
// event_id constraint is what makes webhook application idempotent even if
// the redis fast-path guard is unavailable.
type WebhookEvent struct {
	ID             uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID        string                 `gorm:"column:event_id;not null;uniqueIndex"`
	SubscriptionID string                 `gorm:"column:subscription_id;not null;index"`
	UserID         uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Type           enums.WebhookEventType `gorm:"column:type;type:webhook_event_type;not null"`
	PeriodEnd      time.Time              `gorm:"column:period_end;not null"`
	AppliedAt      time.Time              `gorm:"column:applied_at;autoCreateTime"`
}
