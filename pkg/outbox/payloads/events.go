package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// GenerationRecordedEvent is emitted after a generation consumed quota.
type GenerationRecordedEvent struct {
	UserID        uuid.UUID              `json:"user_id"`
	ContentID     *uuid.UUID             `json:"content_id,omitempty"`
	ContentType   enums.ContentType      `json:"content_type"`
	Tier          enums.SubscriptionTier `json:"tier"`
	UnitsConsumed int                    `json:"units_consumed"`
	UsageAfter    int                    `json:"usage_after"`
	QuotaLimit    *int                   `json:"quota_limit,omitempty"`
	RecordedAt    time.Time              `json:"recorded_at"`
}

// UserFlaggedEvent signals a risk score crossing the review threshold.
type UserFlaggedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	RiskScore int       `json:"risk_score"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}

// UserBlockedEvent is emitted when an admin blocks or unblocks an account.
type UserBlockedEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	Blocked     bool      `json:"blocked"`
	Reason      string    `json:"reason,omitempty"`
	ActorUserID uuid.UUID `json:"actor_user_id"`
	ChangedAt   time.Time `json:"changed_at"`
}

// SubscriptionChangedEvent mirrors every subscription state transition.
type SubscriptionChangedEvent struct {
	UserID         uuid.UUID              `json:"user_id"`
	SubscriptionID *uuid.UUID             `json:"subscription_id,omitempty"`
	PreviousStatus enums.AccountStatus    `json:"previous_status"`
	NewStatus      enums.AccountStatus    `json:"new_status"`
	Tier           enums.SubscriptionTier `json:"tier"`
	Trigger        enums.WebhookEventType `json:"trigger,omitempty"`
	ChangedAt      time.Time              `json:"changed_at"`
}
