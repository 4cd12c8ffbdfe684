package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// User is the canonical identity entity. Entitlement, risk, and admin
// moderation all hang off this row.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Name         string    `gorm:"column:name;not null"`

	SubscriptionTier   enums.SubscriptionTier `gorm:"column:subscription_tier;type:subscription_tier;not null;default:'free'"`
	SubscriptionStatus enums.AccountStatus    `gorm:"column:subscription_status;type:account_status;not null;default:'free'"`
	IsTrialActive      bool                   `gorm:"column:is_trial_active;not null;default:false"`
	TrialEndDate       *time.Time             `gorm:"column:trial_end_date"`

	// MonthlyUsageCount resets each billing cycle; TotalGenerationCount never does.
	MonthlyUsageCount    int `gorm:"column:monthly_usage_count;not null;default:0"`
	TotalGenerationCount int `gorm:"column:total_generation_count;not null;default:0"`

	RiskScore         int     `gorm:"column:risk_score;not null;default:0"`
	IsFlagged         bool    `gorm:"column:is_flagged;not null;default:false"`
	FlagReason        *string `gorm:"column:flag_reason"`
	IsBlocked         bool    `gorm:"column:is_blocked;not null;default:false"`
	BlockReason       *string `gorm:"column:block_reason"`
	SignupIP          string  `gorm:"column:signup_ip"`
	LastIP            string  `gorm:"column:last_ip"`
	DeviceFingerprint string  `gorm:"column:device_fingerprint"`

	IsAdmin     bool       `gorm:"column:is_admin;not null;default:false"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
