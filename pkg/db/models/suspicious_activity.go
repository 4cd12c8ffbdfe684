package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// SuspiciousActivity is an append-only log row written by the risk evaluator
// whenever a signal crosses a threshold. Rows are never mutated or deleted.
type SuspiciousActivity struct {
	ID           uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID                   `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	ActivityType enums.SuspiciousActivityType `gorm:"column:activity_type;type:suspicious_activity_type;not null" json:"activity_type"`
	IP           string                       `gorm:"column:ip;index" json:"ip,omitempty"`
	Fingerprint  string                       `gorm:"column:fingerprint;index" json:"fingerprint,omitempty"`
	RiskScore    int                          `gorm:"column:risk_score;not null" json:"risk_score"`
	CreatedAt    time.Time                    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
