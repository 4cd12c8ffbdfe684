package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                 uuid.UUID              `json:"id"`
	Email              string                 `json:"email"`
	Name               string                 `json:"name"`
	SubscriptionTier   enums.SubscriptionTier `json:"subscription_tier"`
	SubscriptionStatus enums.AccountStatus    `json:"subscription_status"`
	IsTrialActive      bool                   `json:"is_trial_active"`
	TrialEndDate       *time.Time             `json:"trial_end_date,omitempty"`
	MonthlyUsageCount  int                    `json:"monthly_usage_count"`
	IsAdmin            bool                   `json:"is_admin"`
	LastLoginAt        *time.Time             `json:"last_login_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// AdminUserDTO extends UserDTO with the moderation fields only back-office
// callers may see.
type AdminUserDTO struct {
	UserDTO
	TotalGenerationCount int     `json:"total_generation_count"`
	RiskScore            int     `json:"risk_score"`
	IsFlagged            bool    `json:"is_flagged"`
	FlagReason           *string `json:"flag_reason,omitempty"`
	IsBlocked            bool    `json:"is_blocked"`
	BlockReason          *string `json:"block_reason,omitempty"`
	SignupIP             string  `json:"signup_ip,omitempty"`
	LastIP               string  `json:"last_ip,omitempty"`
	DeviceFingerprint    string  `json:"device_fingerprint,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email             string
	PasswordHash      string
	Name              string
	SignupIP          string
	DeviceFingerprint string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		SubscriptionTier:   u.SubscriptionTier,
		SubscriptionStatus: u.SubscriptionStatus,
		IsTrialActive:      u.IsTrialActive,
		TrialEndDate:       u.TrialEndDate,
		MonthlyUsageCount:  u.MonthlyUsageCount,
		IsAdmin:            u.IsAdmin,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func AdminFromModel(u *models.User) *AdminUserDTO {
	if u == nil {
		return nil
	}
	return &AdminUserDTO{
		UserDTO:              *FromModel(u),
		TotalGenerationCount: u.TotalGenerationCount,
		RiskScore:            u.RiskScore,
		IsFlagged:            u.IsFlagged,
		FlagReason:           u.FlagReason,
		IsBlocked:            u.IsBlocked,
		BlockReason:          u.BlockReason,
		SignupIP:             u.SignupIP,
		LastIP:               u.LastIP,
		DeviceFingerprint:    u.DeviceFingerprint,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:              c.Email,
		PasswordHash:       c.PasswordHash,
		Name:               c.Name,
		SubscriptionTier:   enums.TierFree,
		SubscriptionStatus: enums.AccountStatusFree,
		SignupIP:           c.SignupIP,
		LastIP:             c.SignupIP,
		DeviceFingerprint:  c.DeviceFingerprint,
	}
}
