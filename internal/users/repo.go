package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", normalized).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDTx loads a user inside an open transaction.
func (r *Repository) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp and last IP.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error {
	updates := map[string]any{"last_login_at": at}
	if ip != "" {
		updates["last_ip"] = ip
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

// ConsumeQuota atomically increments monthly usage only while the limit
// holds. The returned count is the number of rows updated: zero means the
// quota was already exhausted (or the usage moved concurrently).
func (r *Repository) ConsumeQuota(tx *gorm.DB, id uuid.UUID, units, limit int) (int64, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND monthly_usage_count + ? <= ?", id, units, limit).
		UpdateColumns(map[string]any{
			"monthly_usage_count":    gorm.Expr("monthly_usage_count + ?", units),
			"total_generation_count": gorm.Expr("total_generation_count + ?", units),
			"updated_at":             time.Now(),
		})
	return res.RowsAffected, res.Error
}

// ConsumeQuotaUnbounded increments usage without a ceiling (enterprise).
func (r *Repository) ConsumeQuotaUnbounded(tx *gorm.DB, id uuid.UUID, units int) (int64, error) {
	res := tx.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"monthly_usage_count":    gorm.Expr("monthly_usage_count + ?", units),
			"total_generation_count": gorm.Expr("total_generation_count + ?", units),
			"updated_at":             time.Now(),
		})
	return res.RowsAffected, res.Error
}

// ExpireTrial lazily downgrades a user whose trial wall-clock ran out.
func (r *Repository) ExpireTrial(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.User{}).
		Where("id = ? AND is_trial_active = ?", id, true).
		UpdateColumns(map[string]any{
			"is_trial_active":     false,
			"subscription_tier":   enums.TierFree,
			"subscription_status": enums.AccountStatusFree,
			"updated_at":          time.Now(),
		}).Error
}

// SetBlocked flips the block flag; reason is cleared on unblock.
func (r *Repository) SetBlocked(tx *gorm.DB, id uuid.UUID, blocked bool, reason *string) error {
	updates := map[string]any{
		"is_blocked": blocked,
		"updated_at": time.Now(),
	}
	if blocked {
		updates["block_reason"] = reason
	} else {
		updates["block_reason"] = nil
	}
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(updates).Error
}

// SetFlag marks the user for manual review.
func (r *Repository) SetFlag(tx *gorm.DB, id uuid.UUID, reason *string) error {
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"is_flagged":  true,
		"flag_reason": reason,
		"updated_at":  time.Now(),
	}).Error
}

// ClearFlags resets the flag and the risk score. This is the only path that
// lowers a risk score.
func (r *Repository) ClearFlags(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"is_flagged":  false,
		"flag_reason": nil,
		"risk_score":  0,
		"updated_at":  time.Now(),
	}).Error
}

// RaiseRiskScore writes a higher risk score and flags when the threshold is
// crossed. The guard clause keeps scores monotonic; ClearFlags is the only
// reset path.
func (r *Repository) RaiseRiskScore(tx *gorm.DB, id uuid.UUID, score int, flagged bool, flagReason *string) error {
	updates := map[string]any{
		"risk_score": score,
		"updated_at": time.Now(),
	}
	if flagged {
		updates["is_flagged"] = true
		updates["flag_reason"] = flagReason
	}
	return tx.Model(&models.User{}).
		Where("id = ? AND risk_score <= ?", id, score).
		UpdateColumns(updates).Error
}

// AssignPlan overrides tier and status in one shot (admin command or webhook
// application).
func (r *Repository) AssignPlan(tx *gorm.DB, id uuid.UUID, tier enums.SubscriptionTier, status enums.AccountStatus, trialActive bool, trialEnd *time.Time) error {
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"subscription_tier":   tier,
		"subscription_status": status,
		"is_trial_active":     trialActive,
		"trial_end_date":      trialEnd,
		"updated_at":          time.Now(),
	}).Error
}

// ExtendTrial pushes the trial end forward and re-arms the trial hint.
func (r *Repository) ExtendTrial(tx *gorm.DB, id uuid.UUID, until time.Time) error {
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"is_trial_active":     true,
		"trial_end_date":      until,
		"subscription_status": enums.AccountStatusTrial,
		"updated_at":          time.Now(),
	}).Error
}

// ResetUsage zeroes the monthly counter for one user.
func (r *Repository) ResetUsage(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"monthly_usage_count": 0,
		"updated_at":          time.Now(),
	}).Error
}

// ResetAllMonthlyUsage zeroes every user's monthly counter. Run by the
// billing-cycle cron.
func (r *Repository) ResetAllMonthlyUsage(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("monthly_usage_count > 0").
		UpdateColumns(map[string]any{
			"monthly_usage_count": 0,
			"updated_at":          time.Now(),
		})
	return res.RowsAffected, res.Error
}

// ExpireStaleTrials downgrades every user whose trial ended before the cutoff.
func (r *Repository) ExpireStaleTrials(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_trial_active = ? AND trial_end_date IS NOT NULL AND trial_end_date < ?", true, cutoff).
		UpdateColumns(map[string]any{
			"is_trial_active":     false,
			"subscription_tier":   enums.TierFree,
			"subscription_status": enums.AccountStatusFree,
			"updated_at":          time.Now(),
		})
	return res.RowsAffected, res.Error
}

// ListFilter narrows admin user listings.
type ListFilter struct {
	FlaggedOnly bool
	BlockedOnly bool
	Email       string
}

// List returns users ordered by signup date, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.FlaggedOnly {
		query = query.Where("is_flagged = ?", true)
	}
	if filter.BlockedOnly {
		query = query.Where("is_blocked = ?", true)
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.User
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}
