package contact

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

// Repository persists contact messages and newsletter subscribers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateMessage inserts one inquiry.
func (r *Repository) CreateMessage(ctx context.Context, row *models.ContactMessage) (*models.ContactMessage, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListMessages returns inquiries newest first, optionally unread only.
func (r *Repository) ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	qb := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if unreadOnly {
		qb = qb.Where("is_read = ?", false)
	}
	var rows []models.ContactMessage
	if err := qb.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkMessageRead flips the read flag.
func (r *Repository) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.ContactMessage{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertSubscriber inserts a subscriber or reactivates an existing row.
// Resubscribing after an unsubscribe flips the flag back on.
func (r *Repository) UpsertSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	row := &models.NewsletterSubscriber{
		ID:       uuid.New(),
		Email:    email,
		IsActive: true,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{"is_active": true}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	var saved models.NewsletterSubscriber
	if err := r.db.WithContext(ctx).First(&saved, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeactivateSubscriber flips the active flag off; the row stays for history.
func (r *Repository) DeactivateSubscriber(ctx context.Context, email string) error {
	result := r.db.WithContext(ctx).
		Model(&models.NewsletterSubscriber{}).
		Where("email = ?", email).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSubscribers returns subscribers newest first, optionally active only.
func (r *Repository) ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	qb := r.db.WithContext(ctx).Model(&models.NewsletterSubscriber{})
	if activeOnly {
		qb = qb.Where("is_active = ?", true)
	}
	var rows []models.NewsletterSubscriber
	if err := qb.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
