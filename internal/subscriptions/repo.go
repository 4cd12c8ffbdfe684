package subscriptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

// Repository persists subscription rows and the applied-webhook ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscriptions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByProviderIDTx loads the row for a payment-provider subscription id.
// Returns (nil, nil) when no row exists yet.
func (r *Repository) FindByProviderIDTx(tx *gorm.DB, providerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.Where("provider_subscription_id = ?", providerID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// CreateTx inserts a new subscription row.
func (r *Repository) CreateTx(tx *gorm.DB, sub *models.Subscription) error {
	return tx.Create(sub).Error
}

// UpdateTx saves the mutated subscription row.
func (r *Repository) UpdateTx(tx *gorm.DB, sub *models.Subscription) error {
	return tx.Save(sub).Error
}

// HasAppliedEventTx reports whether the webhook event id was already applied.
func (r *Repository) HasAppliedEventTx(tx *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := tx.Model(&models.WebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

// RecordAppliedEventTx appends the event to the applied ledger. The unique
// event_id index is the durable idempotency guarantee.
func (r *Repository) RecordAppliedEventTx(tx *gorm.DB, event models.WebhookEvent) error {
	return tx.Create(&event).Error
}

// ListByUser returns all subscription rows for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
