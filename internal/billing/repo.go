package billing

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// Repository persists billing plans. Plan IDs double as the payment
// provider's price identifiers, so checkout needs no separate mapping table.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListPlans returns plans ordered by price, cheapest first.
func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]models.BillingPlan, error) {
	qb := r.db.WithContext(ctx).Model(&models.BillingPlan{})
	if activeOnly {
		qb = qb.Where("status = ?", enums.PlanStatusActive)
	}
	var rows []models.BillingPlan
	if err := qb.Order("price_amount ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByTier loads the plan backing a tier.
func (r *Repository) FindByTier(ctx context.Context, tier enums.SubscriptionTier) (*models.BillingPlan, error) {
	var row models.BillingPlan
	if err := r.db.WithContext(ctx).First(&row, "tier = ?", tier).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByID loads a plan by its provider price id.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.BillingPlan, error) {
	var row models.BillingPlan
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert creates or refreshes a plan row, keyed by tier. Used by the seed
// path so redeploys converge on the configured catalog.
func (r *Repository) Upsert(ctx context.Context, plan *models.BillingPlan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"id", "name", "status", "interval", "price_amount",
				"currency_code", "trial_days", "features", "ui",
			}),
		}).
		Create(plan).Error
}
