package query

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

// AccountStats answers subscriber-mix questions straight from Postgres.
// Tier and status counts describe the current population, not history, so
// they do not belong in the event warehouse.
type AccountStats struct {
	db *gorm.DB
}

// NewAccountStats binds the stats reader to the provided GORM DB.
func NewAccountStats(db *gorm.DB) (*AccountStats, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &AccountStats{db: db}, nil
}

type labelCount struct {
	Label string `gorm:"column:label"`
	Value int64  `gorm:"column:value"`
}

// SubscribersByTier counts users per subscription tier.
func (s *AccountStats) SubscribersByTier(ctx context.Context) ([]types.LabelValue, error) {
	return s.countGrouped(ctx, "subscription_tier")
}

// SubscribersByStatus counts users per billing lifecycle status.
func (s *AccountStats) SubscribersByStatus(ctx context.Context) ([]types.LabelValue, error) {
	return s.countGrouped(ctx, "subscription_status")
}

// FlaggedUsers counts accounts currently flagged for review.
func (s *AccountStats) FlaggedUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_flagged = ?", true).
		Count(&count).Error
	return count, err
}

func (s *AccountStats) countGrouped(ctx context.Context, column string) ([]types.LabelValue, error) {
	var rows []labelCount
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select(column + " AS label, COUNT(*) AS value").
		Group(column).
		Order("value DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]types.LabelValue, 0, len(rows))
	for _, row := range rows {
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}
