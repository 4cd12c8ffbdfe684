package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/logger"
)

const defaultUsageResetDay = 1

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type usageResetRepo interface {
	ResetAllMonthlyUsage(ctx context.Context) (int64, error)
}

// UsageResetJobParams configures the billing-cycle usage reset.
type UsageResetJobParams struct {
	Logger   *logger.Logger
	Users    usageResetRepo
	ResetDay int
	Now      func() time.Time
}

// NewUsageResetJob builds the monthly usage reset job. It runs on the daily
// cron cadence but only fires on the configured day of the month.
func NewUsageResetJob(params UsageResetJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	resetDay := params.ResetDay
	if resetDay <= 0 || resetDay > 28 {
		resetDay = defaultUsageResetDay
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &usageResetJob{
		logg:     params.Logger,
		users:    params.Users,
		resetDay: resetDay,
		now:      now,
	}, nil
}

type usageResetJob struct {
	logg     *logger.Logger
	users    usageResetRepo
	resetDay int
	now      func() time.Time
}

func (j *usageResetJob) Name() string { return "usage-reset" }

func (j *usageResetJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	if today.Day() != j.resetDay {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"day":       today.Day(),
			"reset_day": j.resetDay,
		})
		j.logg.Info(logCtx, "not the reset day; skipping")
		return nil
	}

	reset, err := j.users.ResetAllMonthlyUsage(ctx)
	if err != nil {
		return fmt.Errorf("reset monthly usage: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"users_reset": reset,
	})
	j.logg.Info(logCtx, "monthly usage reset complete")
	return nil
}
