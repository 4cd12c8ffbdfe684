package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type trialSweepRepo interface {
	ExpireStaleTrials(ctx context.Context, cutoff time.Time) (int64, error)
}

// TrialSweepJobParams configures the stale-trial hygiene sweep.
type TrialSweepJobParams struct {
	Logger *logger.Logger
	Users  trialSweepRepo
	Now    func() time.Time
}

// NewTrialSweepJob builds the trial-flag hygiene job. Entitlement checks
// expire trials on read; this sweep only keeps the stored flags tidy for
// users who never came back.
func NewTrialSweepJob(params TrialSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &trialSweepJob{
		logg:  params.Logger,
		users: params.Users,
		now:   now,
	}, nil
}

type trialSweepJob struct {
	logg  *logger.Logger
	users trialSweepRepo
	now   func() time.Time
}

func (j *trialSweepJob) Name() string { return "trial-sweep" }

func (j *trialSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expired, err := j.users.ExpireStaleTrials(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire stale trials: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"trials_expired": expired,
	})
	j.logg.Info(logCtx, "trial sweep complete")
	return nil
}
