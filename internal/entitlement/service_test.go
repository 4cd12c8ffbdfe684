package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepo struct {
	user            *models.User
	findErr         error
	consumeAffected int64
	consumeErr      error
	expireCalled    bool
	consumedUnits   int
	consumedLimit   int
	unboundedCalled bool
}

func (s *stubUserRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.user, nil
}

func (s *stubUserRepo) ConsumeQuota(tx *gorm.DB, id uuid.UUID, units, limit int) (int64, error) {
	s.consumedUnits = units
	s.consumedLimit = limit
	return s.consumeAffected, s.consumeErr
}

func (s *stubUserRepo) ConsumeQuotaUnbounded(tx *gorm.DB, id uuid.UUID, units int) (int64, error) {
	s.unboundedCalled = true
	s.consumedUnits = units
	return 1, nil
}

func (s *stubUserRepo) ExpireTrial(tx *gorm.DB, id uuid.UUID) error {
	s.expireCalled = true
	return nil
}

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func testEntitlementConfig() config.EntitlementConfig {
	return config.EntitlementConfig{
		FreeMonthlyQuota:    10,
		StarterMonthlyQuota: 100,
		ProMonthlyQuota:     500,
		EnterpriseUnbounded: true,
		DefaultActionCost:   1,
	}
}

func newTestService(t *testing.T, repo *stubUserRepo, emitter Emitter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     stubTxRunner{},
		Users:  repo,
		Outbox: emitter,
		Config: testEntitlementConfig(),
	})
	require.NoError(t, err)
	return svc
}

func TestCheckAndConsumeBlockedUser(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{
		ID:                uuid.New(),
		IsBlocked:         true,
		SubscriptionTier:  enums.TierPro,
		MonthlyUsageCount: 3,
	}}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeBlogPost)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, enums.DenyReasonBlocked, decision.DenyReason)
	assert.Zero(t, repo.consumedUnits)
}

func TestCheckAndConsumeStaleTrialDowngrades(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	repo := &stubUserRepo{
		user: &models.User{
			ID:                uuid.New(),
			SubscriptionTier:  enums.TierPro,
			IsTrialActive:     true,
			TrialEndDate:      &past,
			MonthlyUsageCount: 0,
		},
		consumeAffected: 1,
	}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeEmail)
	require.NoError(t, err)
	assert.True(t, repo.expireCalled)
	assert.Equal(t, enums.TierFree, decision.EffectiveTier)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 10, *decision.Limit)
}

func TestCheckAndConsumeLiveTrialGrantsPro(t *testing.T) {
	future := time.Now().Add(time.Hour)
	repo := &stubUserRepo{
		user: &models.User{
			ID:               uuid.New(),
			SubscriptionTier: enums.TierPro,
			IsTrialActive:    true,
			TrialEndDate:     &future,
		},
		consumeAffected: 1,
	}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeEmail)
	require.NoError(t, err)
	assert.False(t, repo.expireCalled)
	assert.Equal(t, enums.TierPro, decision.EffectiveTier)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 500, *decision.Limit)
}

func TestCheckAndConsumeTrialNeverGrantsEnterprise(t *testing.T) {
	future := time.Now().Add(time.Hour)
	repo := &stubUserRepo{
		user: &models.User{
			ID:               uuid.New(),
			SubscriptionTier: enums.TierEnterprise,
			IsTrialActive:    true,
			TrialEndDate:     &future,
		},
		consumeAffected: 1,
	}
	svc := newTestService(t, repo, nil)

	// A trialing account gets pro quota, never the unbounded enterprise path.
	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeImage)
	require.NoError(t, err)
	assert.False(t, repo.unboundedCalled)
	assert.Equal(t, enums.TierPro, decision.EffectiveTier)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 500, *decision.Limit)
}

func TestCheckAndConsumePastDueFallsBackToFree(t *testing.T) {
	repo := &stubUserRepo{
		user: &models.User{
			ID:                 uuid.New(),
			SubscriptionTier:   enums.TierPro,
			SubscriptionStatus: enums.AccountStatusPastDue,
			MonthlyUsageCount:  450,
		},
		consumeAffected: 0,
	}
	svc := newTestService(t, repo, nil)

	// The stored tier stays pro for billing recovery, but a delinquent
	// subscription only entitles the free quota.
	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeBlogPost)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, enums.DenyReasonQuotaExceeded, decision.DenyReason)
	assert.Equal(t, enums.TierFree, decision.EffectiveTier)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 10, *decision.Limit)
	assert.Equal(t, 10, repo.consumedLimit)
}

func TestCheckAndConsumeCancelledFallsBackToFree(t *testing.T) {
	repo := &stubUserRepo{
		user: &models.User{
			ID:                 uuid.New(),
			SubscriptionTier:   enums.TierStarter,
			SubscriptionStatus: enums.AccountStatusCancelled,
		},
		consumeAffected: 1,
	}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeEmail)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, enums.TierFree, decision.EffectiveTier)
	require.NotNil(t, decision.Limit)
	assert.Equal(t, 10, *decision.Limit)
}

func TestCheckAndConsumeQuotaExceeded(t *testing.T) {
	repo := &stubUserRepo{
		user: &models.User{
			ID:                 uuid.New(),
			SubscriptionTier:   enums.TierStarter,
			SubscriptionStatus: enums.AccountStatusActive,
			MonthlyUsageCount:  100,
		},
		consumeAffected: 0,
	}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeAdCopy)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, enums.DenyReasonQuotaExceeded, decision.DenyReason)
	assert.Equal(t, 100, decision.Usage)
}

func TestCheckAndConsumeEnterpriseUnbounded(t *testing.T) {
	emitter := &stubEmitter{}
	repo := &stubUserRepo{
		user: &models.User{
			ID:                 uuid.New(),
			SubscriptionTier:   enums.TierEnterprise,
			SubscriptionStatus: enums.AccountStatusActive,
			MonthlyUsageCount:  99999,
		},
	}
	svc := newTestService(t, repo, emitter)

	decision, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeImage)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, repo.unboundedCalled)
	assert.Nil(t, decision.Limit)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventGenerationRecorded, emitter.events[0].EventType)
}

func TestCheckAndConsumeFailsClosed(t *testing.T) {
	repo := &stubUserRepo{findErr: errors.New("connection reset")}
	svc := newTestService(t, repo, nil)

	decision, err := svc.CheckAndConsume(context.Background(), uuid.New(), enums.ContentTypeBlogPost)
	require.Error(t, err)
	assert.Nil(t, decision)
}

func TestCheckAndConsumeEmitFailureRollsBack(t *testing.T) {
	emitter := &stubEmitter{err: errors.New("outbox insert failed")}
	repo := &stubUserRepo{
		user: &models.User{
			ID:               uuid.New(),
			SubscriptionTier: enums.TierStarter,
		},
		consumeAffected: 1,
	}
	svc := newTestService(t, repo, emitter)

	_, err := svc.CheckAndConsume(context.Background(), repo.user.ID, enums.ContentTypeBlogPost)
	require.Error(t, err)
}
