package subscriptions

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
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
)

type stubTxRunner struct {
	err error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type stubSubRepo struct {
	byProvider map[string]*models.Subscription
	applied    map[string]bool
	ledger     []models.WebhookEvent
	recordErr  error
}

func newStubSubRepo() *stubSubRepo {
	return &stubSubRepo{
		byProvider: map[string]*models.Subscription{},
		applied:    map[string]bool{},
	}
}

func (s *stubSubRepo) FindByProviderIDTx(tx *gorm.DB, providerID string) (*models.Subscription, error) {
	sub, ok := s.byProvider[providerID]
	if !ok {
		return nil, nil
	}
	clone := *sub
	return &clone, nil
}

func (s *stubSubRepo) CreateTx(tx *gorm.DB, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	clone := *sub
	s.byProvider[sub.ProviderSubscriptionID] = &clone
	return nil
}

func (s *stubSubRepo) UpdateTx(tx *gorm.DB, sub *models.Subscription) error {
	clone := *sub
	s.byProvider[sub.ProviderSubscriptionID] = &clone
	return nil
}

func (s *stubSubRepo) HasAppliedEventTx(tx *gorm.DB, eventID string) (bool, error) {
	return s.applied[eventID], nil
}

func (s *stubSubRepo) RecordAppliedEventTx(tx *gorm.DB, event models.WebhookEvent) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.applied[event.EventID] = true
	s.ledger = append(s.ledger, event)
	return nil
}

func (s *stubSubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var rows []models.Subscription
	for _, sub := range s.byProvider {
		if sub.UserID == userID {
			rows = append(rows, *sub)
		}
	}
	return rows, nil
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func newStubUsers(users ...*models.User) *stubUsers {
	s := &stubUsers{users: map[uuid.UUID]*models.User{}}
	for _, user := range users {
		s.users[user.ID] = user
	}
	return s
}

func (s *stubUsers) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

func (s *stubUsers) AssignPlan(tx *gorm.DB, id uuid.UUID, tier enums.SubscriptionTier, status enums.AccountStatus, trialActive bool, trialEnd *time.Time) error {
	user := s.users[id]
	user.SubscriptionTier = tier
	user.SubscriptionStatus = status
	user.IsTrialActive = trialActive
	user.TrialEndDate = trialEnd
	return nil
}

type stubGuard struct {
	seen    map[string]bool
	deleted []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: map[string]bool{}}
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if s.seen[eventID] {
		return true, nil
	}
	s.seen[eventID] = true
	return false, nil
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	delete(s.seen, eventID)
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

func newSubService(t *testing.T, repo *stubSubRepo, users *stubUsers, guard ReplayGuard, emitter emitter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     &stubTxRunner{},
		Repo:   repo,
		Users:  users,
		Guard:  guard,
		Outbox: emitter,
		Trial:  config.TrialConfig{Days: 3},
		Now:    func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func freeUser() *models.User {
	return &models.User{
		ID:                 uuid.New(),
		Email:              "sub@example.com",
		SubscriptionTier:   enums.TierFree,
		SubscriptionStatus: enums.AccountStatusFree,
	}
}

func TestApplyWebhookCreatedActivatesUser(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	users := newStubUsers(user)
	emitter := &stubEmitter{}
	svc := newSubService(t, repo, users, nil, emitter)

	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_1",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_abc",
		Tier:                   enums.TierPro,
		PeriodEnd:              periodEnd,
	})
	require.NoError(t, err)

	sub := repo.byProvider["sub_abc"]
	require.NotNil(t, sub)
	assert.Equal(t, enums.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, enums.TierPro, sub.Tier)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd)

	assert.Equal(t, enums.TierPro, user.SubscriptionTier)
	assert.Equal(t, enums.AccountStatusActive, user.SubscriptionStatus)
	assert.False(t, user.IsTrialActive)

	require.Len(t, repo.ledger, 1)
	assert.Equal(t, "evt_1", repo.ledger[0].EventID)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventSubscriptionChanged, emitter.events[0].EventType)
}

func TestApplyWebhookCreatedEndsTrial(t *testing.T) {
	trialEnd := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	user := freeUser()
	user.SubscriptionTier = enums.TierPro
	user.SubscriptionStatus = enums.AccountStatusTrial
	user.IsTrialActive = true
	user.TrialEndDate = &trialEnd

	repo := newStubSubRepo()
	users := newStubUsers(user)
	svc := newSubService(t, repo, users, nil, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_trial_convert",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_conv",
		Tier:                   enums.TierStarter,
		PeriodEnd:              time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AccountStatusActive, user.SubscriptionStatus)
	assert.False(t, user.IsTrialActive)
	assert.Nil(t, user.TrialEndDate)
}

func TestApplyWebhookReplayGuardFastPath(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	users := newStubUsers(user)
	guard := newStubGuard()
	svc := newSubService(t, repo, users, guard, nil)

	payload := WebhookPayload{
		EventID:                "evt_dup",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_dup",
		Tier:                   enums.TierStarter,
		PeriodEnd:              time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.ApplyWebhook(context.Background(), payload))
	require.NoError(t, svc.ApplyWebhook(context.Background(), payload))

	assert.Len(t, repo.ledger, 1)
}

func TestApplyWebhookReplayLedgerWithoutGuard(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	repo.applied["evt_seen"] = true
	users := newStubUsers(user)
	svc := newSubService(t, repo, users, nil, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_seen",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_seen",
		Tier:                   enums.TierPro,
		PeriodEnd:              time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, repo.byProvider)
	assert.Equal(t, enums.AccountStatusFree, user.SubscriptionStatus)
}

func TestApplyWebhookFailedMarksPastDue(t *testing.T) {
	user := freeUser()
	user.SubscriptionTier = enums.TierPro
	user.SubscriptionStatus = enums.AccountStatusActive
	repo := newStubSubRepo()
	repo.byProvider["sub_pd"] = &models.Subscription{
		ID:                     uuid.New(),
		UserID:                 user.ID,
		Tier:                   enums.TierPro,
		Status:                 enums.SubscriptionStatusActive,
		ProviderSubscriptionID: "sub_pd",
	}
	users := newStubUsers(user)
	svc := newSubService(t, repo, users, nil, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_fail",
		Type:                   enums.WebhookEventFailed,
		ProviderSubscriptionID: "sub_pd",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPastDue, repo.byProvider["sub_pd"].Status)
	assert.Equal(t, enums.AccountStatusPastDue, user.SubscriptionStatus)
	// Stored tier stays pro so a renewal restores the plan without another
	// created event; effective access is resolved from the status.
	assert.Equal(t, enums.TierPro, user.SubscriptionTier)
}

func TestApplyWebhookCancelledIsTerminal(t *testing.T) {
	user := freeUser()
	user.SubscriptionTier = enums.TierPro
	user.SubscriptionStatus = enums.AccountStatusActive
	repo := newStubSubRepo()
	repo.byProvider["sub_cancel"] = &models.Subscription{
		ID:                     uuid.New(),
		UserID:                 user.ID,
		Tier:                   enums.TierPro,
		Status:                 enums.SubscriptionStatusActive,
		ProviderSubscriptionID: "sub_cancel",
	}
	users := newStubUsers(user)
	svc := newSubService(t, repo, users, nil, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_cancel",
		Type:                   enums.WebhookEventCancelled,
		ProviderSubscriptionID: "sub_cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCancelled, repo.byProvider["sub_cancel"].Status)
	assert.NotNil(t, repo.byProvider["sub_cancel"].CanceledAt)
	assert.Equal(t, enums.TierFree, user.SubscriptionTier)
	assert.Equal(t, enums.AccountStatusCancelled, user.SubscriptionStatus)

	// Any later lifecycle event on the cancelled row is a state conflict.
	err = svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_late_renew",
		Type:                   enums.WebhookEventRenewed,
		ProviderSubscriptionID: "sub_cancel",
	})
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	// A replayed cancellation with a fresh event id is absorbed silently.
	err = svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_cancel_again",
		Type:                   enums.WebhookEventCancelled,
		ProviderSubscriptionID: "sub_cancel",
	})
	require.NoError(t, err)
}

func TestApplyWebhookRenewedUnknownSubscription(t *testing.T) {
	repo := newStubSubRepo()
	users := newStubUsers()
	svc := newSubService(t, repo, users, nil, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_orphan",
		Type:                   enums.WebhookEventRenewed,
		ProviderSubscriptionID: "sub_missing",
	})
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestApplyWebhookConcurrentReplayMapsToIdempotency(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	repo.recordErr = errors.New(`duplicate key value violates unique constraint "ux_webhook_events_event_id"`)
	users := newStubUsers(user)
	guard := newStubGuard()
	svc := newSubService(t, repo, users, guard, nil)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_race",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_race",
		Tier:                   enums.TierPro,
		PeriodEnd:              time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeIdempotency, appErr.Code())
	// The guard is unmarked so the provider retry reaches the ledger check.
	assert.Contains(t, guard.deleted, "evt_race")
}

func TestApplyWebhookTxFailureUnmarksGuard(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	users := newStubUsers(user)
	guard := newStubGuard()
	emitter := &stubEmitter{err: pkgerrors.New(pkgerrors.CodeInternal, "outbox unavailable")}
	svc := newSubService(t, repo, users, guard, emitter)

	err := svc.ApplyWebhook(context.Background(), WebhookPayload{
		EventID:                "evt_rollback",
		Type:                   enums.WebhookEventCreated,
		UserID:                 user.ID,
		ProviderSubscriptionID: "sub_rb",
		Tier:                   enums.TierPro,
		PeriodEnd:              time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, guard.deleted, "evt_rollback")
	assert.False(t, guard.seen["evt_rollback"])
}

func TestStartTrial(t *testing.T) {
	user := freeUser()
	repo := newStubSubRepo()
	users := newStubUsers(user)
	svc := newSubService(t, repo, users, nil, &stubEmitter{})

	trialEnd, err := svc.StartTrial(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, trialEnd)
	assert.Equal(t, time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC), *trialEnd)
	assert.Equal(t, enums.AccountStatusTrial, user.SubscriptionStatus)
	assert.True(t, user.IsTrialActive)

	// The trial is one-shot even after it lapses back to free.
	user.SubscriptionStatus = enums.AccountStatusFree
	user.IsTrialActive = false
	_, err = svc.StartTrial(context.Background(), user.ID)
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestStartTrialLeavesStoredTierUntouched(t *testing.T) {
	user := freeUser()
	users := newStubUsers(user)
	svc := newSubService(t, newStubSubRepo(), users, nil, nil)

	// There is no tier choice on the trial path; the stored tier stays free
	// and the entitlement gate resolves a live trial to pro access, so a
	// trial can never reach the unbounded enterprise quota.
	_, err := svc.StartTrial(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TierFree, user.SubscriptionTier)
	assert.Equal(t, enums.AccountStatusTrial, user.SubscriptionStatus)
	assert.True(t, user.IsTrialActive)
}
