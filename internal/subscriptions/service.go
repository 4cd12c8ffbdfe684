package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/config"
	dbpkg "github.com/contentforge/contentforge-backend/pkg/db"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
	"github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

// WebhookPayload is the normalized shape of a payment-provider event after
// signature verification and decoding at the transport layer.
type WebhookPayload struct {
	EventID                string
	Type                   enums.WebhookEventType
	UserID                 uuid.UUID
	ProviderSubscriptionID string
	Tier                   enums.SubscriptionTier
	PeriodEnd              time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type usersRepo interface {
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error)
	AssignPlan(tx *gorm.DB, id uuid.UUID, tier enums.SubscriptionTier, status enums.AccountStatus, trialActive bool, trialEnd *time.Time) error
}

type subscriptionRepo interface {
	FindByProviderIDTx(tx *gorm.DB, providerID string) (*models.Subscription, error)
	CreateTx(tx *gorm.DB, sub *models.Subscription) error
	UpdateTx(tx *gorm.DB, sub *models.Subscription) error
	HasAppliedEventTx(tx *gorm.DB, eventID string) (bool, error)
	RecordAppliedEventTx(tx *gorm.DB, event models.WebhookEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
}

// ReplayGuard is the Redis fast path in front of the webhook ledger.
type ReplayGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	DB     txRunner
	Repo   subscriptionRepo
	Users  usersRepo
	Guard  ReplayGuard
	Outbox emitter
	Trial  config.TrialConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// Service owns the subscription state machine.
//
// Transitions are driven by normalized webhook events. A cancelled row is
// terminal; later events for the same provider subscription are rejected.
// Replays are absorbed twice: a Redis SETNX fast path, then the durable
// webhook_events ledger inside the application transaction.
type Service struct {
	db     txRunner
	repo   subscriptionRepo
	users  usersRepo
	guard  ReplayGuard
	outbox emitter
	trial  config.TrialConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a subscriptions service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:     params.DB,
		repo:   params.Repo,
		users:  params.Users,
		guard:  params.Guard,
		outbox: params.Outbox,
		trial:  params.Trial,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// ApplyWebhook applies one provider event exactly once.
func (s *Service) ApplyWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if !payload.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown webhook event type")
	}
	if payload.ProviderSubscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider subscription id is required")
	}

	if s.guard != nil {
		already, err := s.guard.CheckAndMark(ctx, payload.EventID)
		if err == nil && already {
			return nil
		}
		// A guard error falls through to the ledger; Redis being down must
		// not drop billing events.
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.repo.HasAppliedEventTx(tx, payload.EventID)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		return s.applyLocked(ctx, tx, payload)
	})
	if err != nil && s.guard != nil {
		// Unmark so the provider retry is not swallowed by the fast path.
		_ = s.guard.Delete(ctx, payload.EventID)
	}
	return err
}

func (s *Service) applyLocked(ctx context.Context, tx *gorm.DB, payload WebhookPayload) error {
	sub, err := s.repo.FindByProviderIDTx(tx, payload.ProviderSubscriptionID)
	if err != nil {
		return err
	}

	if sub != nil && sub.Status.IsTerminal() && payload.Type != enums.WebhookEventCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is cancelled").
			WithDetails(map[string]string{"provider_subscription_id": payload.ProviderSubscriptionID})
	}

	var userID uuid.UUID
	switch payload.Type {
	case enums.WebhookEventCreated:
		userID, err = s.applyCreated(tx, sub, payload)
	case enums.WebhookEventRenewed:
		userID, err = s.applyRenewed(tx, sub, payload)
	case enums.WebhookEventFailed:
		userID, err = s.applyFailed(tx, sub, payload)
	case enums.WebhookEventCancelled:
		userID, err = s.applyCancelled(tx, sub, payload)
	}
	if err != nil {
		return err
	}

	record := models.WebhookEvent{
		EventID:        payload.EventID,
		SubscriptionID: payload.ProviderSubscriptionID,
		UserID:         userID,
		Type:           payload.Type,
		PeriodEnd:      payload.PeriodEnd,
	}
	if err := s.repo.RecordAppliedEventTx(tx, record); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_webhook_events_event_id") {
			// Two deliveries of the same event raced past the ledger check.
			// The loser rolls back; the provider retry hits the applied path.
			return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "webhook event already applied")
		}
		return err
	}
	return nil
}

func (s *Service) applyCreated(tx *gorm.DB, sub *models.Subscription, payload WebhookPayload) (uuid.UUID, error) {
	if payload.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	tier := payload.Tier
	if !tier.IsValid() || !tier.IsPaid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "created event requires a paid tier")
	}

	user, err := s.users.FindByIDTx(tx, payload.UserID)
	if err != nil {
		return uuid.Nil, err
	}

	if sub == nil {
		sub = &models.Subscription{
			UserID:                 payload.UserID,
			Tier:                   tier,
			Status:                 enums.SubscriptionStatusActive,
			ProviderSubscriptionID: payload.ProviderSubscriptionID,
			CurrentPeriodEnd:       payload.PeriodEnd,
		}
		if err := s.repo.CreateTx(tx, sub); err != nil {
			return uuid.Nil, err
		}
	} else {
		// Provider retry with a fresh event id: refresh, don't duplicate.
		sub.Tier = tier
		sub.Status = enums.SubscriptionStatusActive
		sub.CurrentPeriodEnd = payload.PeriodEnd
		if err := s.repo.UpdateTx(tx, sub); err != nil {
			return uuid.Nil, err
		}
	}

	previous := user.SubscriptionStatus
	if err := s.users.AssignPlan(tx, user.ID, tier, enums.AccountStatusActive, false, nil); err != nil {
		return uuid.Nil, err
	}
	return user.ID, s.emitChange(tx, user.ID, sub, previous, enums.AccountStatusActive, payload.Type)
}

func (s *Service) applyRenewed(tx *gorm.DB, sub *models.Subscription, payload WebhookPayload) (uuid.UUID, error) {
	if sub == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	sub.Status = enums.SubscriptionStatusActive
	sub.CurrentPeriodEnd = payload.PeriodEnd
	if err := s.repo.UpdateTx(tx, sub); err != nil {
		return uuid.Nil, err
	}

	user, err := s.users.FindByIDTx(tx, sub.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	previous := user.SubscriptionStatus
	if err := s.users.AssignPlan(tx, user.ID, sub.Tier, enums.AccountStatusActive, false, nil); err != nil {
		return uuid.Nil, err
	}
	return user.ID, s.emitChange(tx, user.ID, sub, previous, enums.AccountStatusActive, payload.Type)
}

func (s *Service) applyFailed(tx *gorm.DB, sub *models.Subscription, payload WebhookPayload) (uuid.UUID, error) {
	if sub == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	sub.Status = enums.SubscriptionStatusPastDue
	if err := s.repo.UpdateTx(tx, sub); err != nil {
		return uuid.Nil, err
	}

	user, err := s.users.FindByIDTx(tx, sub.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	previous := user.SubscriptionStatus
	// The stored tier is kept so a later renewal restores the plan, but the
	// entitlement gate treats past_due as free access until billing recovers.
	if err := s.users.AssignPlan(tx, user.ID, sub.Tier, enums.AccountStatusPastDue, false, nil); err != nil {
		return uuid.Nil, err
	}
	return user.ID, s.emitChange(tx, user.ID, sub, previous, enums.AccountStatusPastDue, payload.Type)
}

func (s *Service) applyCancelled(tx *gorm.DB, sub *models.Subscription, payload WebhookPayload) (uuid.UUID, error) {
	if sub == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status.IsTerminal() {
		// Replayed cancellation with a fresh event id is a no-op.
		return sub.UserID, nil
	}
	now := s.now()
	sub.Status = enums.SubscriptionStatusCancelled
	sub.CanceledAt = &now
	if err := s.repo.UpdateTx(tx, sub); err != nil {
		return uuid.Nil, err
	}

	user, err := s.users.FindByIDTx(tx, sub.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	previous := user.SubscriptionStatus
	if err := s.users.AssignPlan(tx, user.ID, enums.TierFree, enums.AccountStatusCancelled, false, nil); err != nil {
		return uuid.Nil, err
	}
	return user.ID, s.emitChange(tx, user.ID, sub, previous, enums.AccountStatusCancelled, payload.Type)
}

func (s *Service) emitChange(tx *gorm.DB, userID uuid.UUID, sub *models.Subscription, previous, next enums.AccountStatus, trigger enums.WebhookEventType) error {
	if s.outbox == nil {
		return nil
	}
	var subID *uuid.UUID
	tier := enums.TierFree
	if sub != nil {
		subID = &sub.ID
		tier = sub.Tier
	}
	return s.outbox.Emit(context.Background(), tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionChanged,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   userID,
		Version:       1,
		Data: payloads.SubscriptionChangedEvent{
			UserID:         userID,
			SubscriptionID: subID,
			PreviousStatus: previous,
			NewStatus:      next,
			Tier:           tier,
			Trigger:        trigger,
			ChangedAt:      s.now().UTC(),
		},
	})
}

// StartTrial moves a free account into a time-boxed trial. The stored tier
// is left untouched; a live trial resolves to effective pro access at the
// entitlement gate, so there is no enterprise trial.
func (s *Service) StartTrial(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var trialEnd time.Time
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.FindByIDTx(tx, userID)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return pkgerrors.New(pkgerrors.CodeBlocked, "account restricted")
		}
		if user.SubscriptionStatus != enums.AccountStatusFree {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "trial is only available to free accounts")
		}
		if user.TrialEndDate != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "trial already used")
		}

		trialEnd = s.now().Add(s.trial.Duration())
		if err := s.users.AssignPlan(tx, userID, user.SubscriptionTier, enums.AccountStatusTrial, true, &trialEnd); err != nil {
			return err
		}
		return s.emitChange(tx, userID, nil, enums.AccountStatusFree, enums.AccountStatusTrial, "")
	})
	if err != nil {
		return nil, err
	}
	return &trialEnd, nil
}

// ListForUser exposes the user's subscription history.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}
