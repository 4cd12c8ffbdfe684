package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/metrics"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
	"github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

// TxRunner abstracts the transactional entrypoint of the db client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UserRepo is the slice of the users repository the gate needs.
type UserRepo interface {
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error)
	ConsumeQuota(tx *gorm.DB, id uuid.UUID, units, limit int) (int64, error)
	ConsumeQuotaUnbounded(tx *gorm.DB, id uuid.UUID, units int) (int64, error)
	ExpireTrial(tx *gorm.DB, id uuid.UUID) error
}

// Emitter queues domain events inside the same transaction as the consume.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Decision is the outcome of a single entitlement check.
type Decision struct {
	Allowed       bool
	DenyReason    enums.DenyReason
	EffectiveTier enums.SubscriptionTier
	Units         int
	Usage         int
	Limit         *int
}

// ServiceParams groups dependencies for the entitlement gate.
type ServiceParams struct {
	DB      TxRunner
	Users   UserRepo
	Outbox  Emitter
	Config  config.EntitlementConfig
	Logger  *logger.Logger
	Metrics *metrics.GenerationMetrics
	Now     func() time.Time
}

// Service is the usage gate every generation request passes through.
//
// The check and the consume happen in one transaction with a conditional
// UPDATE, so two concurrent requests can never both take the last unit.
// Any infrastructure failure denies the request (fail closed).
type Service struct {
	db      TxRunner
	users   UserRepo
	outbox  Emitter
	cfg     config.EntitlementConfig
	logg    *logger.Logger
	metrics *metrics.GenerationMetrics
	now     func() time.Time
}

// NewService builds an entitlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Users == nil {
		return nil, errors.New("users repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:      params.DB,
		users:   params.Users,
		outbox:  params.Outbox,
		cfg:     params.Config,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// CheckAndConsume decides whether the user may generate content of the given
// type and, if so, burns the quota units in the same transaction.
func (s *Service) CheckAndConsume(ctx context.Context, userID uuid.UUID, contentType enums.ContentType) (*Decision, error) {
	decision := &Decision{Units: s.cfg.CostForType(contentType.String())}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.FindByIDTx(tx, userID)
		if err != nil {
			return err
		}

		// Blocked accounts are refused before any tier or quota math.
		if user.IsBlocked {
			decision.Allowed = false
			decision.DenyReason = enums.DenyReasonBlocked
			decision.EffectiveTier = user.SubscriptionTier
			decision.Usage = user.MonthlyUsageCount
			return nil
		}

		tier := s.resolveEffectiveTier(tx, user)
		decision.EffectiveTier = tier

		limit, unbounded := s.cfg.QuotaForTier(tier.String())
		if unbounded {
			affected, err := s.users.ConsumeQuotaUnbounded(tx, userID, decision.Units)
			if err != nil {
				return err
			}
			if affected == 0 {
				return gorm.ErrRecordNotFound
			}
			decision.Allowed = true
			decision.Usage = user.MonthlyUsageCount + decision.Units
			return s.recordGeneration(ctx, tx, user, contentType, decision, nil)
		}

		decision.Limit = &limit
		affected, err := s.users.ConsumeQuota(tx, userID, decision.Units, limit)
		if err != nil {
			return err
		}
		if affected == 0 {
			decision.Allowed = false
			decision.DenyReason = enums.DenyReasonQuotaExceeded
			decision.Usage = user.MonthlyUsageCount
			return nil
		}
		decision.Allowed = true
		decision.Usage = user.MonthlyUsageCount + decision.Units
		return s.recordGeneration(ctx, tx, user, contentType, decision, &limit)
	})
	if err != nil {
		// Fail closed: an infrastructure error never grants access.
		if s.logg != nil {
			s.logg.Error(ctx, "entitlement check failed", err)
		}
		s.observe(decision.EffectiveTier, "error")
		return nil, err
	}

	outcome := "allowed"
	if !decision.Allowed {
		outcome = "denied_" + decision.DenyReason.String()
	}
	s.observe(decision.EffectiveTier, outcome)
	return decision, nil
}

// UsageSnapshot is the read-only view behind the usage endpoint.
type UsageSnapshot struct {
	Tier      enums.SubscriptionTier `json:"tier"`
	Usage     int                    `json:"current"`
	Limit     *int                   `json:"limit,omitempty"`
	Remaining *int                   `json:"remaining,omitempty"`
	Total     int                    `json:"total_generations"`
	Blocked   bool                   `json:"blocked"`
}

// Snapshot reports the caller's current usage without consuming anything.
// It still runs the stale-trial guard, so a lapsed trial shows free-tier
// numbers immediately.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) (*UsageSnapshot, error) {
	var snap *UsageSnapshot
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.FindByIDTx(tx, userID)
		if err != nil {
			return err
		}
		tier := s.resolveEffectiveTier(tx, user)
		snap = &UsageSnapshot{
			Tier:    tier,
			Usage:   user.MonthlyUsageCount,
			Total:   user.TotalGenerationCount,
			Blocked: user.IsBlocked,
		}
		if limit, unbounded := s.cfg.QuotaForTier(tier.String()); !unbounded {
			remaining := limit - user.MonthlyUsageCount
			if remaining < 0 {
				remaining = 0
			}
			snap.Limit = &limit
			snap.Remaining = &remaining
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// resolveEffectiveTier maps the stored subscription state to the tier that
// actually grants quota. A live trial grants pro regardless of the stored
// tier; a stale trial is downgraded in the same transaction so the cheaper
// path is taken immediately, not on the next cron sweep. Outside a trial the
// stored tier only counts while the subscription is active, so past_due and
// cancelled accounts fall back to free access until billing recovers.
func (s *Service) resolveEffectiveTier(tx *gorm.DB, user *models.User) enums.SubscriptionTier {
	if user.IsTrialActive {
		if user.TrialEndDate != nil && user.TrialEndDate.After(s.now()) {
			return enums.TierPro
		}
		if err := s.users.ExpireTrial(tx, user.ID); err == nil {
			user.IsTrialActive = false
			user.SubscriptionTier = enums.TierFree
			user.SubscriptionStatus = enums.AccountStatusFree
		}
		return enums.TierFree
	}
	if user.SubscriptionStatus == enums.AccountStatusActive {
		return user.SubscriptionTier
	}
	return enums.TierFree
}

func (s *Service) recordGeneration(ctx context.Context, tx *gorm.DB, user *models.User, contentType enums.ContentType, decision *Decision, limit *int) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventGenerationRecorded,
		AggregateType: enums.AggregateContent,
		AggregateID:   user.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID},
		Version:       1,
		Data: payloads.GenerationRecordedEvent{
			UserID:        user.ID,
			ContentType:   contentType,
			Tier:          decision.EffectiveTier,
			UnitsConsumed: decision.Units,
			UsageAfter:    decision.Usage,
			QuotaLimit:    limit,
			RecordedAt:    s.now().UTC(),
		},
	})
}

func (s *Service) observe(tier enums.SubscriptionTier, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncDecision(tier.String(), outcome)
}
