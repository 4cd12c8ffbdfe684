package risk

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
	"github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

// ActivityRepo is the persistence surface the evaluator needs.
type ActivityRepo interface {
	CountAccountsWithFingerprint(tx *gorm.DB, fingerprint string, excludeUserID uuid.UUID, since time.Time) (int64, error)
	CountSignupsFromIP(tx *gorm.DB, ip string, since time.Time) (int64, error)
	InsertActivity(tx *gorm.DB, activity models.SuspiciousActivity) error
}

// UserScorer writes the computed score back to the user row.
type UserScorer interface {
	RaiseRiskScore(tx *gorm.DB, id uuid.UUID, score int, flagged bool, flagReason *string) error
}

// Emitter queues domain events in the evaluation transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Assessment is the outcome of evaluating one signup.
type Assessment struct {
	Score   int
	Flagged bool
	Signals []enums.SuspiciousActivityType
	Reason  string
}

// ServiceParams groups dependencies for the risk evaluator.
type ServiceParams struct {
	Repo   ActivityRepo
	Users  UserScorer
	Outbox Emitter
	Config config.RiskConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// Service scores signups for abuse signals. Scores are additive, clamped to
// [0,100], and only ever raised; admins clear them explicitly. The evaluator
// never blocks an account on its own.
type Service struct {
	repo   ActivityRepo
	users  UserScorer
	outbox Emitter
	cfg    config.RiskConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a risk service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Users == nil {
		return nil, errors.New("users repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   params.Repo,
		users:  params.Users,
		outbox: params.Outbox,
		cfg:    params.Config,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// EvaluateSignup runs every signal against the user inside the caller's
// transaction and persists the verdict. Deltas stack on the existing score,
// so re-evaluation can only move the score up.
func (s *Service) EvaluateSignup(ctx context.Context, tx *gorm.DB, user *models.User) (*Assessment, error) {
	assessment := &Assessment{Score: user.RiskScore}
	now := s.now()

	fingerprint := strings.TrimSpace(user.DeviceFingerprint)
	if fingerprint == "" {
		s.addSignal(assessment, enums.ActivityMissingFingerprint, s.cfg.MissingFingerprintScore)
	} else {
		since := now.Add(-s.cfg.FingerprintReuseWindow)
		reused, err := s.repo.CountAccountsWithFingerprint(tx, fingerprint, user.ID, since)
		if err != nil {
			return nil, err
		}
		if reused >= int64(s.cfg.FingerprintReuseAccounts) {
			s.addSignal(assessment, enums.ActivityFingerprintReuse, s.cfg.FingerprintReuseScore)
		}
	}

	ip := strings.TrimSpace(user.SignupIP)
	if ip != "" {
		since := now.Add(-s.cfg.IPVelocityWindow)
		signups, err := s.repo.CountSignupsFromIP(tx, ip, since)
		if err != nil {
			return nil, err
		}
		if signups >= int64(s.cfg.IPVelocitySignups) {
			s.addSignal(assessment, enums.ActivityIPReuse, s.cfg.IPVelocityScore)
		}
		if s.cfg.IsDenyListedIP(ip) {
			s.addSignal(assessment, enums.ActivityProxyIP, s.cfg.ProxyIPScore)
		}
	}

	if assessment.Score > 100 {
		assessment.Score = 100
	}
	assessment.Flagged = assessment.Score >= s.cfg.FlagThreshold
	assessment.Reason = joinSignals(assessment.Signals)

	if len(assessment.Signals) == 0 {
		// Nothing fired; leave the stored score untouched.
		return assessment, nil
	}

	for _, signal := range assessment.Signals {
		activity := models.SuspiciousActivity{
			UserID:       &user.ID,
			ActivityType: signal,
			IP:           ip,
			Fingerprint:  fingerprint,
			RiskScore:    assessment.Score,
		}
		if err := s.repo.InsertActivity(tx, activity); err != nil {
			return nil, err
		}
	}

	if assessment.Score > 0 {
		var reason *string
		if assessment.Flagged {
			reason = &assessment.Reason
		}
		if err := s.users.RaiseRiskScore(tx, user.ID, assessment.Score, assessment.Flagged, reason); err != nil {
			return nil, err
		}
	}

	if assessment.Flagged && s.outbox != nil {
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserFlagged,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Version:       1,
			Data: payloads.UserFlaggedEvent{
				UserID:    user.ID,
				RiskScore: assessment.Score,
				Reason:    assessment.Reason,
				FlaggedAt: now.UTC(),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return assessment, nil
}

func (s *Service) addSignal(assessment *Assessment, signal enums.SuspiciousActivityType, score int) {
	assessment.Signals = append(assessment.Signals, signal)
	assessment.Score += score
}

func joinSignals(signals []enums.SuspiciousActivityType) string {
	if len(signals) == 0 {
		return ""
	}
	parts := make([]string, 0, len(signals))
	for _, signal := range signals {
		parts = append(parts, string(signal))
	}
	return strings.Join(parts, ", ")
}
