package admin

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/internal/risk"
	"github.com/contentforge/contentforge-backend/internal/users"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
	"github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

// Command is one back-office mutation against a target user. Action decides
// which optional fields are required.
type Command struct {
	ActorUserID  uuid.UUID
	TargetUserID uuid.UUID
	Action       enums.AdminAction
	Reason       string
	Tier         enums.SubscriptionTier
	TrialDays    int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepo interface {
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.User, error)
	SetBlocked(tx *gorm.DB, id uuid.UUID, blocked bool, reason *string) error
	SetFlag(tx *gorm.DB, id uuid.UUID, reason *string) error
	ClearFlags(tx *gorm.DB, id uuid.UUID) error
	AssignPlan(tx *gorm.DB, id uuid.UUID, tier enums.SubscriptionTier, status enums.AccountStatus, trialActive bool, trialEnd *time.Time) error
	ExtendTrial(tx *gorm.DB, id uuid.UUID, until time.Time) error
	ResetUsage(tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, filter users.ListFilter, limit, offset int) ([]models.User, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type auditRepo interface {
	InsertAuditLogTx(tx *gorm.DB, entry models.AdminAuditLog) error
	InsertAuditLog(ctx context.Context, entry models.AdminAuditLog) error
	ListAuditLogs(ctx context.Context, targetUserID *uuid.UUID, limit int) ([]models.AdminAuditLog, error)
}

type activityRepo interface {
	ListActivities(tx *gorm.DB, userID *uuid.UUID, limit int) ([]models.SuspiciousActivity, error)
	AggregateActivities(tx *gorm.DB, column string, since time.Time, limit int) ([]risk.ActivityCluster, error)
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the admin service.
type ServiceParams struct {
	DB         txRunner
	Users      userRepo
	Audit      auditRepo
	Activities activityRepo
	Outbox     emitter
	Logger     *logger.Logger
	Now        func() time.Time
}

// Service executes the closed set of moderation commands. Every command,
// successful or not, leaves an audit row.
type Service struct {
	db         txRunner
	users      userRepo
	audit      auditRepo
	activities activityRepo
	outbox     emitter
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an admin service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo is required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:         params.DB,
		users:      params.Users,
		audit:      params.Audit,
		activities: params.Activities,
		outbox:     params.Outbox,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// Execute validates and applies one command atomically.
func (s *Service) Execute(ctx context.Context, cmd Command) error {
	if err := s.validate(cmd); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		target, err := s.users.FindByIDTx(tx, cmd.TargetUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}

		detail, err := s.apply(ctx, tx, cmd, target)
		if err != nil {
			return err
		}

		return s.audit.InsertAuditLogTx(tx, models.AdminAuditLog{
			ActorUserID:  cmd.ActorUserID,
			TargetUserID: cmd.TargetUserID,
			Action:       cmd.Action,
			Detail:       detail,
			Succeeded:    true,
		})
	})
	if err != nil {
		s.recordFailure(ctx, cmd, err)
		return err
	}
	return nil
}

func (s *Service) validate(cmd Command) error {
	if !cmd.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown admin action")
	}
	if cmd.ActorUserID == uuid.Nil || cmd.TargetUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor and target are required")
	}
	switch cmd.Action {
	case enums.AdminActionBlock:
		if cmd.ActorUserID == cmd.TargetUserID {
			return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot block themselves")
		}
		if strings.TrimSpace(cmd.Reason) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "block requires a reason")
		}
	case enums.AdminActionFlag:
		if strings.TrimSpace(cmd.Reason) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "flag requires a reason")
		}
	case enums.AdminActionAssignPlan:
		if !cmd.Tier.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "assign_plan requires a tier")
		}
	case enums.AdminActionExtendTrial:
		if cmd.TrialDays <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "extend_trial requires a positive day count")
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, cmd Command, target *models.User) (json.RawMessage, error) {
	switch cmd.Action {
	case enums.AdminActionBlock:
		reason := strings.TrimSpace(cmd.Reason)
		if err := s.users.SetBlocked(tx, target.ID, true, &reason); err != nil {
			return nil, err
		}
		if err := s.emitBlocked(ctx, tx, cmd, true, reason); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"reason": reason, "was_blocked": target.IsBlocked})

	case enums.AdminActionUnblock:
		if err := s.users.SetBlocked(tx, target.ID, false, nil); err != nil {
			return nil, err
		}
		if err := s.emitBlocked(ctx, tx, cmd, false, ""); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"was_blocked": target.IsBlocked})

	case enums.AdminActionFlag:
		reason := strings.TrimSpace(cmd.Reason)
		if err := s.users.SetFlag(tx, target.ID, &reason); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"reason": reason, "risk_score": target.RiskScore})

	case enums.AdminActionClearFlags:
		if err := s.users.ClearFlags(tx, target.ID); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"previous_risk_score": target.RiskScore, "was_flagged": target.IsFlagged})

	case enums.AdminActionAssignPlan:
		status := enums.AccountStatusActive
		if cmd.Tier == enums.TierFree {
			status = enums.AccountStatusFree
		}
		if err := s.users.AssignPlan(tx, target.ID, cmd.Tier, status, false, nil); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{
			"previous_tier": target.SubscriptionTier,
			"new_tier":      cmd.Tier,
		})

	case enums.AdminActionExtendTrial:
		until := s.now().Add(time.Duration(cmd.TrialDays) * 24 * time.Hour)
		if target.TrialEndDate != nil && target.TrialEndDate.After(s.now()) {
			until = target.TrialEndDate.Add(time.Duration(cmd.TrialDays) * 24 * time.Hour)
		}
		if err := s.users.ExtendTrial(tx, target.ID, until); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"days": cmd.TrialDays, "until": until.UTC()})

	case enums.AdminActionResetUsage:
		if err := s.users.ResetUsage(tx, target.ID); err != nil {
			return nil, err
		}
		return marshalDetail(map[string]any{"previous_usage": target.MonthlyUsageCount})
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown admin action")
}

func (s *Service) emitBlocked(ctx context.Context, tx *gorm.DB, cmd Command, blocked bool, reason string) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventUserBlocked,
		AggregateType: enums.AggregateUser,
		AggregateID:   cmd.TargetUserID,
		Version:       1,
		Data: payloads.UserBlockedEvent{
			UserID:      cmd.TargetUserID,
			Blocked:     blocked,
			Reason:      reason,
			ActorUserID: cmd.ActorUserID,
			ChangedAt:   s.now().UTC(),
		},
	})
}

func (s *Service) recordFailure(ctx context.Context, cmd Command, cause error) {
	detail, _ := marshalDetail(map[string]any{"error": cause.Error()})
	entry := models.AdminAuditLog{
		ActorUserID:  cmd.ActorUserID,
		TargetUserID: cmd.TargetUserID,
		Action:       cmd.Action,
		Detail:       detail,
		Succeeded:    false,
	}
	if err := s.audit.InsertAuditLog(ctx, entry); err != nil && s.logg != nil {
		s.logg.Error(ctx, "record failed admin command", err)
	}
}

func marshalDetail(detail map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit detail")
	}
	return raw, nil
}

// GetUser returns the full back-office view of one user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

// ListUsers pages through users with the admin filters.
func (s *Service) ListUsers(ctx context.Context, filter users.ListFilter, limit, offset int) ([]models.User, int64, error) {
	return s.users.List(ctx, filter, limit, offset)
}

// ListAuditLogs exposes the audit trail.
func (s *Service) ListAuditLogs(ctx context.Context, targetUserID *uuid.UUID, limit int) ([]models.AdminAuditLog, error) {
	return s.audit.ListAuditLogs(ctx, targetUserID, limit)
}

// ListSuspiciousActivities exposes the security feed.
func (s *Service) ListSuspiciousActivities(ctx context.Context, userID *uuid.UUID, limit int) ([]models.SuspiciousActivity, error) {
	if s.activities == nil {
		return nil, nil
	}
	var rows []models.SuspiciousActivity
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var listErr error
		rows, listErr = s.activities.ListActivities(tx, userID, limit)
		return listErr
	})
	return rows, err
}

// ClusterSuspiciousActivities groups the feed by IP or device fingerprint so
// one source hitting many accounts stands out from the row-by-row view.
func (s *Service) ClusterSuspiciousActivities(ctx context.Context, groupBy string, window time.Duration, limit int) ([]risk.ActivityCluster, error) {
	if groupBy != "ip" && groupBy != "fingerprint" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group_by must be ip or fingerprint")
	}
	if s.activities == nil {
		return nil, nil
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	since := s.now().Add(-window)

	var rows []risk.ActivityCluster
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var aggErr error
		rows, aggErr = s.activities.AggregateActivities(tx, groupBy, since, limit)
		return aggErr
	})
	return rows, err
}
