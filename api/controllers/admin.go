package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/admin"
	"github.com/contentforge/contentforge-backend/internal/risk"
	"github.com/contentforge/contentforge-backend/internal/users"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type AdminService interface {
	Execute(ctx context.Context, cmd admin.Command) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, filter users.ListFilter, limit, offset int) ([]models.User, int64, error)
	ListAuditLogs(ctx context.Context, targetUserID *uuid.UUID, limit int) ([]models.AdminAuditLog, error)
	ListSuspiciousActivities(ctx context.Context, userID *uuid.UUID, limit int) ([]models.SuspiciousActivity, error)
	ClusterSuspiciousActivities(ctx context.Context, groupBy string, window time.Duration, limit int) ([]risk.ActivityCluster, error)
}

type adminActionBody struct {
	Action    enums.AdminAction      `json:"action" validate:"required"`
	Reason    string                 `json:"reason,omitempty"`
	Tier      enums.SubscriptionTier `json:"tier,omitempty"`
	TrialDays int                    `json:"trial_days,omitempty"`
}

// AdminListUsers pages through accounts with optional moderation filters.
func AdminListUsers(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := users.ListFilter{
			FlaggedOnly: r.URL.Query().Get("flagged_only") == "true",
			BlockedOnly: r.URL.Query().Get("blocked_only") == "true",
			Email:       validators.SanitizeString(r.URL.Query().Get("email"), 256),
		}

		rows, total, err := svc.ListUsers(r.Context(), filter, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]*users.AdminUserDTO, 0, len(rows))
		for i := range rows {
			items = append(items, users.AdminFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"items": items,
			"total": total,
		})
	}
}

// AdminGetUser loads the full moderation view of one account.
func AdminGetUser(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.GetUser(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.AdminFromModel(user))
	}
}

// AdminUserAction applies one moderation command to the target account.
func AdminUserAction(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		targetID, err := urlParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminActionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cmd := admin.Command{
			ActorUserID:  actorID,
			TargetUserID: targetID,
			Action:       body.Action,
			Reason:       strings.TrimSpace(body.Reason),
			Tier:         body.Tier,
			TrialDays:    body.TrialDays,
		}
		if err := svc.Execute(r.Context(), cmd); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"action": string(body.Action),
			"status": "applied",
		})
	}
}

// AdminAuditLogs lists moderation audit entries, optionally for one target.
func AdminAuditLogs(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := optionalQueryUUID(r, "target_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListAuditLogs(r.Context(), target, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminSuspiciousActivities lists recorded risk signals. With group_by=ip or
// group_by=fingerprint the feed is clustered by source instead, over a
// window_hours lookback (default one week).
func AdminSuspiciousActivities(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if groupBy := strings.TrimSpace(r.URL.Query().Get("group_by")); groupBy != "" {
			windowHours, err := validators.ParseQueryInt(r, "window_hours", 168, 1, 8760)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			clusters, err := svc.ClusterSuspiciousActivities(r.Context(), groupBy, time.Duration(windowHours)*time.Hour, limit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{
				"group_by": groupBy,
				"clusters": clusters,
			})
			return
		}

		userID, err := optionalQueryUUID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListSuspiciousActivities(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func optionalQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return &id, nil
}
