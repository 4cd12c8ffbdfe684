package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type SubscriptionService interface {
	StartTrial(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
}

// TrialStart activates the one-shot pro trial for the caller.
func TrialStart(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trialEnd, err := svc.StartTrial(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"tier":           enums.TierPro,
			"trial_end_date": trialEnd,
		})
	}
}

// SubscriptionsList returns the caller's subscription history, newest first.
func SubscriptionsList(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
