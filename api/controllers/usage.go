package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/internal/entitlement"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type UsageService interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (*entitlement.UsageSnapshot, error)
}

// Usage reports the caller's quota position without consuming anything.
func Usage(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
