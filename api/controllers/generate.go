package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/generation"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type GenerationService interface {
	Generate(ctx context.Context, userID uuid.UUID, req generation.Request) (*generation.Response, error)
}

// Generate runs one entitlement-gated generation and stores the artifact.
func Generate(svc GenerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generation.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Generate(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
