package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/billing"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type BillingService interface {
	ListPlans(ctx context.Context) ([]models.BillingPlan, error)
	StartCheckout(ctx context.Context, userID uuid.UUID, req billing.CheckoutRequest) (string, error)
}

// BillingPlans lists the purchasable plan catalog.
func BillingPlans(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plans)
	}
}

// BillingCheckout opens a hosted checkout session for the requested tier.
func BillingCheckout(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body billing.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutURL, err := svc.StartCheckout(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"checkout_url": checkoutURL,
		})
	}
}
