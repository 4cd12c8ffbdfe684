package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type planRepo interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]models.BillingPlan, error)
	FindByTier(ctx context.Context, tier enums.SubscriptionTier) (*models.BillingPlan, error)
}

// SessionCreator opens a hosted checkout session with the payment provider.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionCreator struct{}

func (stripeSessionCreator) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

// NewStripeSessionCreator returns the production checkout backend.
func NewStripeSessionCreator() SessionCreator {
	return stripeSessionCreator{}
}

// CheckoutRequest starts a paid-tier checkout for one user.
type CheckoutRequest struct {
	Tier       enums.SubscriptionTier `json:"tier" validate:"required"`
	SuccessURL string                 `json:"success_url" validate:"required,url"`
	CancelURL  string                 `json:"cancel_url" validate:"required,url"`
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo     planRepo
	Sessions SessionCreator
	Logger   *logger.Logger
}

// Service exposes the pricing catalog and opens provider checkout sessions.
// Tier changes themselves arrive later through the payment webhook; checkout
// never mutates the user row directly.
type Service struct {
	repo     planRepo
	sessions SessionCreator
	logg     *logger.Logger
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo is required")
	}
	return &Service{
		repo:     params.Repo,
		sessions: params.Sessions,
		logg:     params.Logger,
	}, nil
}

// ListPlans returns the active pricing catalog.
func (s *Service) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	return s.repo.ListPlans(ctx, true)
}

// StartCheckout opens a hosted checkout session for a paid tier and returns
// its redirect URL. The user id and tier ride along as subscription metadata
// so the webhook can attribute the resulting subscription.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (string, error) {
	if s.sessions == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout is not configured")
	}
	if !req.Tier.IsPaid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout requires a paid tier")
	}
	if strings.TrimSpace(req.SuccessURL) == "" || strings.TrimSpace(req.CancelURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "success and cancel URLs are required")
	}

	plan, err := s.repo.FindByTier(ctx, req.Tier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "no plan for requested tier")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load billing plan")
	}
	if plan.Status != enums.PlanStatusActive {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "plan is not open for checkout")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.ID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(userID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": userID.String(),
				"tier":    plan.Tier.String(),
			},
		},
	}
	params.Context = ctx
	if plan.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(plan.TrialDays))
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "creating checkout session failed", err)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return sess.URL, nil
}
