package paymentwebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/contentforge/contentforge-backend/internal/subscriptions"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	pkgstripe "github.com/contentforge/contentforge-backend/pkg/stripe"
)

// SubscriptionApplier is the state machine the normalized events feed into.
type SubscriptionApplier interface {
	ApplyWebhook(ctx context.Context, payload subscriptions.WebhookPayload) error
}

// SubscriptionFetcher retrieves the subscription behind invoice events, which
// carry only the subscription id.
type SubscriptionFetcher interface {
	Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

type stripeFetcher struct{}

// NewSubscriptionFetcher wraps the Stripe SDK so the webhook service can be tested.
func NewSubscriptionFetcher(api *pkgstripe.Client) SubscriptionFetcher {
	if api == nil {
		return nil
	}
	return &stripeFetcher{}
}

func (f *stripeFetcher) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params == nil {
		params = &stripe.SubscriptionParams{}
	}
	params.Context = ctx
	return subscription.Get(id, params)
}

type ServiceParams struct {
	Applier SubscriptionApplier
	Fetcher SubscriptionFetcher
}

// Service translates raw Stripe events into the normalized lifecycle events
// the subscription state machine understands. Signature verification happens
// at the controller; anything arriving here is authenticated.
type Service struct {
	applier SubscriptionApplier
	fetcher SubscriptionFetcher
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Applier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription applier required")
	}
	if params.Fetcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription fetcher required")
	}
	return &Service{
		applier: params.Applier,
		fetcher: params.Fetcher,
	}, nil
}

// HandleEvent routes one verified Stripe event. Event types outside the
// subscription lifecycle are acknowledged and dropped.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return s.applyFromRaw(ctx, event, enums.WebhookEventCreated)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return s.applyFromRaw(ctx, event, enums.WebhookEventCancelled)
	case stripe.EventTypeInvoicePaid:
		return s.applyFromInvoice(ctx, event, enums.WebhookEventRenewed)
	case stripe.EventTypeInvoicePaymentFailed:
		return s.applyFromInvoice(ctx, event, enums.WebhookEventFailed)
	default:
		return nil
	}
}

func (s *Service) applyFromRaw(ctx context.Context, event *stripe.Event, eventType enums.WebhookEventType) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
	}
	return s.apply(ctx, event.ID, eventType, &stripeSub)
}

func (s *Service) applyFromInvoice(ctx context.Context, event *stripe.Event, eventType enums.WebhookEventType) error {
	subscriptionID := event.GetObjectValue("subscription")
	if subscriptionID == "" {
		// One-off invoices have no subscription to sync.
		return nil
	}
	stripeSub, err := s.fetcher.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
	}
	return s.apply(ctx, event.ID, eventType, stripeSub)
}

func (s *Service) apply(ctx context.Context, eventID string, eventType enums.WebhookEventType, stripeSub *stripe.Subscription) error {
	if stripeSub == nil || stripeSub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}

	payload := subscriptions.WebhookPayload{
		EventID:                eventID,
		Type:                   eventType,
		ProviderSubscriptionID: stripeSub.ID,
		PeriodEnd:              periodEnd(stripeSub),
	}

	if eventType == enums.WebhookEventCreated {
		userID, err := userIDFromMetadata(stripeSub.Metadata)
		if err != nil {
			return err
		}
		tier, err := tierFromMetadata(stripeSub.Metadata)
		if err != nil {
			return err
		}
		payload.UserID = userID
		payload.Tier = tier
	}

	return s.applier.ApplyWebhook(ctx, payload)
}

func periodEnd(sub *stripe.Subscription) time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return time.Time{}
	}
	item := sub.Items.Data[0]
	if item == nil || item.CurrentPeriodEnd == 0 {
		return time.Time{}
	}
	return time.Unix(item.CurrentPeriodEnd, 0).UTC()
}

func userIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata["user_id"]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id metadata missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id metadata")
	}
	return userID, nil
}

func tierFromMetadata(metadata map[string]string) (enums.SubscriptionTier, error) {
	raw, ok := metadata["tier"]
	if !ok || raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tier metadata missing")
	}
	tier, err := enums.ParseSubscriptionTier(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier metadata")
	}
	return tier, nil
}
