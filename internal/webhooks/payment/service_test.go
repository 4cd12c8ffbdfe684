package paymentwebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/contentforge/contentforge-backend/internal/subscriptions"
	"github.com/contentforge/contentforge-backend/pkg/enums"
)

type stubApplier struct {
	payloads []subscriptions.WebhookPayload
	err      error
}

func (s *stubApplier) ApplyWebhook(ctx context.Context, payload subscriptions.WebhookPayload) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

type stubFetcher struct {
	getResp *stripe.Subscription
	getErr  error
	gotID   string
}

func (s *stubFetcher) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.gotID = id
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getResp, nil
}

func TestService_HandleSubscriptionCreated(t *testing.T) {
	userID := uuid.New()
	applier := &stubApplier{}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: &stubFetcher{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	stripeSub := &stripe.Subscription{
		ID:     "sub_new",
		Status: stripe.SubscriptionStatusActive,
		Metadata: map[string]string{
			"user_id": userID.String(),
			"tier":    "pro",
		},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{CurrentPeriodStart: 1700000000, CurrentPeriodEnd: 1702592000}},
		},
	}
	raw, _ := json.Marshal(stripeSub)
	event := &stripe.Event{
		ID:   "evt_created",
		Type: stripe.EventTypeCustomerSubscriptionCreated,
		Data: &stripe.EventData{Raw: raw},
	}

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.payloads) != 1 {
		t.Fatalf("expected one payload, got %d", len(applier.payloads))
	}
	payload := applier.payloads[0]
	if payload.Type != enums.WebhookEventCreated {
		t.Fatalf("expected created, got %s", payload.Type)
	}
	if payload.UserID != userID {
		t.Fatalf("expected user id carried through")
	}
	if payload.Tier != enums.TierPro {
		t.Fatalf("expected tier pro, got %s", payload.Tier)
	}
	if payload.ProviderSubscriptionID != "sub_new" {
		t.Fatalf("expected provider id sub_new, got %s", payload.ProviderSubscriptionID)
	}
	if !payload.PeriodEnd.Equal(time.Unix(1702592000, 0).UTC()) {
		t.Fatalf("unexpected period end %v", payload.PeriodEnd)
	}
}

func TestService_HandleSubscriptionCreatedMissingMetadata(t *testing.T) {
	applier := &stubApplier{}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: &stubFetcher{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	stripeSub := &stripe.Subscription{ID: "sub_anon"}
	raw, _ := json.Marshal(stripeSub)
	event := &stripe.Event{
		ID:   "evt_anon",
		Type: stripe.EventTypeCustomerSubscriptionCreated,
		Data: &stripe.EventData{Raw: raw},
	}

	if err := service.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected metadata validation error")
	}
	if len(applier.payloads) != 0 {
		t.Fatalf("payload must not reach the applier")
	}
}

func TestService_HandleInvoicePaidFetchesSubscription(t *testing.T) {
	applier := &stubApplier{}
	fetcher := &stubFetcher{
		getResp: &stripe.Subscription{
			ID: "sub_renew",
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: 1702592000}},
			},
		},
	}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: fetcher})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		ID:   "evt_invoice",
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{
			Object: map[string]interface{}{"subscription": "sub_renew"},
		},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if fetcher.gotID != "sub_renew" {
		t.Fatalf("expected fetch of sub_renew, got %q", fetcher.gotID)
	}
	if len(applier.payloads) != 1 || applier.payloads[0].Type != enums.WebhookEventRenewed {
		t.Fatalf("expected renewed payload")
	}
}

func TestService_HandleInvoicePaymentFailed(t *testing.T) {
	applier := &stubApplier{}
	fetcher := &stubFetcher{getResp: &stripe.Subscription{ID: "sub_pd"}}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: fetcher})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		ID:   "evt_fail",
		Type: stripe.EventTypeInvoicePaymentFailed,
		Data: &stripe.EventData{
			Object: map[string]interface{}{"subscription": "sub_pd"},
		},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.payloads) != 1 || applier.payloads[0].Type != enums.WebhookEventFailed {
		t.Fatalf("expected failed payload")
	}
}

func TestService_HandleSubscriptionDeleted(t *testing.T) {
	applier := &stubApplier{}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: &stubFetcher{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	stripeSub := &stripe.Subscription{ID: "sub_gone"}
	raw, _ := json.Marshal(stripeSub)
	event := &stripe.Event{
		ID:   "evt_deleted",
		Type: stripe.EventTypeCustomerSubscriptionDeleted,
		Data: &stripe.EventData{Raw: raw},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.payloads) != 1 || applier.payloads[0].Type != enums.WebhookEventCancelled {
		t.Fatalf("expected cancelled payload")
	}
}

func TestService_IgnoresUnrelatedEvents(t *testing.T) {
	applier := &stubApplier{}
	service, err := NewService(ServiceParams{Applier: applier, Fetcher: &stubFetcher{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventTypeChargeSucceeded,
		Data: &stripe.EventData{},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.payloads) != 0 {
		t.Fatalf("unrelated events must be dropped")
	}
}
