package router

import (
	"context"
	"fmt"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	analyticswriter "github.com/contentforge/contentforge-backend/internal/analytics/writer"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	outboxpayloads "github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

type userFlaggedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newUserFlaggedHandler(writer Writer, logg *logger.Logger) Handler {
	return &userFlaggedHandler{writer: writer, logg: logg}
}

func (h *userFlaggedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.UserFlaggedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for user_flagged")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"user_id":    event.UserID,
		"risk_score": event.RiskScore,
	})

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode user_flagged payload", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := types.AccountEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		UserID:     event.UserID.String(),
		RiskScore:  int64Ptr(int64(event.RiskScore)),
		Reason:     stringPtr(event.Reason),
		Payload:    payloadJSON,
	}

	if err := h.writer.InsertAccount(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert account row", err)
		return err
	}

	h.logg.Info(logCtx, "user_flagged handler inserted account row")
	return nil
}

type userBlockedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newUserBlockedHandler(writer Writer, logg *logger.Logger) Handler {
	return &userBlockedHandler{writer: writer, logg: logg}
}

func (h *userBlockedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.UserBlockedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for user_blocked")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"user_id":    event.UserID,
		"blocked":    event.Blocked,
	})

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode user_blocked payload", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	status := "unblocked"
	if event.Blocked {
		status = "blocked"
	}

	row := types.AccountEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		UserID:     event.UserID.String(),
		Status:     &status,
		Reason:     stringPtr(event.Reason),
		Payload:    payloadJSON,
	}

	if err := h.writer.InsertAccount(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert account row", err)
		return err
	}

	h.logg.Info(logCtx, "user_blocked handler inserted account row")
	return nil
}

type subscriptionChangedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSubscriptionChangedHandler(writer Writer, logg *logger.Logger) Handler {
	return &subscriptionChangedHandler{writer: writer, logg: logg}
}

func (h *subscriptionChangedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.SubscriptionChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for subscription_changed")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"user_id":    event.UserID,
		"tier":       event.Tier,
		"status":     event.NewStatus,
	})

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode subscription_changed payload", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	var subscriptionID *string
	if event.SubscriptionID != nil {
		id := event.SubscriptionID.String()
		subscriptionID = &id
	}

	row := types.AccountEventRow{
		EventID:        envelope.EventID,
		EventType:      string(envelope.EventType),
		OccurredAt:     envelope.OccurredAt,
		UserID:         event.UserID.String(),
		SubscriptionID: subscriptionID,
		PreviousStatus: stringPtr(string(event.PreviousStatus)),
		Status:         stringPtr(string(event.NewStatus)),
		Tier:           stringPtr(string(event.Tier)),
		Payload:        payloadJSON,
	}

	if err := h.writer.InsertAccount(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert account row", err)
		return err
	}

	h.logg.Info(logCtx, "subscription_changed handler inserted account row")
	return nil
}
