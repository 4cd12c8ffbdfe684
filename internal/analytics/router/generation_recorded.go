package router

import (
	"context"
	"fmt"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	analyticswriter "github.com/contentforge/contentforge-backend/internal/analytics/writer"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	outboxpayloads "github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

type generationRecordedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newGenerationRecordedHandler(writer Writer, logg *logger.Logger) Handler {
	return &generationRecordedHandler{writer: writer, logg: logg}
}

func (h *generationRecordedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.GenerationRecordedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for generation_recorded")
	}

	fields := map[string]any{
		"event_type":   envelope.EventType,
		"user_id":      event.UserID,
		"content_type": event.ContentType,
		"tier":         event.Tier,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildUsageRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build usage row", err)
		return err
	}

	if err := h.writer.InsertUsage(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert usage row", err)
		return err
	}

	h.logg.Info(logCtx, "generation_recorded handler inserted usage row")
	return nil
}

func buildUsageRow(envelope types.Envelope, event *outboxpayloads.GenerationRecordedEvent) (types.UsageEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.UsageEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	var quotaLimit *int64
	if event.QuotaLimit != nil {
		quotaLimit = int64Ptr(int64(*event.QuotaLimit))
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = event.RecordedAt
	}

	return types.UsageEventRow{
		EventID:       envelope.EventID,
		OccurredAt:    occurredAt,
		UserID:        event.UserID.String(),
		ContentType:   string(event.ContentType),
		Tier:          string(event.Tier),
		UnitsConsumed: int64(event.UnitsConsumed),
		UsageAfter:    int64(event.UsageAfter),
		QuotaLimit:    quotaLimit,
		Payload:       payloadJSON,
	}, nil
}
