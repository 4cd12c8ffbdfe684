package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	outboxpayloads "github.com/contentforge/contentforge-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertUsage(ctx context.Context, row types.UsageEventRow) error
	InsertAccount(ctx context.Context, row types.AccountEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := map[enums.OutboxEventType]handlerEntry{
		enums.EventGenerationRecorded: {
			factory: func() any { return &outboxpayloads.GenerationRecordedEvent{} },
			handler: newGenerationRecordedHandler(writer, logg),
		},
		enums.EventUserFlagged: {
			factory: func() any { return &outboxpayloads.UserFlaggedEvent{} },
			handler: newUserFlaggedHandler(writer, logg),
		},
		enums.EventUserBlocked: {
			factory: func() any { return &outboxpayloads.UserBlockedEvent{} },
			handler: newUserBlockedHandler(writer, logg),
		},
		enums.EventSubscriptionChanged: {
			factory: func() any { return &outboxpayloads.SubscriptionChangedEvent{} },
			handler: newSubscriptionChangedHandler(writer, logg),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{
		handlers: entries,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload := entry.factory()
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return entry.handler.Handle(ctx, envelope, payload)
}
