package enums

import "fmt"

// WebhookEventType is the normalized payment event vocabulary delivered by
// the payment provider integration.
type WebhookEventType string

const (
	WebhookEventCreated   WebhookEventType = "created"
	WebhookEventRenewed   WebhookEventType = "renewed"
	WebhookEventFailed    WebhookEventType = "failed"
	WebhookEventCancelled WebhookEventType = "cancelled"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventCreated,
	WebhookEventRenewed,
	WebhookEventFailed,
	WebhookEventCancelled,
}

// String implements fmt.Stringer.
func (w WebhookEventType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookEventType.
func (w WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw input into a WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event type %q", value)
}
