package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// UsageEventRow mirrors the usage_events BigQuery schema, one row per
// recorded generation.
type UsageEventRow struct {
	EventID       string             `bigquery:"event_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	UserID        string             `bigquery:"user_id"`
	ContentType   string             `bigquery:"content_type"`
	Tier          string             `bigquery:"tier"`
	UnitsConsumed int64              `bigquery:"units_consumed"`
	UsageAfter    int64              `bigquery:"usage_after"`
	QuotaLimit    *int64             `bigquery:"quota_limit"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// AccountEventRow mirrors the account_events BigQuery schema, covering
// subscription transitions and moderation flags.
type AccountEventRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	UserID         string             `bigquery:"user_id"`
	SubscriptionID *string            `bigquery:"subscription_id"`
	PreviousStatus *string            `bigquery:"previous_status"`
	Status         *string            `bigquery:"status"`
	Tier           *string            `bigquery:"tier"`
	RiskScore      *int64             `bigquery:"risk_score"`
	Reason         *string            `bigquery:"reason"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}
