package types

import "time"

// UsageQueryRequest carries the input parameters for the admin analytics view.
type UsageQueryRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue represents a grouped count such as generations per content type.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// UsageQueryResponse wraps the dashboard KPIs: generation volume over time,
// the split by generator kind, and the current subscription mix.
type UsageQueryResponse struct {
	GenerationsByDay    []TimeSeriesPoint `json:"generations_by_day"`
	GenerationsByType   []LabelValue      `json:"generations_by_type"`
	UnitsByDay          []TimeSeriesPoint `json:"units_by_day"`
	SubscribersByTier   []LabelValue      `json:"subscribers_by_tier"`
	SubscribersByStatus []LabelValue      `json:"subscribers_by_status"`
	FlaggedUsers        int64             `json:"flagged_users"`
}
