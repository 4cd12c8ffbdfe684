package enums

import "fmt"

// AccountStatus tracks a user's billing lifecycle state.
type AccountStatus string

const (
	AccountStatusFree      AccountStatus = "free"
	AccountStatusTrial     AccountStatus = "trial"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusPastDue   AccountStatus = "past_due"
	AccountStatusCancelled AccountStatus = "cancelled"
)

var validAccountStatuses = []AccountStatus{
	AccountStatusFree,
	AccountStatusTrial,
	AccountStatusActive,
	AccountStatusPastDue,
	AccountStatusCancelled,
}

// String implements fmt.Stringer.
func (s AccountStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AccountStatus.
func (s AccountStatus) IsValid() bool {
	for _, candidate := range validAccountStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAccountStatus converts raw input into an AccountStatus.
func ParseAccountStatus(value string) (AccountStatus, error) {
	for _, candidate := range validAccountStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account status %q", value)
}
