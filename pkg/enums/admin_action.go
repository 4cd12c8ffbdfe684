package enums

import "fmt"

// AdminAction is the closed set of moderation commands the back-office can
// apply to a user. Unknown actions are rejected at the API boundary.
type AdminAction string

const (
	AdminActionBlock       AdminAction = "block"
	AdminActionUnblock     AdminAction = "unblock"
	AdminActionFlag        AdminAction = "flag"
	AdminActionClearFlags  AdminAction = "clear_flags"
	AdminActionAssignPlan  AdminAction = "assign_plan"
	AdminActionExtendTrial AdminAction = "extend_trial"
	AdminActionResetUsage  AdminAction = "reset_usage"
)

var validAdminActions = []AdminAction{
	AdminActionBlock,
	AdminActionUnblock,
	AdminActionFlag,
	AdminActionClearFlags,
	AdminActionAssignPlan,
	AdminActionExtendTrial,
	AdminActionResetUsage,
}

// String implements fmt.Stringer.
func (a AdminAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdminAction.
func (a AdminAction) IsValid() bool {
	for _, candidate := range validAdminActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdminAction converts raw input into an AdminAction.
func ParseAdminAction(value string) (AdminAction, error) {
	for _, candidate := range validAdminActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin action %q", value)
}
