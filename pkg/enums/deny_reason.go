package enums

// DenyReason explains why a generation request was refused.
type DenyReason string

const (
	DenyReasonBlocked       DenyReason = "blocked"
	DenyReasonQuotaExceeded DenyReason = "quota_exceeded"
)

// String implements fmt.Stringer.
func (d DenyReason) String() string {
	return string(d)
}
