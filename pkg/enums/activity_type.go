package enums

import "fmt"

// SuspiciousActivityType labels entries in the append-only risk audit log.
type SuspiciousActivityType string

const (
	ActivityRapidSignup        SuspiciousActivityType = "rapid_signup"
	ActivityFingerprintReuse   SuspiciousActivityType = "fingerprint_reuse"
	ActivityIPReuse            SuspiciousActivityType = "ip_reuse"
	ActivityProxyIP            SuspiciousActivityType = "proxy_ip"
	ActivityMissingFingerprint SuspiciousActivityType = "missing_fingerprint"
)

var validSuspiciousActivityTypes = []SuspiciousActivityType{
	ActivityRapidSignup,
	ActivityFingerprintReuse,
	ActivityIPReuse,
	ActivityProxyIP,
	ActivityMissingFingerprint,
}

// String implements fmt.Stringer.
func (a SuspiciousActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known SuspiciousActivityType.
func (a SuspiciousActivityType) IsValid() bool {
	for _, candidate := range validSuspiciousActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSuspiciousActivityType converts raw input into a SuspiciousActivityType.
func ParseSuspiciousActivityType(value string) (SuspiciousActivityType, error) {
	for _, candidate := range validSuspiciousActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suspicious activity type %q", value)
}
