package enums

import "fmt"

// GroupAuditStatus records the outcome of one group-driven course enrollment
// operation for one user.
type GroupAuditStatus string

const (
	GroupAuditSuccess GroupAuditStatus = "success"
	GroupAuditFailed  GroupAuditStatus = "failed"
	GroupAuditSkipped GroupAuditStatus = "skipped"
)

var validGroupAuditStatuses = []GroupAuditStatus{
	GroupAuditSuccess,
	GroupAuditFailed,
	GroupAuditSkipped,
}

// String implements fmt.Stringer.
func (g GroupAuditStatus) String() string {
	return string(g)
}

// IsValid reports whether the value matches a known GroupAuditStatus.
func (g GroupAuditStatus) IsValid() bool {
	for _, candidate := range validGroupAuditStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGroupAuditStatus converts raw input into a GroupAuditStatus.
func ParseGroupAuditStatus(value string) (GroupAuditStatus, error) {
	for _, candidate := range validGroupAuditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group audit status %q", value)
}
