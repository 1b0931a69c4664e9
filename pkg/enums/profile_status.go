package enums

import "fmt"

// ProfileStatus tracks the lifecycle of a company membership.
type ProfileStatus string

const (
	ProfileStatusInvited     ProfileStatus = "invited"
	ProfileStatusActive      ProfileStatus = "active"
	ProfileStatusDeactivated ProfileStatus = "deactivated"
)

var validProfileStatuses = []ProfileStatus{
	ProfileStatusInvited,
	ProfileStatusActive,
	ProfileStatusDeactivated,
}

// String implements fmt.Stringer.
func (s ProfileStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ProfileStatus) IsValid() bool {
	for _, candidate := range validProfileStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProfileStatus converts raw input into a ProfileStatus.
func ParseProfileStatus(value string) (ProfileStatus, error) {
	for _, candidate := range validProfileStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid profile status %q", value)
}
