package enums

import "fmt"

// RedemptionStatus tracks reward fulfillment. Transitions only move forward;
// canceled is terminal and reachable from any non-terminal state.
type RedemptionStatus string

const (
	RedemptionStatusPending    RedemptionStatus = "pending"
	RedemptionStatusProcessing RedemptionStatus = "processing"
	RedemptionStatusShipped    RedemptionStatus = "shipped"
	RedemptionStatusDelivered  RedemptionStatus = "delivered"
	RedemptionStatusCanceled   RedemptionStatus = "canceled"
)

var validRedemptionStatuses = []RedemptionStatus{
	RedemptionStatusPending,
	RedemptionStatusProcessing,
	RedemptionStatusShipped,
	RedemptionStatusDelivered,
	RedemptionStatusCanceled,
}

var redemptionStatusRank = map[RedemptionStatus]int{
	RedemptionStatusPending:    0,
	RedemptionStatusProcessing: 1,
	RedemptionStatusShipped:    2,
	RedemptionStatusDelivered:  3,
}

// String implements fmt.Stringer.
func (s RedemptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s RedemptionStatus) IsValid() bool {
	for _, candidate := range validRedemptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionStatusDelivered || s == RedemptionStatusCanceled
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s RedemptionStatus) CanAdvanceTo(next RedemptionStatus) bool {
	if !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == RedemptionStatusCanceled {
		return true
	}
	return redemptionStatusRank[next] > redemptionStatusRank[s]
}

// ParseRedemptionStatus converts raw input into a RedemptionStatus.
func ParseRedemptionStatus(value string) (RedemptionStatus, error) {
	for _, candidate := range validRedemptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption status %q", value)
}
