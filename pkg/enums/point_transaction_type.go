package enums

import "fmt"

// PointTransactionType labels an append-only ledger entry.
type PointTransactionType string

const (
	PointTransactionTypeRecognition     PointTransactionType = "recognition"
	PointTransactionTypeAllocation      PointTransactionType = "allocation"
	PointTransactionTypeRedemption      PointTransactionType = "redemption"
	PointTransactionTypePlatformGrant   PointTransactionType = "platform_grant"
	PointTransactionTypePlatformRemoval PointTransactionType = "platform_removal"
)

var validPointTransactionTypes = []PointTransactionType{
	PointTransactionTypeRecognition,
	PointTransactionTypeAllocation,
	PointTransactionTypeRedemption,
	PointTransactionTypePlatformGrant,
	PointTransactionTypePlatformRemoval,
}

// String implements fmt.Stringer.
func (t PointTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t PointTransactionType) IsValid() bool {
	for _, candidate := range validPointTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePointTransactionType converts raw input into a PointTransactionType.
func ParsePointTransactionType(value string) (PointTransactionType, error) {
	for _, candidate := range validPointTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid point transaction type %q", value)
}
