package enums

import "fmt"

// RewardProvider identifies the upstream catalog a reward was imported from.
type RewardProvider string

const (
	RewardProviderGoody RewardProvider = "goody"
	RewardProviderRye   RewardProvider = "rye"
)

var validRewardProviders = []RewardProvider{
	RewardProviderGoody,
	RewardProviderRye,
}

// String implements fmt.Stringer.
func (p RewardProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p RewardProvider) IsValid() bool {
	for _, candidate := range validRewardProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseRewardProvider converts raw input into a RewardProvider.
func ParseRewardProvider(value string) (RewardProvider, error) {
	for _, candidate := range validRewardProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward provider %q", value)
}
