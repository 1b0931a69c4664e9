package enums

import "fmt"

// CheckoutMode selects the Stripe Checkout flavor a session is opened in.
type CheckoutMode string

const (
	CheckoutModeSetup        CheckoutMode = "setup"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

var validCheckoutModes = []CheckoutMode{
	CheckoutModeSetup,
	CheckoutModeSubscription,
}

// String implements fmt.Stringer.
func (m CheckoutMode) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m CheckoutMode) IsValid() bool {
	for _, candidate := range validCheckoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseCheckoutMode converts raw input into a CheckoutMode.
func ParseCheckoutMode(value string) (CheckoutMode, error) {
	for _, candidate := range validCheckoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout mode %q", value)
}
