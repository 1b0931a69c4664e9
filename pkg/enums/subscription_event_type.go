package enums

import "fmt"

// SubscriptionEventType labels a billing audit entry.
type SubscriptionEventType string

const (
	SubscriptionEventCustomerCreated      SubscriptionEventType = "customer_created"
	SubscriptionEventCheckoutCreated      SubscriptionEventType = "checkout_created"
	SubscriptionEventSubscriptionStarted  SubscriptionEventType = "subscription_started"
	SubscriptionEventQuantityUpdated      SubscriptionEventType = "quantity_updated"
	SubscriptionEventSubscriptionCanceled SubscriptionEventType = "subscription_canceled"
	SubscriptionEventInvoicePaid          SubscriptionEventType = "invoice_paid"
	SubscriptionEventInvoicePaymentFailed SubscriptionEventType = "invoice_payment_failed"
)

var validSubscriptionEventTypes = []SubscriptionEventType{
	SubscriptionEventCustomerCreated,
	SubscriptionEventCheckoutCreated,
	SubscriptionEventSubscriptionStarted,
	SubscriptionEventQuantityUpdated,
	SubscriptionEventSubscriptionCanceled,
	SubscriptionEventInvoicePaid,
	SubscriptionEventInvoicePaymentFailed,
}

// String implements fmt.Stringer.
func (t SubscriptionEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t SubscriptionEventType) IsValid() bool {
	for _, candidate := range validSubscriptionEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSubscriptionEventType converts raw input into a SubscriptionEventType.
func ParseSubscriptionEventType(value string) (SubscriptionEventType, error) {
	for _, candidate := range validSubscriptionEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription event type %q", value)
}
