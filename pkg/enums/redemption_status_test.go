package enums

import "testing"

func TestRedemptionStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from    RedemptionStatus
		to      RedemptionStatus
		allowed bool
	}{
		{RedemptionStatusPending, RedemptionStatusProcessing, true},
		{RedemptionStatusPending, RedemptionStatusShipped, true},
		{RedemptionStatusProcessing, RedemptionStatusShipped, true},
		{RedemptionStatusShipped, RedemptionStatusDelivered, true},
		{RedemptionStatusPending, RedemptionStatusCanceled, true},
		{RedemptionStatusShipped, RedemptionStatusCanceled, true},
		{RedemptionStatusProcessing, RedemptionStatusPending, false},
		{RedemptionStatusShipped, RedemptionStatusProcessing, false},
		{RedemptionStatusDelivered, RedemptionStatusCanceled, false},
		{RedemptionStatusCanceled, RedemptionStatusProcessing, false},
		{RedemptionStatusPending, RedemptionStatus("mystery"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseRedemptionStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseRedemptionStatus("lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := ParseMemberRole("admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseEnvironment("live"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePointTransactionType("platform_grant"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
