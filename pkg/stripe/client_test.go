package stripe

import (
	"context"
	"testing"

	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/enums"
)

func TestNewClientKeySelection(t *testing.T) {
	cfg := config.StripeConfig{
		TestAPIKey:        "sk_test_abc",
		LiveAPIKey:        "sk_live_def",
		TestSigningSecret: "whsec_test",
		SeatPriceID:       "price_123",
	}

	client, err := NewClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, err := client.KeyFor(enums.EnvironmentTest)
	if err != nil || key != "sk_test_abc" {
		t.Fatalf("expected test key, got %q err=%v", key, err)
	}
	key, err = client.KeyFor(enums.EnvironmentLive)
	if err != nil || key != "sk_live_def" {
		t.Fatalf("expected live key, got %q err=%v", key, err)
	}
	if _, err := client.KeyFor("staging"); err == nil {
		t.Fatal("expected error for unknown environment")
	}

	if _, err := client.SigningSecretFor(enums.EnvironmentLive); err == nil {
		t.Fatal("expected error for missing live signing secret")
	}
	if client.SeatPriceID() != "price_123" {
		t.Fatalf("unexpected seat price %q", client.SeatPriceID())
	}
}

func TestNewClientRejectsMismatchedKeys(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{TestAPIKey: "sk_live_wrong"}, nil)
	if err == nil {
		t.Fatal("expected mismatched key prefix to be rejected")
	}

	_, err = NewClient(context.Background(), config.StripeConfig{}, nil)
	if err == nil {
		t.Fatal("expected missing keys to be rejected")
	}
}

func TestKeyForMissingEnvironment(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{TestAPIKey: "sk_test_only"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.KeyFor(enums.EnvironmentLive); err == nil {
		t.Fatal("expected error when live key is not configured")
	}
}
