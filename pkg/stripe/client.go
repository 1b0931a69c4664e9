package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
)

var (
	errNoKeysConfigured = errors.New("at least one stripe api key is required")
	errInvalidStripeEnv = errors.New("stripe environment must be test or live")
)

// Client holds the per-environment Stripe credentials. Companies run against
// either the test or the live Stripe account, so every call site selects its
// key through KeyFor.
type Client struct {
	keys           map[enums.Environment]string
	signingSecrets map[enums.Environment]string
	seatPriceID    string
}

// NewClient validates the configured secrets and returns the credential set.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	keys := map[enums.Environment]string{}
	if key := strings.TrimSpace(cfg.TestAPIKey); key != "" {
		if err := validateAPIKey(enums.EnvironmentTest, key); err != nil {
			return nil, err
		}
		keys[enums.EnvironmentTest] = key
	}
	if key := strings.TrimSpace(cfg.LiveAPIKey); key != "" {
		if err := validateAPIKey(enums.EnvironmentLive, key); err != nil {
			return nil, err
		}
		keys[enums.EnvironmentLive] = key
	}
	if len(keys) == 0 {
		return nil, errNoKeysConfigured
	}

	secrets := map[enums.Environment]string{}
	if secret := strings.TrimSpace(cfg.TestSigningSecret); secret != "" {
		secrets[enums.EnvironmentTest] = secret
	}
	if secret := strings.TrimSpace(cfg.LiveSigningSecret); secret != "" {
		secrets[enums.EnvironmentLive] = secret
	}

	if logg != nil {
		envs := make([]string, 0, len(keys))
		for env := range keys {
			envs = append(envs, env.String())
		}
		logg.Info(ctx, fmt.Sprintf("stripe credentials loaded (%s)", strings.Join(envs, ", ")))
	}

	return &Client{
		keys:           keys,
		signingSecrets: secrets,
		seatPriceID:    strings.TrimSpace(cfg.SeatPriceID),
	}, nil
}

// KeyFor returns the API key for the requested environment.
func (c *Client) KeyFor(env enums.Environment) (string, error) {
	if c == nil {
		return "", errNoKeysConfigured
	}
	if !env.IsValid() {
		return "", errInvalidStripeEnv
	}
	key, ok := c.keys[env]
	if !ok {
		return "", fmt.Errorf("no stripe api key configured for environment %q", env)
	}
	return key, nil
}

// SigningSecretFor returns the webhook signing secret for the environment.
func (c *Client) SigningSecretFor(env enums.Environment) (string, error) {
	if c == nil {
		return "", errNoKeysConfigured
	}
	secret, ok := c.signingSecrets[env]
	if !ok {
		return "", fmt.Errorf("no stripe webhook secret configured for environment %q", env)
	}
	return secret, nil
}

// SeatPriceID returns the per-seat subscription price.
func (c *Client) SeatPriceID() string {
	if c == nil {
		return ""
	}
	return c.seatPriceID
}

func validateAPIKey(env enums.Environment, key string) error {
	switch env {
	case enums.EnvironmentTest:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", env)
	case enums.EnvironmentLive:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", env)
	default:
		return errInvalidStripeEnv
	}
}
