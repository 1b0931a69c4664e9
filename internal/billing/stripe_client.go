package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/grattia/grattia-backend/pkg/enums"
	pkgstripe "github.com/grattia/grattia-backend/pkg/stripe"
)

// StripeClient exposes the subset of Stripe operations required by the
// billing service, keyed by company environment so the right account is hit.
type StripeClient interface {
	CreateCustomer(ctx context.Context, env enums.Environment, params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, env enums.Environment, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, env enums.Environment, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, env enums.Environment, id string) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, env enums.Environment, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, env enums.Environment, id string) (*stripe.Subscription, error)
}

type stripeClientWrapper struct {
	creds *pkgstripe.Client
}

// NewStripeClient wraps the credential set so the billing service can be
// tested against a stub.
func NewStripeClient(creds *pkgstripe.Client) StripeClient {
	if creds == nil {
		return nil
	}
	return &stripeClientWrapper{creds: creds}
}

func (w *stripeClientWrapper) backendFor(env enums.Environment) (stripe.Backend, string, error) {
	key, err := w.creds.KeyFor(env)
	if err != nil {
		return nil, "", err
	}
	return stripe.GetBackend(stripe.APIBackend), key, nil
}

func (w *stripeClientWrapper) CreateCustomer(ctx context.Context, env enums.Environment, params *stripe.CustomerParams) (*stripe.Customer, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	client := customer.Client{B: backend, Key: key}
	return client.New(params)
}

func (w *stripeClientWrapper) CreateCheckoutSession(ctx context.Context, env enums.Environment, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	client := checkoutsession.Client{B: backend, Key: key}
	return client.New(params)
}

func (w *stripeClientWrapper) GetCheckoutSession(ctx context.Context, env enums.Environment, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	client := checkoutsession.Client{B: backend, Key: key}
	return client.Get(id, params)
}

func (w *stripeClientWrapper) GetSubscription(ctx context.Context, env enums.Environment, id string) (*stripe.Subscription, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	client := subscription.Client{B: backend, Key: key}
	return client.Get(id, params)
}

func (w *stripeClientWrapper) UpdateSubscription(ctx context.Context, env enums.Environment, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	client := subscription.Client{B: backend, Key: key}
	return client.Update(id, params)
}

func (w *stripeClientWrapper) CancelSubscription(ctx context.Context, env enums.Environment, id string) (*stripe.Subscription, error) {
	backend, key, err := w.backendFor(env)
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	client := subscription.Client{B: backend, Key: key}
	return client.Cancel(id, params)
}
