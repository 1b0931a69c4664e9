package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/redis"
	pkgstripe "github.com/grattia/grattia-backend/pkg/stripe"
)

// Stripe delivers at-least-once; replayed event ids are dropped inside this
// window.
const eventDedupeTTL = 24 * time.Hour

// Outcome reports how one webhook delivery was handled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeReplayed  Outcome = "replayed"
	OutcomeIgnored   Outcome = "ignored"
)

// StripeService verifies and applies Stripe webhook deliveries.
type StripeService interface {
	VerifyAndParse(env enums.Environment, payload []byte, signatureHeader string) (stripe.Event, error)
	HandleEvent(ctx context.Context, env enums.Environment, event stripe.Event) (Outcome, error)
}

// StripeServiceParams wires the webhook service dependencies.
type StripeServiceParams struct {
	DB        *db.Client
	Companies companies.Repository
	Billing   billing.Repository
	Creds     *pkgstripe.Client
	Idempot   redis.IdempotencyStore
	Logger    *logger.Logger
}

type stripeService struct {
	db        *db.Client
	companies companies.Repository
	billing   billing.Repository
	creds     *pkgstripe.Client
	idempot   redis.IdempotencyStore
	logg      *logger.Logger
}

// NewStripeService builds the webhook service.
func NewStripeService(params StripeServiceParams) (StripeService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Creds == nil {
		return nil, fmt.Errorf("stripe credentials required")
	}
	if params.Idempot == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &stripeService{
		db:        params.DB,
		companies: params.Companies,
		billing:   params.Billing,
		creds:     params.Creds,
		idempot:   params.Idempot,
		logg:      params.Logger,
	}, nil
}

// VerifyAndParse checks the Stripe-Signature header against the environment's
// signing secret and decodes the event.
func (s *stripeService) VerifyAndParse(env enums.Environment, payload []byte, signatureHeader string) (stripe.Event, error) {
	secret, err := s.creds.SigningSecretFor(env)
	if err != nil {
		return stripe.Event{}, apperrors.Wrap(apperrors.CodeInternal, err, "resolving webhook secret")
	}
	event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
	if err != nil {
		return stripe.Event{}, apperrors.Wrap(apperrors.CodeUnauthorized, err, "webhook signature verification failed")
	}
	return event, nil
}

// HandleEvent applies one verified event. Unknown event types are ignored;
// replays of an already-processed event id are dropped.
func (s *stripeService) HandleEvent(ctx context.Context, env enums.Environment, event stripe.Event) (Outcome, error) {
	if event.ID == "" {
		return "", apperrors.New(apperrors.CodeValidation, "event id is required")
	}

	dedupeKey := s.idempot.IdempotencyKey("stripe_webhook", event.ID)
	fresh, err := s.idempot.SetNX(ctx, dedupeKey, "1", eventDedupeTTL)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "webhook dedupe check")
	}
	if !fresh {
		return OutcomeReplayed, nil
	}

	outcome, err := s.applyEvent(ctx, env, event)
	if err != nil {
		// Release the dedupe key so Stripe's retry of this event id is not
		// swallowed as a replay.
		_ = s.idempot.Del(ctx, dedupeKey)
		return "", err
	}
	return outcome, nil
}

func (s *stripeService) applyEvent(ctx context.Context, env enums.Environment, event stripe.Event) (Outcome, error) {
	switch event.Type {
	case "invoice.paid":
		return s.handleInvoice(ctx, env, event, enums.SubscriptionEventInvoicePaid)
	case "invoice.payment_failed":
		return s.handleInvoice(ctx, env, event, enums.SubscriptionEventInvoicePaymentFailed)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, env, event)
	default:
		return OutcomeIgnored, nil
	}
}

func (s *stripeService) handleInvoice(ctx context.Context, env enums.Environment, event stripe.Event, eventType enums.SubscriptionEventType) (Outcome, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", apperrors.Wrap(apperrors.CodeValidation, err, "decoding invoice payload")
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return OutcomeIgnored, nil
	}

	company, err := s.companies.GetByStripeCustomerID(ctx, env, invoice.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("invoice event for unknown customer %s", invoice.Customer.ID))
			return OutcomeIgnored, nil
		}
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "resolving invoice company")
	}

	amount := invoice.AmountPaid
	if eventType == enums.SubscriptionEventInvoicePaymentFailed {
		amount = invoice.AmountDue
	}
	record := &models.SubscriptionEvent{
		CompanyID:          company.ID,
		EventType:          eventType,
		AmountChargedCents: &amount,
		StripeObjectID:     &invoice.ID,
	}
	if err := s.billing.RecordEvent(ctx, record); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "recording invoice event")
	}
	return OutcomeProcessed, nil
}

func (s *stripeService) handleSubscriptionDeleted(ctx context.Context, env enums.Environment, event stripe.Event) (Outcome, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return "", apperrors.Wrap(apperrors.CodeValidation, err, "decoding subscription payload")
	}
	if sub.ID == "" {
		return OutcomeIgnored, nil
	}

	company, err := s.companies.GetByStripeSubscriptionID(ctx, env, sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already cleared, most likely by the seat reconcile path.
			return OutcomeIgnored, nil
		}
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "resolving subscription company")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		companyRepo := s.companies.WithTx(tx)
		billingRepo := s.billing.WithTx(tx)

		fresh, err := companyRepo.GetByIDForUpdate(ctx, company.ID)
		if err != nil {
			return err
		}
		fresh.SetStripeSubscriptionID(env, nil)
		if err := companyRepo.Update(ctx, fresh); err != nil {
			return err
		}
		return billingRepo.RecordEvent(ctx, &models.SubscriptionEvent{
			CompanyID:      fresh.ID,
			EventType:      enums.SubscriptionEventSubscriptionCanceled,
			StripeObjectID: &sub.ID,
		})
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "clearing canceled subscription")
	}
	return OutcomeProcessed, nil
}
