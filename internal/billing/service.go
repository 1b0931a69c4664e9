package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// SeatSyncAction reports what SyncSeatQuantity did.
type SeatSyncAction string

const (
	SeatSyncUnchanged SeatSyncAction = "unchanged"
	SeatSyncUpdated   SeatSyncAction = "updated"
	SeatSyncCanceled  SeatSyncAction = "canceled"
)

// CheckoutSession is the subset of the Stripe session returned to clients.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// VerifyResult reports the payment state of a checkout session.
type VerifyResult struct {
	PaymentStatus  string `json:"payment_status"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Activated      bool   `json:"activated"`
}

// SeatSyncResult reports a seat reconciliation outcome.
type SeatSyncResult struct {
	CompanyID        uuid.UUID      `json:"company_id"`
	Action           SeatSyncAction `json:"action"`
	PreviousQuantity int64          `json:"previous_quantity"`
	NewQuantity      int64          `json:"new_quantity"`
}

// Service exposes subscription billing operations.
type Service interface {
	EnsureCustomer(ctx context.Context, companyID uuid.UUID) (string, error)
	CreateCheckoutSession(ctx context.Context, companyID uuid.UUID, input CheckoutInput) (*CheckoutSession, error)
	VerifyCheckoutSession(ctx context.Context, companyID uuid.UUID, sessionID string) (*VerifyResult, error)
	SyncSeatQuantity(ctx context.Context, companyID uuid.UUID) (*SeatSyncResult, error)
	ListEvents(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error)
}

// CheckoutInput configures a new Stripe Checkout session.
type CheckoutInput struct {
	Mode       enums.CheckoutMode
	SuccessURL string
	CancelURL  string
}

// ServiceParams wires the billing service dependencies.
type ServiceParams struct {
	DB          *db.Client
	Repo        Repository
	Companies   companies.Repository
	Profiles    profiles.Repository
	Stripe      StripeClient
	SeatPriceID string
	Logger      *logger.Logger
}

type service struct {
	db          *db.Client
	repo        Repository
	companies   companies.Repository
	profiles    profiles.Repository
	stripe      StripeClient
	seatPriceID string
	logg        *logger.Logger
}

// NewService builds the billing service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		companies:   params.Companies,
		profiles:    params.Profiles,
		stripe:      params.Stripe,
		seatPriceID: params.SeatPriceID,
		logg:        params.Logger,
	}, nil
}

// EnsureCustomer lazily creates the Stripe customer for the company's active
// environment. Safe to call repeatedly; an existing id is returned as-is.
func (s *service) EnsureCustomer(ctx context.Context, companyID uuid.UUID) (string, error) {
	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return "", err
	}
	if existing := company.StripeCustomerID(company.Environment); existing != nil && *existing != "" {
		return *existing, nil
	}

	params := &stripe.CustomerParams{
		Name: stripe.String(company.Name),
	}
	params.AddMetadata("company_id", company.ID.String())
	created, err := s.stripe.CreateCustomer(ctx, company.Environment, params)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "creating stripe customer")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		companyRepo := s.companies.WithTx(tx)
		billingRepo := s.repo.WithTx(tx)

		fresh, err := companyRepo.GetByIDForUpdate(ctx, company.ID)
		if err != nil {
			return err
		}
		if existing := fresh.StripeCustomerID(fresh.Environment); existing != nil && *existing != "" {
			// Another request won the race; keep its customer.
			created.ID = *existing
			return nil
		}
		fresh.SetStripeCustomerID(fresh.Environment, &created.ID)
		if err := companyRepo.Update(ctx, fresh); err != nil {
			return err
		}
		return billingRepo.RecordEvent(ctx, &models.SubscriptionEvent{
			CompanyID:      fresh.ID,
			EventType:      enums.SubscriptionEventCustomerCreated,
			StripeObjectID: &created.ID,
		})
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "storing stripe customer")
	}
	return created.ID, nil
}

// CreateCheckoutSession opens a Stripe Checkout session for the company. In
// subscription mode the seat quantity is the current active member count.
func (s *service) CreateCheckoutSession(ctx context.Context, companyID uuid.UUID, input CheckoutInput) (*CheckoutSession, error) {
	if !input.Mode.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid checkout mode %q", input.Mode))
	}
	if input.SuccessURL == "" || input.CancelURL == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "success and cancel urls are required")
	}

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.EnsureCustomer(ctx, companyID)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
	}
	switch input.Mode {
	case enums.CheckoutModeSetup:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSetup))
	case enums.CheckoutModeSubscription:
		if s.seatPriceID == "" {
			return nil, apperrors.New(apperrors.CodeInternal, "seat price is not configured")
		}
		seats, err := s.profiles.CountActiveByCompany(ctx, companyID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "counting active members")
		}
		if seats < 1 {
			seats = 1
		}
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.seatPriceID),
			Quantity: stripe.Int64(seats),
		}}
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, company.Environment, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "creating checkout session")
	}

	if err := s.repo.RecordEvent(ctx, &models.SubscriptionEvent{
		CompanyID:      company.ID,
		EventType:      enums.SubscriptionEventCheckoutCreated,
		StripeObjectID: &session.ID,
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording checkout event")
	}

	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// VerifyCheckoutSession fetches the client-supplied session and, when paid,
// stores the subscription id on the environment-specific column. Unpaid
// sessions are reported without mutating the company.
func (s *service) VerifyCheckoutSession(ctx context.Context, companyID uuid.UUID, sessionID string) (*VerifyResult, error) {
	if sessionID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "session id is required")
	}
	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	session, err := s.stripe.GetCheckoutSession(ctx, company.Environment, sessionID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "fetching checkout session")
	}

	result := &VerifyResult{PaymentStatus: string(session.PaymentStatus)}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid || session.Subscription == nil {
		return result, nil
	}

	subscriptionID := session.Subscription.ID
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		companyRepo := s.companies.WithTx(tx)
		billingRepo := s.repo.WithTx(tx)

		fresh, err := companyRepo.GetByIDForUpdate(ctx, company.ID)
		if err != nil {
			return err
		}
		if existing := fresh.StripeSubscriptionID(fresh.Environment); existing != nil && *existing == subscriptionID {
			return nil
		}
		fresh.SetStripeSubscriptionID(fresh.Environment, &subscriptionID)
		if err := companyRepo.Update(ctx, fresh); err != nil {
			return err
		}
		return billingRepo.RecordEvent(ctx, &models.SubscriptionEvent{
			CompanyID:      fresh.ID,
			EventType:      enums.SubscriptionEventSubscriptionStarted,
			StripeObjectID: &subscriptionID,
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "storing subscription")
	}

	result.SubscriptionID = subscriptionID
	result.Activated = true
	return result, nil
}

// SyncSeatQuantity reconciles the Stripe seat quantity with the active member
// count. Zero members cancels the subscription instead of issuing a
// zero-quantity update.
func (s *service) SyncSeatQuantity(ctx context.Context, companyID uuid.UUID) (*SeatSyncResult, error) {
	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	subIDPtr := company.StripeSubscriptionID(company.Environment)
	if subIDPtr == nil || *subIDPtr == "" {
		return nil, apperrors.New(apperrors.CodeNotFound, "company has no active subscription")
	}
	subscriptionID := *subIDPtr

	seats, err := s.profiles.CountActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "counting active members")
	}

	sub, err := s.stripe.GetSubscription(ctx, company.Environment, subscriptionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "fetching subscription")
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, apperrors.New(apperrors.CodeDependency, "subscription has no items")
	}
	item := sub.Items.Data[0]
	previous := item.Quantity

	result := &SeatSyncResult{
		CompanyID:        company.ID,
		PreviousQuantity: previous,
		NewQuantity:      seats,
	}

	if seats == 0 {
		if _, err := s.stripe.CancelSubscription(ctx, company.Environment, subscriptionID); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDependency, err, "canceling subscription")
		}
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			companyRepo := s.companies.WithTx(tx)
			billingRepo := s.repo.WithTx(tx)

			fresh, err := companyRepo.GetByIDForUpdate(ctx, company.ID)
			if err != nil {
				return err
			}
			fresh.SetStripeSubscriptionID(fresh.Environment, nil)
			if err := companyRepo.Update(ctx, fresh); err != nil {
				return err
			}
			return billingRepo.RecordEvent(ctx, &models.SubscriptionEvent{
				CompanyID:        fresh.ID,
				EventType:        enums.SubscriptionEventSubscriptionCanceled,
				PreviousQuantity: &previous,
				NewQuantity:      &seats,
				StripeObjectID:   &subscriptionID,
			})
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording cancellation")
		}
		result.Action = SeatSyncCanceled
		return result, nil
	}

	if seats == previous {
		result.Action = SeatSyncUnchanged
		return result, nil
	}

	// Proration for the quantity change is delegated to Stripe defaults.
	updateParams := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:       stripe.String(item.ID),
			Quantity: stripe.Int64(seats),
		}},
	}
	if _, err := s.stripe.UpdateSubscription(ctx, company.Environment, subscriptionID, updateParams); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "updating subscription quantity")
	}

	if err := s.repo.RecordEvent(ctx, &models.SubscriptionEvent{
		CompanyID:        company.ID,
		EventType:        enums.SubscriptionEventQuantityUpdated,
		PreviousQuantity: &previous,
		NewQuantity:      &seats,
		StripeObjectID:   &subscriptionID,
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording quantity update")
	}

	result.Action = SeatSyncUpdated
	return result, nil
}

func (s *service) ListEvents(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	events, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing subscription events")
	}
	return events, nil
}

func (s *service) loadCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "company not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading company")
	}
	return company, nil
}
