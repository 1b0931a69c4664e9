package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
	pkgstripe "github.com/grattia/grattia-backend/pkg/stripe"
)

const testSigningSecret = "whsec_test_secret"

type stubIdempotency struct {
	seen map[string]bool
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{seen: map[string]bool{}}
}

func (s *stubIdempotency) Get(ctx context.Context, key string) (string, error) {
	if s.seen[key] {
		return "1", nil
	}
	return "", nil
}

func (s *stubIdempotency) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubIdempotency) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("gr:idempotency:%s:%s", scope, id)
}

func (s *stubIdempotency) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

type stubCompanyRepo struct {
	companies.Repository
	company *models.Company
}

func (s *stubCompanyRepo) WithTx(tx *gorm.DB) companies.Repository { return s }

func (s *stubCompanyRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	if s.company == nil || s.company.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.company
	return &copied, nil
}

func (s *stubCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	copied := *company
	s.company = &copied
	return nil
}

func (s *stubCompanyRepo) GetByStripeCustomerID(ctx context.Context, env enums.Environment, customerID string) (*models.Company, error) {
	if s.company != nil {
		if stored := s.company.StripeCustomerID(env); stored != nil && *stored == customerID {
			copied := *s.company
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCompanyRepo) GetByStripeSubscriptionID(ctx context.Context, env enums.Environment, subscriptionID string) (*models.Company, error) {
	if s.company != nil {
		if stored := s.company.StripeSubscriptionID(env); stored != nil && *stored == subscriptionID {
			copied := *s.company
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubBillingRepo struct {
	events    []models.SubscriptionEvent
	recordErr error
}

func (s *stubBillingRepo) WithTx(tx *gorm.DB) billing.Repository { return s }

func (s *stubBillingRepo) RecordEvent(ctx context.Context, event *models.SubscriptionEvent) error {
	if s.recordErr != nil {
		err := s.recordErr
		s.recordErr = nil
		return err
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *stubBillingRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error) {
	return s.events, nil
}

type webhookFixture struct {
	service   StripeService
	companies *stubCompanyRepo
	billing   *stubBillingRepo
	idempot   *stubIdempotency
}

func newWebhookFixture(t *testing.T, company *models.Company) *webhookFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	creds, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		TestAPIKey:        "sk_test_abc123",
		TestSigningSecret: testSigningSecret,
	}, nil)
	require.NoError(t, err)

	companyRepo := &stubCompanyRepo{company: company}
	billingRepo := &stubBillingRepo{}
	idempot := newStubIdempotency()

	svc, err := NewStripeService(StripeServiceParams{
		DB:        db.NewWithConn(conn),
		Companies: companyRepo,
		Billing:   billingRepo,
		Creds:     creds,
		Idempot:   idempot,
		Logger:    logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &webhookFixture{service: svc, companies: companyRepo, billing: billingRepo, idempot: idempot}
}

// signPayload builds a Stripe-Signature header the way Stripe does: HMAC-SHA256
// over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func invoiceEvent(t *testing.T, id, eventType, customerID string, amountPaid int64) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          "in_" + id,
		"customer":    map[string]any{"id": customerID},
		"amount_paid": amountPaid,
		"amount_due":  amountPaid,
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestVerifyAndParse_AcceptsValidSignature(t *testing.T) {
	fx := newWebhookFixture(t, nil)

	payload := []byte(`{"id":"evt_sig_ok","type":"invoice.paid","data":{"object":{}}}`)
	header := signPayload(payload, testSigningSecret)

	event, err := fx.service.VerifyAndParse(enums.EnvironmentTest, payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_sig_ok", event.ID)
}

func TestVerifyAndParse_RejectsBadSignature(t *testing.T) {
	fx := newWebhookFixture(t, nil)

	payload := []byte(`{"id":"evt_sig_bad","type":"invoice.paid"}`)
	header := signPayload(payload, "whsec_wrong_secret")

	_, err := fx.service.VerifyAndParse(enums.EnvironmentTest, payload, header)
	require.Error(t, err)
}

func TestHandleEvent_InvoicePaidRecordsEvent(t *testing.T) {
	customerID := "cus_wh_1"
	company := &models.Company{ID: uuid.New(), Environment: enums.EnvironmentTest}
	company.SetStripeCustomerID(enums.EnvironmentTest, &customerID)
	fx := newWebhookFixture(t, company)

	event := invoiceEvent(t, "evt_inv_1", "invoice.paid", customerID, 4200)
	outcome, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	require.Len(t, fx.billing.events, 1)
	recorded := fx.billing.events[0]
	assert.Equal(t, enums.SubscriptionEventInvoicePaid, recorded.EventType)
	require.NotNil(t, recorded.AmountChargedCents)
	assert.Equal(t, int64(4200), *recorded.AmountChargedCents)
}

func TestHandleEvent_ReplayedEventIsDropped(t *testing.T) {
	customerID := "cus_wh_2"
	company := &models.Company{ID: uuid.New(), Environment: enums.EnvironmentTest}
	company.SetStripeCustomerID(enums.EnvironmentTest, &customerID)
	fx := newWebhookFixture(t, company)

	event := invoiceEvent(t, "evt_replay", "invoice.paid", customerID, 1000)

	outcome, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, outcome)

	assert.Len(t, fx.billing.events, 1)
}

func TestHandleEvent_FailedEventCanBeRetried(t *testing.T) {
	customerID := "cus_wh_retry"
	company := &models.Company{ID: uuid.New(), Environment: enums.EnvironmentTest}
	company.SetStripeCustomerID(enums.EnvironmentTest, &customerID)
	fx := newWebhookFixture(t, company)
	fx.billing.recordErr = errors.New("db down")

	event := invoiceEvent(t, "evt_retry", "invoice.paid", customerID, 2500)

	_, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.Error(t, err)
	assert.Empty(t, fx.billing.events)

	// Stripe redelivers the same event id; the failed attempt must not have
	// left it marked as processed.
	outcome, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	require.Len(t, fx.billing.events, 1)
	assert.Equal(t, enums.SubscriptionEventInvoicePaid, fx.billing.events[0].EventType)
}

func TestHandleEvent_SubscriptionDeletedClearsStoredID(t *testing.T) {
	subID := "sub_wh_3"
	company := &models.Company{ID: uuid.New(), Environment: enums.EnvironmentTest}
	company.SetStripeSubscriptionID(enums.EnvironmentTest, &subID)
	fx := newWebhookFixture(t, company)

	raw, err := json.Marshal(map[string]any{"id": subID})
	require.NoError(t, err)
	event := stripe.Event{
		ID:   "evt_sub_del",
		Type: "customer.subscription.deleted",
		Data: &stripe.EventData{Raw: raw},
	}

	outcome, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	assert.Nil(t, fx.companies.company.StripeSubscriptionID(enums.EnvironmentTest))
	require.Len(t, fx.billing.events, 1)
	assert.Equal(t, enums.SubscriptionEventSubscriptionCanceled, fx.billing.events[0].EventType)
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	fx := newWebhookFixture(t, nil)

	event := stripe.Event{ID: "evt_other", Type: "charge.refunded", Data: &stripe.EventData{Raw: []byte("{}")}}
	outcome, err := fx.service.HandleEvent(context.Background(), enums.EnvironmentTest, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}
