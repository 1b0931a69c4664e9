package controllers

import (
	"io"
	"net/http"

	"github.com/grattia/grattia-backend/api/responses"
	"github.com/grattia/grattia-backend/internal/webhooks"
	"github.com/grattia/grattia-backend/pkg/enums"
	pkgerrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// Stripe recommends capping webhook bodies well below this.
const stripeWebhookMaxBody = 1 << 16

// StripeWebhook verifies and dispatches Stripe events. The environment segment
// selects which signing secret the payload is checked against, so test-mode
// events can never mutate live companies.
func StripeWebhook(svc webhooks.StripeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := enums.ParseEnvironment(pathParam(r, "environment"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid environment"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, stripeWebhookMaxBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read payload"))
			return
		}

		event, err := svc.VerifyAndParse(env, payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.HandleEvent(r.Context(), env, event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"event_id": event.ID,
			"outcome":  string(outcome),
		})
	}
}
