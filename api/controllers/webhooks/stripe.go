package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

const maxWebhookBody = 1 << 20

// StripeWebhookService reconciles a verified event and reports its outcome.
type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event payments.Event) (string, error)
}

type webhookVerifier interface {
	VerifyAndParseWebhook(payload []byte, signatureHeader string) (payments.Event, error)
}

// EventGuard claims event ids so redeliveries skip reconciliation.
type EventGuard interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type receivedResponse struct {
	Received bool   `json:"received"`
	Type     string `json:"type,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// StripeWebhook verifies and reconciles checkout session events. guard may
// be nil; the listing transitions are conditional so redeliveries are safe
// either way.
func StripeWebhook(svc StripeWebhookService, verifier webhookVerifier, guard EventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing Stripe-Signature header."))
			return
		}

		event, err := verifier.VerifyAndParseWebhook(payload, sigHeader)
		if err != nil {
			if errors.Is(err, payments.ErrInvalidSignature) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid webhook signature."))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Malformed webhook payload."))
			return
		}
		ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})

		claimed := false
		if guard != nil {
			fresh, claimErr := guard.Claim(ctx, event.ID)
			switch {
			case claimErr != nil:
				logg.Warn(ctx, "stripe.webhook.guard_unavailable")
			case !fresh:
				logg.Info(ctx, "stripe.webhook.duplicate")
				responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true, Type: string(event.Type), Outcome: "duplicate"})
				return
			default:
				claimed = true
			}
		}

		outcome, err := svc.HandleEvent(ctx, event)
		if err != nil {
			if claimed {
				if releaseErr := guard.Release(ctx, event.ID); releaseErr != nil {
					logg.Error(ctx, "stripe.webhook.release_failed", releaseErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true, Type: string(event.Type), Outcome: outcome})
	}
}
