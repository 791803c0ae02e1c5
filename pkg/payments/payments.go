// Package payments holds the provider-neutral values exchanged with the
// payment processor. pkg/stripe is the production implementation.
package payments

import (
	"errors"
	"strings"
)

// ErrInvalidSignature marks a webhook payload whose signature did not verify.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// AccountStatus is the connected-account state relevant to payouts.
type AccountStatus struct {
	AccountID        string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	RequirementsDue  []string
}

// FullyEnabled reports whether the account can both take charges and receive payouts.
func (a AccountStatus) FullyEnabled() bool {
	return a.ChargesEnabled && a.PayoutsEnabled
}

// OnboardingComplete reports whether onboarding is finished end to end.
func (a AccountStatus) OnboardingComplete() bool {
	return a.DetailsSubmitted && a.ChargesEnabled && a.PayoutsEnabled
}

// CheckoutSessionParams describes a single-item destination charge.
type CheckoutSessionParams struct {
	PriceCents           int64
	Currency             string
	ProductName          string
	ProductDescription   string
	ImageURL             string
	DestinationAccount   string
	ApplicationFeeAmount int64
	SuccessURL           string
	CancelURL            string
	CustomerEmail        string
	Metadata             map[string]string
}

// CheckoutSession is the provider's hosted checkout handle.
type CheckoutSession struct {
	ID  string
	URL string
}

// EventType enumerates the webhook events the reconciler reacts to.
type EventType string

const (
	EventCheckoutCompleted          EventType = "checkout.session.completed"
	EventCheckoutExpired            EventType = "checkout.session.expired"
	EventCheckoutAsyncPaymentFailed EventType = "checkout.session.async_payment_failed"
)

// Event is a verified webhook event reduced to the fields the reconciler needs.
type Event struct {
	ID        string
	Type      EventType
	ListingID string
	SessionID string
}

// TargetsCheckout reports whether the event carries a checkout session payload.
func (e Event) TargetsCheckout() bool {
	return strings.HasPrefix(string(e.Type), "checkout.session.")
}
