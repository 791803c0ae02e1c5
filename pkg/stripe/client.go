package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

const (
	testEnv = "test"
	liveEnv = "live"

	metadataListingID = "listing_id"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client adapts Stripe's API client to the payments collaborator surface.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")

	return &Client{
		api:           stripe.NewClient(apiKey),
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateConnectedAccount opens an express account with transfers requested.
func (c *Client) CreateConnectedAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountCreateParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCreateCapabilitiesParams{
			Transfers: &stripe.AccountCreateCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	account, err := c.api.V1Accounts.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return account.ID, nil
}

// CreateAccountOnboardingLink returns the hosted onboarding URL for accountID.
func (c *Client) CreateAccountOnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	link, err := c.api.V1AccountLinks.Create(ctx, &stripe.AccountLinkCreateParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// RetrieveAccount loads the connected account's payout readiness.
func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (payments.AccountStatus, error) {
	account, err := c.api.V1Accounts.GetByID(ctx, accountID, nil)
	if err != nil {
		return payments.AccountStatus{}, fmt.Errorf("retrieve account: %w", err)
	}
	status := payments.AccountStatus{
		AccountID:        account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
		RequirementsDue:  []string{},
	}
	if account.Requirements != nil {
		status.RequirementsDue = append(status.RequirementsDue, account.Requirements.CurrentlyDue...)
	}
	return status, nil
}

// CreateCheckoutSession opens a payment-mode session that routes funds to the
// destination account minus the application fee.
func (c *Client) CreateCheckoutSession(ctx context.Context, in payments.CheckoutSessionParams) (payments.CheckoutSession, error) {
	product := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(in.ProductName),
	}
	if in.ProductDescription != "" {
		product.Description = stripe.String(in.ProductDescription)
	}
	if in.ImageURL != "" {
		product.Images = []*string{stripe.String(in.ImageURL)}
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripe.String(in.Currency),
					UnitAmount:  stripe.Int64(in.PriceCents),
					ProductData: product,
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(in.ApplicationFeeAmount),
			TransferData: &stripe.CheckoutSessionCreatePaymentIntentDataTransferDataParams{
				Destination: stripe.String(in.DestinationAccount),
			},
			Metadata: in.Metadata,
		},
		Metadata: in.Metadata,
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}

	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return payments.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return payments.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// VerifyAndParseWebhook validates the Stripe-Signature header against the
// configured signing secret.
func (c *Client) VerifyAndParseWebhook(payload []byte, signatureHeader string) (payments.Event, error) {
	return ParseWebhook(payload, signatureHeader, c.signingSecret)
}

// ParseWebhook verifies payload with secret and reduces it to a payments.Event.
// Signature failures wrap payments.ErrInvalidSignature.
func ParseWebhook(payload []byte, signatureHeader, secret string) (payments.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payments.Event{}, fmt.Errorf("%w: %v", payments.ErrInvalidSignature, err)
	}

	out := payments.Event{ID: event.ID, Type: payments.EventType(event.Type)}
	if !out.TargetsCheckout() || event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return payments.Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = session.ID
	if session.Metadata != nil {
		out.ListingID = strings.TrimSpace(session.Metadata[metadataListingID])
	}
	return out, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
