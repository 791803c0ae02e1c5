package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/pkg/checkout"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

const platformTag = "archive-sur-mer"

// errReservationLost marks a session opened for a reservation that is no
// longer ours; the listing must not be released on that path.
var errReservationLost = errors.New("reservation lost before session attach")

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type sellerLoader interface {
	FindSellerByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
}

// Reservations is the listing lifecycle surface the orchestrator drives.
type Reservations interface {
	Reserve(ctx context.Context, id uuid.UUID, offerID *uuid.UUID) (bool, error)
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error)
	Release(ctx context.Context, ref listings.Ref, reason string) (bool, error)
}

// Gateway is the payment provider surface used to open a hosted checkout.
type Gateway interface {
	RetrieveAccount(ctx context.Context, accountID string) (payments.AccountStatus, error)
	CreateCheckoutSession(ctx context.Context, in payments.CheckoutSessionParams) (payments.CheckoutSession, error)
}

// Input is one checkout request. Origin must already be resolved by the caller.
type Input struct {
	ListingID     uuid.UUID
	CustomerEmail string
	Origin        string
	SuccessURL    string
	CancelURL     string
}

type Result struct {
	SessionID             string    `json:"session_id"`
	URL                   string    `json:"url"`
	ListingID             uuid.UUID `json:"listing_id"`
	ApplicationFeeAmount  int64     `json:"application_fee_amount"`
	ApplicationFeePercent float64   `json:"application_fee_percent"`
}

// Service opens hosted checkout sessions for single listings.
type Service interface {
	Start(ctx context.Context, input Input) (*Result, error)
}

type Params struct {
	Listings     listingLoader
	Sellers      sellerLoader
	Reservations Reservations
	Gateway      Gateway
	FeePercent   decimal.Decimal
	Metrics      *metrics.MarketplaceMetrics
	Logger       *logger.Logger
}

type service struct {
	listings     listingLoader
	sellers      sellerLoader
	reservations Reservations
	gateway      Gateway
	feePercent   decimal.Decimal
	metrics      *metrics.MarketplaceMetrics
	logg         *logger.Logger
}

func NewService(params Params) (Service, error) {
	if params.Listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller loader required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		listings:     params.Listings,
		sellers:      params.Sellers,
		reservations: params.Reservations,
		gateway:      params.Gateway,
		feePercent:   money.ClampFeePercent(params.FeePercent),
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// Start validates the listing and seller, reserves the listing, opens a
// session and attaches it. The steps are not one transaction: once the
// reservation lands, any failure before the session is attached releases it.
func (s *service) Start(ctx context.Context, input Input) (*Result, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required.")
	}
	if input.Origin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "Unable to resolve PUBLIC_ORIGIN for checkout redirect URLs.")
	}
	ctx = s.logg.WithListingID(ctx, input.ListingID.String())

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if err := purchasable(listing); err != nil {
		s.metrics.ObserveReservation("not_purchasable")
		return nil, err
	}

	seller, err := s.sellers.FindSellerByID(ctx, listing.SellerID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	if seller == nil || !seller.HasPaymentAccount() {
		return nil, pkgerrors.New(pkgerrors.CodeFailedPrecondition, "Seller payout account is missing.")
	}
	account, err := s.gateway.RetrieveAccount(ctx, *seller.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
	}
	if !account.FullyEnabled() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Seller Stripe account is not fully enabled yet.")
	}

	reserved, err := s.reservations.Reserve(ctx, listing.ID, nil)
	if err != nil {
		s.metrics.ObserveReservation("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve listing")
	}
	if !reserved {
		s.metrics.ObserveReservation("lost")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Listing is no longer available.")
	}
	s.metrics.ObserveReservation("won")

	result, err := s.openSession(ctx, listing, seller, input)
	if err != nil {
		if !errors.Is(err, errReservationLost) {
			s.compensate(ctx, listing.ID, err)
		}
		return nil, err
	}
	return result, nil
}

func (s *service) openSession(ctx context.Context, listing *models.Listing, seller *models.SellerProfile, input Input) (*Result, error) {
	fee := money.ApplicationFee(listing.PriceCents, s.feePercent)
	successURL, cancelURL := checkout.RedirectURLs(input.Origin, listing.ID, input.SuccessURL, input.CancelURL)
	metadata := map[string]string{
		"listing_id": listing.ID.String(),
		"seller_id":  seller.ID.String(),
		"platform":   platformTag,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutSessionParams{
		PriceCents:           listing.PriceCents,
		Currency:             listings.NormalizeCurrency(listing.Currency),
		ProductName:          checkout.ProductName(listing.Brand, listing.Title),
		ProductDescription:   checkout.Description(listing.Description),
		ImageURL:             listing.PrimaryImage(),
		DestinationAccount:   *seller.StripeAccountID,
		ApplicationFeeAmount: fee,
		SuccessURL:           successURL,
		CancelURL:            cancelURL,
		CustomerEmail:        strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		Metadata:             metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
	}

	attached, err := s.reservations.AttachSession(ctx, listing.ID, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach checkout session")
	}
	if !attached {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", session.ID), "listing left reserved state before session attach")
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, errReservationLost, "Listing is no longer available.")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id":      session.ID,
		"application_fee": fee,
		"fee_percent":     s.feePercent.String(),
	})
	s.logg.Info(logCtx, "checkout session created")
	return &Result{
		SessionID:             session.ID,
		URL:                   session.URL,
		ListingID:             listing.ID,
		ApplicationFeeAmount:  fee,
		ApplicationFeePercent: s.feePercent.InexactFloat64(),
	}, nil
}

// compensate releases a reservation whose session never got attached. A
// failed release is only logged; the stale sweep picks the listing up later.
func (s *service) compensate(ctx context.Context, listingID uuid.UUID, cause error) {
	s.metrics.IncRollback()
	released, err := s.reservations.Release(context.WithoutCancel(ctx), listings.Ref{ID: listingID}, listings.ReleaseCheckoutFailed)
	if err != nil {
		s.logg.Error(ctx, "checkout rollback failed", err)
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"released": released, "cause": cause.Error()})
	s.logg.Warn(logCtx, "checkout reservation rolled back")
}

func purchasable(listing *models.Listing) error {
	if listings.CheckPurchasable(listing.Status, listing.ModerationStatus) == nil {
		return nil
	}
	if listing.ModerationStatus != enums.ModerationApproved {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "Listing cannot be purchased before moderation approval (current: %s).", listing.ModerationStatus)
	}
	return pkgerrors.Newf(pkgerrors.CodeConflict, "Listing cannot be purchased while status is '%s'.", listing.Status)
}
