package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

const maxMessageLen = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Identities resolves the emails carried by offer requests.
type Identities interface {
	ResolveSeller(ctx context.Context, email string) (*models.SellerProfile, error)
	FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error)
}

// ListingReader loads the listing an offer targets.
type ListingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type Service interface {
	List(ctx context.Context, query ListQuery) ([]OfferDTO, error)
	Create(ctx context.Context, input CreateInput) (*OfferDTO, error)
	Act(ctx context.Context, input ActionInput) (*OfferDTO, error)
	ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	listings   ListingReader
	identities Identities
	outbox     outbox.Emitter
	metrics    *metrics.MarketplaceMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams wires the offers service.
type ServiceParams struct {
	Tx         txRunner
	Repo       Repository
	Listings   ListingReader
	Identities Identities
	Outbox     outbox.Emitter
	Metrics    *metrics.MarketplaceMetrics
	Logger     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:         params.Tx,
		repo:       params.Repo,
		listings:   params.Listings,
		identities: params.Identities,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns offers for a customer, seller or listing. Unknown emails yield
// an empty result rather than an error.
func (s *service) List(ctx context.Context, query ListQuery) ([]OfferDTO, error) {
	customerEmail := strings.TrimSpace(query.CustomerEmail)
	sellerEmail := strings.TrimSpace(query.SellerEmail)
	rawListing := strings.TrimSpace(query.ListingID)
	if customerEmail == "" && sellerEmail == "" && rawListing == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Use one filter: customer_email, seller_email, or listing_id.")
	}

	var filter ListFilter
	if customerEmail != "" {
		customer, err := s.identities.FindCustomer(ctx, customerEmail)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return []OfferDTO{}, nil
		}
		filter.CustomerID = &customer.ID
	}
	if sellerEmail != "" {
		seller, err := s.identities.ResolveSeller(ctx, sellerEmail)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return []OfferDTO{}, nil
			}
			return nil, err
		}
		filter.SellerID = &seller.ID
	}
	if rawListing != "" {
		id, err := uuid.Parse(rawListing)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is invalid.")
		}
		filter.ListingID = &id
	}
	if status := strings.ToLower(strings.TrimSpace(query.Status)); status != "" && status != "all" {
		parsed, err := enums.ParseOfferStatus(status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid offer status filter.")
		}
		filter.Status = &parsed
	}

	rows, err := s.repo.List(ctx, filter, pagination.Offers.Parse(query.Limit, query.Offset))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	out := make([]OfferDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OfferDTO, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required.")
	}
	amount, err := resolveCents(input.AmountCents, input.Amount)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Offer amount must be a positive number.")
	}

	customer, err := s.identities.FindCustomer(ctx, input.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Customer not found. Create a customer account first.")
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listings.CheckPurchasable(listing.Status, listing.ModerationStatus) != nil {
		s.metrics.ObserveOfferAction("create", "conflict")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Offers are only possible on active, approved listings.")
	}

	var offer *models.Offer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindOpen(ctx, listing.ID, customer.ID); err == nil {
			return errOpenOffer
		} else if !db.IsNotFound(err) {
			return err
		}

		offer = &models.Offer{
			ListingID:    listing.ID,
			SellerID:     listing.SellerID,
			CustomerID:   customer.ID,
			Currency:     listings.NormalizeCurrency(listing.Currency),
			AmountCents:  amount,
			Status:       enums.OfferStatusPending,
			BuyerMessage: optional(clip(input.Message, maxMessageLen)),
		}
		if err := repo.Create(ctx, offer); err != nil {
			if db.IsUniqueViolation(err, OpenOfferIndex) {
				return errOpenOffer
			}
			return err
		}
		return s.emit(ctx, tx, enums.EventOfferCreated, offer, "create")
	})
	if err != nil {
		s.metrics.ObserveOfferAction("create", outcomeOf(err))
		return nil, wrapDependency(err, "create offer")
	}
	s.metrics.ObserveOfferAction("create", "applied")

	logCtx := s.logg.WithListingID(s.logg.WithOfferID(ctx, offer.ID.String()), offer.ListingID.String())
	s.logg.Info(s.logg.WithField(logCtx, "amount_cents", offer.AmountCents), "offer created")
	dto := ToDTO(offer)
	return &dto, nil
}

var errOpenOffer = pkgerrors.New(pkgerrors.CodeConflict, "You already have an open offer on this listing.")

// Act applies a seller or customer action. The terminal check runs before the
// identity check, and the write is a compare-and-swap on the status that was
// read, so two racing actions cannot both land.
func (s *service) Act(ctx context.Context, input ActionInput) (*OfferDTO, error) {
	action, err := enums.ParseOfferAction(input.Action)
	if err != nil || input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer_id and valid action are required.")
	}

	updated, err := s.act(ctx, action, input)
	if err != nil {
		s.metrics.ObserveOfferAction(string(action), outcomeOf(err))
		return nil, wrapDependency(err, "update offer")
	}
	s.metrics.ObserveOfferAction(string(action), "applied")

	logCtx := s.logg.WithFields(s.logg.WithOfferID(ctx, updated.ID.String()), map[string]any{
		"action": string(action),
		"status": string(updated.Status),
	})
	s.logg.Info(s.logg.WithListingID(logCtx, updated.ListingID.String()), "offer updated")
	dto := ToDTO(updated)
	return &dto, nil
}

func (s *service) act(ctx context.Context, action enums.OfferAction, input ActionInput) (*models.Offer, error) {
	offer, err := s.repo.FindByID(ctx, input.OfferID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Offer not found.")
		}
		return nil, err
	}
	if offer.Status.IsTerminal() {
		return nil, terminalConflict(offer.Status)
	}
	if err := s.authorize(ctx, action, offer, input); err != nil {
		return nil, err
	}

	var counter int64
	if action == enums.OfferActionCounter {
		counter, err = resolveCents(input.CounterCents, input.Counter)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter_amount must be a positive number for counter action.")
		}
	}
	step, err := Apply(offer, action, counter, clip(input.Message, maxMessageLen), s.now())
	switch {
	case errors.Is(err, ErrTerminal):
		return nil, terminalConflict(offer.Status)
	case errors.Is(err, ErrCounterAmount):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter_amount must be a positive number for counter action.")
	case errors.Is(err, ErrNotCountered):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Only countered offers can be accepted by customer.")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	var updated *models.Offer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.CompareAndSwap(ctx, offer.ID, step.From, step.Updates)
		if err != nil {
			return err
		}
		if !ok {
			current, err := repo.FindByID(ctx, offer.ID)
			if err == nil && current.Status.IsTerminal() {
				return terminalConflict(current.Status)
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "Offer changed while processing. Reload and retry.")
		}
		updated, err = repo.FindByID(ctx, offer.ID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOfferUpdated, updated, string(action))
	})
	return updated, err
}

func (s *service) authorize(ctx context.Context, action enums.OfferAction, offer *models.Offer, input ActionInput) error {
	if action.SellerAction() {
		if strings.TrimSpace(input.SellerEmail) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "Valid seller_email is required for seller actions.")
		}
		seller, err := s.identities.ResolveSeller(ctx, input.SellerEmail)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		if seller == nil || seller.ID != offer.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Seller is not authorized for this offer.")
		}
		return nil
	}

	if strings.TrimSpace(input.CustomerEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Valid customer_email is required for this action.")
	}
	customer, err := s.identities.FindCustomer(ctx, input.CustomerEmail)
	if err != nil {
		return err
	}
	if customer == nil || customer.ID != offer.CustomerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Customer is not authorized for this offer.")
	}
	return nil
}

// ExpireBefore moves open offers created before cutoff to expired and returns
// how many it changed. Offers acted on concurrently are skipped.
func (s *service) ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	rows, err := s.repo.FindExpired(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range rows {
		step, err := Expire(&rows[i], s.now())
		if err != nil {
			continue
		}
		var changed bool
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			ok, err := repo.CompareAndSwap(ctx, rows[i].ID, step.From, step.Updates)
			if err != nil || !ok {
				return err
			}
			changed = true
			rows[i].Status = step.To
			return s.emit(ctx, tx, enums.EventOfferUpdated, &rows[i], "expire")
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
			s.metrics.ObserveOfferAction("expire", "applied")
			s.logg.Info(s.logg.WithOfferID(ctx, rows[i].ID.String()), "offer expired")
		}
	}
	return expired, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, offer *models.Offer, action string) error {
	return s.outbox.Emit(ctx, tx, outbox.Event{
		Type:          eventType,
		AggregateType: enums.AggregateOffer,
		AggregateID:   offer.ID,
		Data: payloads.OfferEvent{
			OfferID:     offer.ID,
			ListingID:   offer.ListingID,
			CustomerID:  offer.CustomerID,
			SellerID:    offer.SellerID,
			Status:      offer.Status,
			Action:      action,
			AmountCents: offer.AmountCents,
			FinalCents:  offer.FinalAmountCents,
		},
	})
}

func terminalConflict(status enums.OfferStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "Offer is already %s and cannot be changed.", status)
}

func resolveCents(cents *int64, major *float64) (int64, error) {
	if cents != nil {
		if *cents <= 0 {
			return 0, money.ErrInvalidAmount
		}
		return *cents, nil
	}
	if major != nil {
		return money.FromMajorFloat(*major)
	}
	return 0, money.ErrInvalidAmount
}

func clip(raw string, max int) string {
	raw = strings.TrimSpace(raw)
	if utf8.RuneCountInString(raw) <= max {
		return raw
	}
	return strings.TrimSpace(string([]rune(raw)[:max]))
}

func outcomeOf(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	return strings.ToLower(string(typed.Code()))
}

func wrapDependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
