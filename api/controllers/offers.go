package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/offers"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type createOfferRequest struct {
	CustomerEmail string   `json:"customer_email" validate:"required,email"`
	ListingID     string   `json:"listing_id"`
	Amount        *float64 `json:"amount"`
	AmountCents   *int64   `json:"amount_cents"`
	Message       string   `json:"message" validate:"max=500"`
}

type offerActionRequest struct {
	OfferID            string   `json:"offer_id"`
	Action             string   `json:"action" validate:"required,oneof=accept reject counter cancel accept_counter"`
	SellerEmail        string   `json:"seller_email" validate:"omitempty,email"`
	CustomerEmail      string   `json:"customer_email" validate:"omitempty,email"`
	CounterAmount      *float64 `json:"counter_amount"`
	CounterAmountCents *int64   `json:"counter_amount_cents"`
	Message            string   `json:"message" validate:"max=500"`
}

type offersResponse struct {
	Count  int               `json:"count"`
	Offers []offers.OfferDTO `json:"offers"`
}

// OffersList returns offers filtered by customer, seller or listing.
func OffersList(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		rows, err := svc.List(ctx, offers.ListQuery{
			CustomerEmail: validators.SanitizeEmail(validators.QueryString(r, "customer_email")),
			SellerEmail:   validators.SanitizeEmail(validators.QueryString(r, "seller_email")),
			ListingID:     validators.QueryString(r, "listing_id"),
			Status:        validators.QueryString(r, "status"),
			Limit:         validators.QueryString(r, "limit"),
			Offset:        validators.QueryString(r, "offset"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offersResponse{Count: len(rows), Offers: rows})
	}
}

// OffersCreate opens a new offer on an active, approved listing.
func OffersCreate(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		var payload createOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listingID, err := validators.ParseUUID(payload.ListingID, "listing_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		offer, err := svc.Create(logg.WithActor(ctx, "customer", payload.CustomerEmail), offers.CreateInput{
			CustomerEmail: validators.SanitizeEmail(payload.CustomerEmail),
			ListingID:     listingID,
			Amount:        payload.Amount,
			AmountCents:   payload.AmountCents,
			Message:       payload.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// OffersAct applies a negotiation action by the seller or the customer.
func OffersAct(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		var payload offerActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offerID, err := validators.ParseUUID(payload.OfferID, "offer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithOfferID(ctx, offerID.String())
		offer, err := svc.Act(ctx, offers.ActionInput{
			OfferID:       offerID,
			Action:        payload.Action,
			SellerEmail:   validators.SanitizeEmail(payload.SellerEmail),
			CustomerEmail: validators.SanitizeEmail(payload.CustomerEmail),
			Counter:       payload.CounterAmount,
			CounterCents:  payload.CounterAmountCents,
			Message:       payload.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
