package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type createListingRequest struct {
	SellerEmail string   `json:"seller_email" validate:"required,email"`
	Title       string   `json:"title" validate:"required,max=140"`
	Brand       string   `json:"brand" validate:"required,max=80"`
	Description string   `json:"description" validate:"max=4000"`
	Size        string   `json:"size" validate:"max=40"`
	Condition   string   `json:"condition" validate:"max=60"`
	IsNew       bool     `json:"is_new"`
	Currency    string   `json:"currency" validate:"omitempty,currency"`
	ImageURL    string   `json:"image_url" validate:"omitempty,max=400"`
	MediaURLs   []string `json:"media_urls" validate:"omitempty,max=8"`
	Price       *float64 `json:"price"`
	PriceCents  *int64   `json:"price_cents"`
}

type updateListingRequest struct {
	ListingID   string `json:"listing_id"`
	SellerEmail string `json:"seller_email" validate:"required,email"`
	Status      string `json:"status" validate:"required,oneof=active archived"`
}

type listingsResponse struct {
	Count    int                   `json:"count"`
	Listings []listings.ListingDTO `json:"listings"`
}

// ListingsList serves the public catalogue, or a seller's own listings when
// seller_email is supplied.
func ListingsList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		rows, err := svc.List(ctx, listings.ListQuery{
			Status:      validators.QueryString(r, "status"),
			Search:      validators.QueryString(r, "search"),
			Condition:   validators.QueryString(r, "condition"),
			SellerEmail: validators.QueryString(r, "seller_email"),
			Limit:       validators.QueryString(r, "limit"),
			Offset:      validators.QueryString(r, "offset"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingsResponse{Count: len(rows), Listings: rows})
	}
}

// ListingsCreate submits a listing for moderation.
func ListingsCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listing, err := svc.Create(logg.WithActor(ctx, "seller", payload.SellerEmail), listings.CreateInput{
			SellerEmail: validators.SanitizeEmail(payload.SellerEmail),
			Title:       payload.Title,
			Brand:       payload.Brand,
			Description: payload.Description,
			Size:        payload.Size,
			Condition:   payload.Condition,
			IsNew:       payload.IsNew,
			Currency:    payload.Currency,
			ImageURL:    payload.ImageURL,
			MediaURLs:   payload.MediaURLs,
			Price:       payload.Price,
			PriceCents:  payload.PriceCents,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// ListingsUpdateStatus lets the owning seller toggle a listing between active
// and archived.
func ListingsUpdateStatus(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listingID, err := validators.ParseUUID(payload.ListingID, "listing_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listing, err := svc.SetOwnerStatus(logg.WithActor(ctx, "seller", payload.SellerEmail), listings.OwnerStatusInput{
			ListingID:   listingID,
			SellerEmail: validators.SanitizeEmail(payload.SellerEmail),
			Status:      payload.Status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
