package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/archivesurmer-backend/internal/checkout"
	"github.com/angelmondragon/archivesurmer-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type checkoutRequest struct {
	ListingID     string `json:"listing_id"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	Origin        string `json:"origin"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

// CreateCheckoutSession reserves a listing and opens a hosted checkout for it.
func CreateCheckoutSession(svc checkoutsvc.Service, publicOrigin string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listingID, err := validators.ParseUUID(payload.ListingID, "listing_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Start(ctx, checkoutsvc.Input{
			ListingID:     listingID,
			CustomerEmail: validators.SanitizeEmail(payload.CustomerEmail),
			Origin:        checkout.ResolveOrigin(payload.Origin, publicOrigin, r.Header, r.Host),
			SuccessURL:    payload.SuccessURL,
			CancelURL:     payload.CancelURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
