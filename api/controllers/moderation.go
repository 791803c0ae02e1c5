package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type moderationRequest struct {
	AdminToken string `json:"admin_token"`
	ListingID  string `json:"listing_id"`
	Action     string `json:"action" validate:"required,oneof=approve reject"`
	Reason     string `json:"reason" validate:"max=500"`
	Notes      string `json:"notes" validate:"max=500"`
}

// ModerationQueue lists listings awaiting (or past) review. Routes mount it
// behind RequireAdminToken.
func ModerationQueue(svc listings.ModerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable"))
			return
		}

		rows, err := svc.Queue(ctx,
			validators.QueryString(r, "moderation_status"),
			validators.QueryString(r, "limit"),
			validators.QueryString(r, "offset"),
		)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingsResponse{Count: len(rows), Listings: rows})
	}
}

// ModerationDecide approves or rejects one listing.
func ModerationDecide(svc listings.ModerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable"))
			return
		}

		var payload moderationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listingID, err := validators.ParseUUID(payload.ListingID, "listing_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		reason := payload.Reason
		if reason == "" {
			reason = payload.Notes
		}
		listing, err := svc.Decide(logg.WithListingID(ctx, listingID.String()), listings.ModerationInput{
			ListingID: listingID,
			Action:    payload.Action,
			Reason:    reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
