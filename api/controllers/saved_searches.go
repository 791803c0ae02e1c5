package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/savedsearches"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type createSavedSearchRequest struct {
	CustomerEmail string   `json:"customer_email" validate:"required,email"`
	Search        string   `json:"search" validate:"max=120"`
	Brand         string   `json:"brand" validate:"max=80"`
	Size          string   `json:"size" validate:"max=40"`
	Condition     string   `json:"condition" validate:"max=60"`
	MinPrice      *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice      *float64 `json:"max_price" validate:"omitempty,gte=0"`
	Sort          string   `json:"sort"`
	NotifyEmail   *bool    `json:"notify_email"`
}

type deleteSavedSearchRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	SavedSearchID string `json:"saved_search_id"`
}

// SavedSearchesList returns a customer's saved searches.
func SavedSearchesList(svc savedsearches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "saved searches service unavailable"))
			return
		}

		list, err := svc.List(ctx,
			validators.SanitizeEmail(validators.QueryString(r, "customer_email")),
			validators.QueryString(r, "limit"),
			validators.QueryString(r, "offset"),
		)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func SavedSearchesCreate(svc savedsearches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "saved searches service unavailable"))
			return
		}

		var payload createSavedSearchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		search, err := svc.Create(ctx, savedsearches.CreateInput{
			CustomerEmail: validators.SanitizeEmail(payload.CustomerEmail),
			SearchQuery:   payload.Search,
			Brand:         payload.Brand,
			Size:          payload.Size,
			Condition:     payload.Condition,
			Sort:          payload.Sort,
			NotifyEmail:   payload.NotifyEmail,
			MinPrice:      payload.MinPrice,
			MaxPrice:      payload.MaxPrice,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, search)
	}
}

func SavedSearchesDelete(svc savedsearches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "saved searches service unavailable"))
			return
		}

		payload := deleteSavedSearchRequest{
			CustomerEmail: validators.QueryString(r, "customer_email"),
			SavedSearchID: validators.QueryString(r, "saved_search_id"),
		}
		if payload.CustomerEmail == "" && payload.SavedSearchID == "" {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		id, err := validators.ParseUUID(payload.SavedSearchID, "saved_search_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Delete(ctx, validators.SanitizeEmail(payload.CustomerEmail), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
