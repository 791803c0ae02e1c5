package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type startOnboardingRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=120"`
	Origin      string `json:"origin"`
}

type accountStatusRequest struct {
	Email           string `json:"email" validate:"omitempty,email"`
	StripeAccountID string `json:"stripe_account_id" validate:"max=255"`
}

type accountStatusResponse struct {
	SellerID           uuid.UUID `json:"seller_id"`
	Email              string    `json:"email"`
	AccountID          *string   `json:"account_id"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	ChargesEnabled     bool      `json:"charges_enabled"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	DetailsSubmitted   bool      `json:"details_submitted"`
	RequirementsDue    []string  `json:"requirements_due"`
}

type customerSignupRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"max=40"`
	FullName       string `json:"full_name" validate:"max=120"`
	MarketingOptIn bool   `json:"marketing_opt_in"`
}

type customerSignupResponse struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone"`
	FullName       *string   `json:"full_name"`
	MarketingOptIn bool      `json:"marketing_opt_in"`
	Created        bool      `json:"created"`
}

// StartOnboarding links a seller to a connected account and returns the
// hosted onboarding URL.
func StartOnboarding(svc profiles.Service, publicOrigin string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}

		var payload startOnboardingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.StartOnboarding(logg.WithActor(ctx, "seller", payload.Email), profiles.OnboardingInput{
			Email:       payload.Email,
			DisplayName: payload.DisplayName,
			Origin:      checkout.ResolveOrigin(payload.Origin, publicOrigin, r.Header, r.Host),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AccountStatus refreshes and returns a seller's payout readiness.
func AccountStatus(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}

		var payload accountStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.AccountStatus(ctx, profiles.AccountStatusInput{
			Email:     payload.Email,
			AccountID: payload.StripeAccountID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		seller := result.Seller
		resp := accountStatusResponse{
			SellerID:           seller.ID,
			Email:              seller.Email,
			AccountID:          seller.StripeAccountID,
			OnboardingComplete: seller.OnboardingComplete,
			ChargesEnabled:     seller.ChargesEnabled,
			PayoutsEnabled:     seller.PayoutsEnabled,
			DetailsSubmitted:   seller.DetailsSubmitted,
			RequirementsDue:    []string{},
		}
		if result.Account != nil {
			if result.Account.AccountID != "" {
				accountID := result.Account.AccountID
				resp.AccountID = &accountID
			}
			if len(result.Account.RequirementsDue) > 0 {
				resp.RequirementsDue = result.Account.RequirementsDue
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

// CustomerSignup creates or updates a customer profile keyed by email.
func CustomerSignup(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}

		var payload customerSignupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.SignupCustomer(ctx, profiles.CustomerSignupInput{
			Email:          payload.Email,
			Phone:          payload.Phone,
			FullName:       payload.FullName,
			MarketingOptIn: payload.MarketingOptIn,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer := result.Customer
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, customerSignupResponse{
			CustomerID:     customer.ID,
			Email:          customer.Email,
			Phone:          customer.Phone,
			FullName:       customer.FullName,
			MarketingOptIn: customer.MarketingOptIn,
			Created:        result.Created,
		})
	}
}
