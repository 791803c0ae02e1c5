package profiles

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

type OnboardingInput struct {
	Email       string
	DisplayName string
	Origin      string
}

type OnboardingResult struct {
	URL       string    `json:"url"`
	AccountID string    `json:"account_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

type AccountStatusInput struct {
	Email     string
	AccountID string
}

// AccountStatusResult carries the seller and, when linked, the provider view.
type AccountStatusResult struct {
	Seller  *models.SellerProfile
	Account *payments.AccountStatus
}

type CustomerSignupInput struct {
	Email          string
	Phone          string
	FullName       string
	MarketingOptIn bool
}

type CustomerSignupResult struct {
	Customer *models.CustomerProfile
	Created  bool
}
