package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SellerProfile is an email-keyed seller identity with its payment-provider account.
type SellerProfile struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email              string    `gorm:"column:email;not null;uniqueIndex:seller_profiles_email_key"`
	DisplayName        *string   `gorm:"column:display_name"`
	StripeAccountID    *string   `gorm:"column:stripe_account_id;uniqueIndex:seller_profiles_stripe_account_key"`
	OnboardingComplete bool      `gorm:"column:onboarding_complete;not null;default:false"`
	ChargesEnabled     bool      `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled     bool      `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted   bool      `gorm:"column:details_submitted;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerProfile) TableName() string { return "seller_profiles" }

func (s *SellerProfile) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HasPaymentAccount reports whether a connected account has been linked.
func (s *SellerProfile) HasPaymentAccount() bool {
	return s != nil && s.StripeAccountID != nil && *s.StripeAccountID != ""
}
