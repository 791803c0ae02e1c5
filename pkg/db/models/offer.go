package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

// Offer is a buyer-initiated negotiation against one listing. ResolvedAt is set
// exactly when the offer reaches a terminal status; the partial unique index on
// (listing_id, customer_id) keeps at most one open offer per pair.
type Offer struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ListingID          uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index:offers_listing_id_idx;uniqueIndex:ux_offers_open_per_customer,where:resolved_at IS NULL"`
	SellerID           uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index:offers_seller_id_idx"`
	CustomerID         uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:offers_customer_id_idx;uniqueIndex:ux_offers_open_per_customer,where:resolved_at IS NULL"`
	Currency           string            `gorm:"column:currency;not null;default:'eur'"`
	AmountCents        int64             `gorm:"column:amount_cents;not null"`
	CounterAmountCents *int64            `gorm:"column:counter_amount_cents"`
	FinalAmountCents   *int64            `gorm:"column:final_amount_cents"`
	Status             enums.OfferStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index:offers_status_idx"`
	BuyerMessage       *string           `gorm:"column:buyer_message"`
	SellerMessage      *string           `gorm:"column:seller_message"`
	ResolvedAt         *time.Time        `gorm:"column:resolved_at"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Listing  *Listing         `gorm:"foreignKey:ListingID"`
	Seller   *SellerProfile   `gorm:"foreignKey:SellerID"`
	Customer *CustomerProfile `gorm:"foreignKey:CustomerID"`
}

func (Offer) TableName() string { return "offers" }

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
