package offers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
)

// ListQuery is the raw offers lookup. One of CustomerEmail, SellerEmail or
// ListingID is required.
type ListQuery struct {
	CustomerEmail string
	SellerEmail   string
	ListingID     string
	Status        string
	Limit         string
	Offset        string
}

// CreateInput is a buyer's opening offer. AmountCents wins over Amount.
type CreateInput struct {
	CustomerEmail string
	ListingID     uuid.UUID
	Amount        *float64
	AmountCents   *int64
	Message       string
}

// ActionInput is a negotiation step. Seller actions identify with SellerEmail,
// customer actions with CustomerEmail.
type ActionInput struct {
	OfferID       uuid.UUID
	Action        string
	SellerEmail   string
	CustomerEmail string
	Counter       *float64
	CounterCents  *int64
	Message       string
}

type OfferDTO struct {
	ID            uuid.UUID         `json:"id"`
	ListingID     uuid.UUID         `json:"listing_id"`
	SellerID      uuid.UUID         `json:"seller_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	Currency      string            `json:"currency"`
	AmountCents   int64             `json:"amount_cents"`
	CounterCents  *int64            `json:"counter_amount_cents"`
	FinalCents    *int64            `json:"final_amount_cents"`
	Amount        float64           `json:"amount"`
	CounterAmount *float64          `json:"counter_amount"`
	FinalAmount   *float64          `json:"final_amount"`
	DisplayAmount float64           `json:"display_amount"`
	Status        enums.OfferStatus `json:"status"`
	BuyerMessage  *string           `json:"buyer_message"`
	SellerMessage *string           `json:"seller_message"`
	CustomerEmail *string           `json:"customer_email"`
	SellerEmail   *string           `json:"seller_email"`
	Listing       *listings.Summary `json:"listing"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ResolvedAt    *time.Time        `json:"resolved_at"`
}

func ToDTO(o *models.Offer) OfferDTO {
	dto := OfferDTO{
		ID:            o.ID,
		ListingID:     o.ListingID,
		SellerID:      o.SellerID,
		CustomerID:    o.CustomerID,
		Currency:      o.Currency,
		AmountCents:   o.AmountCents,
		CounterCents:  o.CounterAmountCents,
		FinalCents:    o.FinalAmountCents,
		Amount:        money.Display(o.AmountCents),
		CounterAmount: displayPtr(o.CounterAmountCents),
		FinalAmount:   displayPtr(o.FinalAmountCents),
		DisplayAmount: money.Display(DisplayCents(o)),
		Status:        o.Status,
		BuyerMessage:  o.BuyerMessage,
		SellerMessage: o.SellerMessage,
		Listing:       listings.ToSummary(o.Listing),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		ResolvedAt:    o.ResolvedAt,
	}
	if o.Customer != nil {
		dto.CustomerEmail = &o.Customer.Email
	}
	if o.Seller != nil {
		dto.SellerEmail = &o.Seller.Email
	}
	return dto
}

func displayPtr(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := money.Display(*cents)
	return &v
}
