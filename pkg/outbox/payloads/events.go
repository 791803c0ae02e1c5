package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

// ListingReservedEvent is emitted when a checkout reserves a listing.
type ListingReservedEvent struct {
	ListingID uuid.UUID  `json:"listing_id"`
	SellerID  uuid.UUID  `json:"seller_id"`
	SessionID string     `json:"session_id,omitempty"`
	OfferID   *uuid.UUID `json:"offer_id,omitempty"`
}

// ListingReleasedEvent is emitted when a reservation is returned to active.
type ListingReleasedEvent struct {
	ListingID uuid.UUID `json:"listing_id"`
	Reason    string    `json:"reason"`
}

// ListingSoldEvent is emitted once per listing when payment completes.
type ListingSoldEvent struct {
	ListingID  uuid.UUID `json:"listing_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	SessionID  string    `json:"session_id,omitempty"`
	PriceCents int64     `json:"price_cents"`
}

// ListingModeratedEvent records an admin moderation decision.
type ListingModeratedEvent struct {
	ListingID uuid.UUID              `json:"listing_id"`
	Status    enums.ModerationStatus `json:"status"`
	Notes     string                 `json:"notes,omitempty"`
}

// OfferEvent describes an offer after creation or a transition.
type OfferEvent struct {
	OfferID     uuid.UUID         `json:"offer_id"`
	ListingID   uuid.UUID         `json:"listing_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	SellerID    uuid.UUID         `json:"seller_id"`
	Status      enums.OfferStatus `json:"status"`
	Action      string            `json:"action,omitempty"`
	AmountCents int64             `json:"amount_cents"`
	FinalCents  *int64            `json:"final_amount_cents,omitempty"`
}
