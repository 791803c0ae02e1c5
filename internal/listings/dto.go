package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
)

// ListFilter narrows a listing query. A nil SellerID restricts results to
// moderation-approved listings.
type ListFilter struct {
	Status   *enums.ListingStatus
	SellerID *uuid.UUID
	IsNew    *bool
	Search   string
}

// ListQuery is the raw catalogue request.
type ListQuery struct {
	Status      string
	Search      string
	Condition   string
	SellerEmail string
	Limit       string
	Offset      string
}

// CreateInput is a seller listing submission. PriceCents wins over Price.
type CreateInput struct {
	SellerEmail string
	Title       string
	Brand       string
	Description string
	Size        string
	Condition   string
	IsNew       bool
	Currency    string
	ImageURL    string
	MediaURLs   []string
	Price       *float64
	PriceCents  *int64
}

type OwnerStatusInput struct {
	ListingID   uuid.UUID
	SellerEmail string
	Status      string
}

// Ref locates a listing either by id or by its attached checkout session.
type Ref struct {
	ID        uuid.UUID
	SessionID string
}

// IsZero reports whether the reference carries neither identifier.
func (r Ref) IsZero() bool {
	return r.ID == uuid.Nil && r.SessionID == ""
}

// ListingDTO is the wire representation of a listing.
type ListingDTO struct {
	ID                uuid.UUID              `json:"id"`
	SellerID          uuid.UUID              `json:"seller_id"`
	Title             string                 `json:"title"`
	Brand             string                 `json:"brand"`
	Description       string                 `json:"description"`
	Size              string                 `json:"size"`
	Condition         string                 `json:"condition"`
	IsNew             bool                   `json:"is_new"`
	PriceCents        int64                  `json:"price_cents"`
	Price             float64                `json:"price"`
	Currency          string                 `json:"currency"`
	ImageURL          string                 `json:"image_url"`
	MediaURLs         dbtypes.URLList        `json:"media_urls"`
	ApprovedMediaURLs dbtypes.URLList        `json:"approved_media_urls"`
	Status            enums.ListingStatus    `json:"status"`
	ModerationStatus  enums.ModerationStatus `json:"moderation_status"`
	ModerationNotes   *string                `json:"moderation_notes,omitempty"`
	SellerEmail       string                 `json:"seller_email,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ToDTO maps a listing row to its wire shape. ImageURL is the primary image.
func ToDTO(l *models.Listing) ListingDTO {
	dto := ListingDTO{
		ID:                l.ID,
		SellerID:          l.SellerID,
		Title:             l.Title,
		Brand:             l.Brand,
		Description:       l.Description,
		Size:              l.Size,
		Condition:         l.Condition,
		IsNew:             l.IsNew,
		PriceCents:        l.PriceCents,
		Price:             money.Display(l.PriceCents),
		Currency:          l.Currency,
		ImageURL:          l.PrimaryImage(),
		MediaURLs:         nonNil(l.MediaURLs),
		ApprovedMediaURLs: nonNil(l.ApprovedMediaURLs),
		Status:            l.Status,
		ModerationStatus:  l.ModerationStatus,
		ModerationNotes:   l.ModerationNotes,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.Seller != nil {
		dto.SellerEmail = l.Seller.Email
	}
	return dto
}

// Summary is the compact listing view embedded in offers and wishlists.
type Summary struct {
	ID               uuid.UUID              `json:"id"`
	Title            string                 `json:"title"`
	Brand            string                 `json:"brand"`
	PriceCents       int64                  `json:"price_cents"`
	Currency         string                 `json:"currency"`
	ImageURL         string                 `json:"image_url"`
	Status           enums.ListingStatus    `json:"status"`
	ModerationStatus enums.ModerationStatus `json:"moderation_status"`
}

func ToSummary(l *models.Listing) *Summary {
	if l == nil {
		return nil
	}
	return &Summary{
		ID:               l.ID,
		Title:            l.Title,
		Brand:            l.Brand,
		PriceCents:       l.PriceCents,
		Currency:         l.Currency,
		ImageURL:         l.PrimaryImage(),
		Status:           l.Status,
		ModerationStatus: l.ModerationStatus,
	}
}

func nonNil(l dbtypes.URLList) dbtypes.URLList {
	if l == nil {
		return dbtypes.URLList{}
	}
	return l
}
