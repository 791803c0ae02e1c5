package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
)

// ItemDTO is a saved listing. Listing is nil when the row no longer exists.
type ItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	ListingID uuid.UUID            `json:"listing_id"`
	CreatedAt time.Time            `json:"created_at"`
	Listing   *listings.ListingDTO `json:"listing"`
}

// ListDTO is the customer's wishlist, newest first.
type ListDTO struct {
	Count int       `json:"count"`
	Items []ItemDTO `json:"items"`
}

// AddResult reports whether the listing was already saved.
type AddResult struct {
	Exists bool    `json:"exists"`
	Item   ItemDTO `json:"item"`
}

type RemoveResult struct {
	Removed   bool      `json:"removed"`
	ListingID uuid.UUID `json:"listing_id"`
}

func toItemDTO(item *models.WishlistItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		ListingID: item.ListingID,
		CreatedAt: item.CreatedAt,
	}
	if item.Listing != nil {
		listing := listings.ToDTO(item.Listing)
		dto.Listing = &listing
	}
	return dto
}
