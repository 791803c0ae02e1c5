package savedsearches

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
)

// CreateInput is a raw saved-search submission. Prices are major units.
type CreateInput struct {
	CustomerEmail string
	SearchQuery   string
	Brand         string
	Size          string
	Condition     string
	Sort          string
	NotifyEmail   *bool
	MinPrice      *float64
	MaxPrice      *float64
}

type SavedSearchDTO struct {
	ID            uuid.UUID             `json:"id"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	SearchQuery   *string               `json:"search_query"`
	Brand         *string               `json:"brand"`
	Size          *string               `json:"size"`
	Condition     *string               `json:"condition"`
	MinPriceCents *int64                `json:"min_price_cents"`
	MaxPriceCents *int64                `json:"max_price_cents"`
	MinPrice      *float64              `json:"min_price"`
	MaxPrice      *float64              `json:"max_price"`
	SortKey       enums.SavedSearchSort `json:"sort_key"`
	NotifyEmail   bool                  `json:"notify_email"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListDTO struct {
	Count    int              `json:"count"`
	Searches []SavedSearchDTO `json:"searches"`
}

type RemoveResult struct {
	Removed bool      `json:"removed"`
	ID      uuid.UUID `json:"id"`
}

func ToDTO(s *models.SavedSearch) SavedSearchDTO {
	return SavedSearchDTO{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		SearchQuery:   s.SearchQuery,
		Brand:         s.Brand,
		Size:          s.Size,
		Condition:     s.Condition,
		MinPriceCents: s.MinPriceCents,
		MaxPriceCents: s.MaxPriceCents,
		MinPrice:      display(s.MinPriceCents),
		MaxPrice:      display(s.MaxPriceCents),
		SortKey:       s.SortKey,
		NotifyEmail:   s.NotifyEmail,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func display(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := money.Display(*cents)
	return &v
}
