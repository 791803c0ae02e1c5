package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

type SavedSearch struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index:saved_searches_customer_id_idx"`
	SearchQuery   *string               `gorm:"column:search_query"`
	Brand         *string               `gorm:"column:brand"`
	Size          *string               `gorm:"column:size"`
	Condition     *string               `gorm:"column:condition"`
	MinPriceCents *int64                `gorm:"column:min_price_cents"`
	MaxPriceCents *int64                `gorm:"column:max_price_cents"`
	SortKey       enums.SavedSearchSort `gorm:"column:sort_key;type:varchar(16);not null;default:'newest'"`
	NotifyEmail   bool                  `gorm:"column:notify_email;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (SavedSearch) TableName() string { return "saved_searches" }

func (s *SavedSearch) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
