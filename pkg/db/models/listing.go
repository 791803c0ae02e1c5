package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

// Listing is a single item for sale. Status and ModerationStatus move independently;
// CheckoutSessionID is only meaningful while Status is reserved.
type Listing struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SellerID          uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index:listings_seller_id_idx"`
	Title             string                 `gorm:"column:title;not null"`
	Brand             string                 `gorm:"column:brand;not null;default:''"`
	Description       string                 `gorm:"column:description;not null;default:''"`
	Size              string                 `gorm:"column:size;not null;default:''"`
	Condition         string                 `gorm:"column:condition;not null;default:''"`
	IsNew             bool                   `gorm:"column:is_new;not null;default:false"`
	PriceCents        int64                  `gorm:"column:price_cents;not null"`
	Currency          string                 `gorm:"column:currency;not null;default:'eur'"`
	ImageURL          *string                `gorm:"column:image_url"`
	MediaURLs         dbtypes.URLList        `gorm:"column:media_urls;type:jsonb;not null;default:'[]'"`
	ApprovedMediaURLs dbtypes.URLList        `gorm:"column:approved_media_urls;type:jsonb;not null;default:'[]'"`
	Status            enums.ListingStatus    `gorm:"column:status;type:varchar(16);not null;default:'active';index:listings_status_idx"`
	ModerationStatus  enums.ModerationStatus `gorm:"column:moderation_status;type:varchar(16);not null;default:'pending';index:listings_moderation_status_idx"`
	ModerationNotes   *string                `gorm:"column:moderation_notes"`
	ModeratedAt       *time.Time             `gorm:"column:moderated_at"`
	CheckoutSessionID *string                `gorm:"column:checkout_session_id;index:listings_checkout_session_idx"`
	ReservedAt        *time.Time             `gorm:"column:reserved_at"`
	SoldAt            *time.Time             `gorm:"column:sold_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Seller *SellerProfile `gorm:"foreignKey:SellerID"`
}

func (Listing) TableName() string { return "listings" }

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.MediaURLs == nil {
		l.MediaURLs = dbtypes.URLList{}
	}
	if l.ApprovedMediaURLs == nil {
		l.ApprovedMediaURLs = dbtypes.URLList{}
	}
	return nil
}

// PrimaryImage picks the first approved media item, then the first submitted one,
// then the legacy image_url column.
func (l *Listing) PrimaryImage() string {
	if l == nil {
		return ""
	}
	if first := l.ApprovedMediaURLs.First(); first != "" {
		return first
	}
	if first := l.MediaURLs.First(); first != "" {
		return first
	}
	if l.ImageURL != nil {
		return *l.ImageURL
	}
	return ""
}
