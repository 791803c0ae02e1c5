package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingStatusEvent is the append-only audit trail of listing transitions.
type ListingStatusEvent struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index:listing_status_events_listing_idx"`
	EventType  string         `gorm:"column:event_type;type:varchar(32);not null"`
	FromStatus string         `gorm:"column:from_status;type:varchar(16)"`
	ToStatus   string         `gorm:"column:to_status;type:varchar(16)"`
	Actor      string         `gorm:"column:actor;type:varchar(32);not null"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (ListingStatusEvent) TableName() string { return "listing_status_events" }

func (e *ListingStatusEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
