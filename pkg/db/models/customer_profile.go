package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerProfile is an email-keyed buyer identity.
type CustomerProfile struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email          string    `gorm:"column:email;not null;uniqueIndex:customer_profiles_email_key"`
	FullName       *string   `gorm:"column:full_name"`
	Phone          *string   `gorm:"column:phone"`
	MarketingOptIn bool      `gorm:"column:marketing_opt_in;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomerProfile) TableName() string { return "customer_profiles" }

func (c *CustomerProfile) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
