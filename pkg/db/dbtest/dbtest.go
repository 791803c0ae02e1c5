// Package dbtest opens migrated in-memory sqlite databases and seeds fixtures
// for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

// Open returns a fresh database with every model migrated. A single pooled
// connection keeps concurrent writers from tripping shared-cache table locks.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:asm_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// MustCreateSeller inserts a seller, optionally with a linked payment account.
func MustCreateSeller(t *testing.T, tx *gorm.DB, accountID string) *models.SellerProfile {
	t.Helper()
	seller := &models.SellerProfile{
		Email: fmt.Sprintf("seller_%s@example.com", uuid.NewString()[:8]),
	}
	if accountID != "" {
		seller.StripeAccountID = &accountID
	}
	if err := tx.Create(seller).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return seller
}

func MustCreateCustomer(t *testing.T, tx *gorm.DB) *models.CustomerProfile {
	t.Helper()
	customer := &models.CustomerProfile{
		Email: fmt.Sprintf("customer_%s@example.com", uuid.NewString()[:8]),
	}
	if err := tx.Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

// ListingOption adjusts a fixture listing before insert.
type ListingOption func(*models.Listing)

func WithStatus(status enums.ListingStatus) ListingOption {
	return func(l *models.Listing) { l.Status = status }
}

func WithModeration(status enums.ModerationStatus) ListingOption {
	return func(l *models.Listing) { l.ModerationStatus = status }
}

func WithMedia(urls ...string) ListingOption {
	return func(l *models.Listing) { l.MediaURLs = dbtypes.URLList(urls) }
}

func WithSession(sessionID string) ListingOption {
	return func(l *models.Listing) { l.CheckoutSessionID = &sessionID }
}

// MustCreateListing inserts an active, approved listing priced at 10000 cents
// unless options say otherwise.
func MustCreateListing(t *testing.T, tx *gorm.DB, sellerID uuid.UUID, opts ...ListingOption) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		SellerID:         sellerID,
		Title:            "Vintage trench coat",
		Brand:            "Burberry",
		PriceCents:       10000,
		Currency:         "eur",
		Status:           enums.ListingStatusActive,
		ModerationStatus: enums.ModerationApproved,
		MediaURLs:        dbtypes.URLList{"https://cdn.example.com/a.jpg"},
	}
	for _, opt := range opts {
		opt(listing)
	}
	if err := tx.Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

// Fixtures is the common seller, customer and listing trio most service tests start from.
type Fixtures struct {
	Conn     *gorm.DB
	Seller   *models.SellerProfile
	Customer *models.CustomerProfile
	Listing  *models.Listing
}

// Seed inserts a seller with a payment account, a customer and one purchasable listing.
func Seed(t *testing.T, conn *gorm.DB) *Fixtures {
	t.Helper()
	seller := MustCreateSeller(t, conn, "acct_"+uuid.NewString()[:8])
	return &Fixtures{
		Conn:     conn,
		Seller:   seller,
		Customer: MustCreateCustomer(t, conn),
		Listing:  MustCreateListing(t, conn, seller.ID),
	}
}
