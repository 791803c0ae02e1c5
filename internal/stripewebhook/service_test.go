package stripewebhook

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/dbtest"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

func newDBService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	lifecycle, err := listings.NewLifecycle(db.NewFromConn(conn), listings.NewRepository(conn),
		outbox.NewWriter(outbox.NewRepository(conn), logger.Nop()), logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Listings: lifecycle, Logger: logger.Nop()})
	require.NoError(t, err)
	return svc, conn
}

func reload(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Listing {
	t.Helper()
	var out models.Listing
	require.NoError(t, conn.Where("id = ?", id).First(&out).Error)
	return out
}

func TestCompletedEventMarksSoldOnce(t *testing.T) {
	svc, conn := newDBService(t)
	ctx := context.Background()
	seller := dbtest.MustCreateSeller(t, conn, "acct_1")
	listing := dbtest.MustCreateListing(t, conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusReserved), dbtest.WithSession("cs_1"))

	event := payments.Event{ID: "evt_1", Type: payments.EventCheckoutCompleted, ListingID: listing.ID.String(), SessionID: "cs_1"}
	outcome, err := svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	outcome, err = svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)

	stored := reload(t, conn, listing.ID)
	assert.Equal(t, enums.ListingStatusSold, stored.Status)
	require.NotNil(t, stored.SoldAt)

	var sold int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventListingSold).Count(&sold).Error)
	assert.Equal(t, int64(1), sold)
}

func TestCompletedEventFallsBackToSessionID(t *testing.T) {
	svc, conn := newDBService(t)
	seller := dbtest.MustCreateSeller(t, conn, "acct_1")
	listing := dbtest.MustCreateListing(t, conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusReserved), dbtest.WithSession("cs_fallback"))

	outcome, err := svc.HandleEvent(context.Background(), payments.Event{
		ID: "evt_2", Type: payments.EventCheckoutCompleted, ListingID: "not-a-uuid", SessionID: "cs_fallback",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, enums.ListingStatusSold, reload(t, conn, listing.ID).Status)
}

func TestExpiredEventReleasesReservation(t *testing.T) {
	svc, conn := newDBService(t)
	seller := dbtest.MustCreateSeller(t, conn, "acct_1")
	listing := dbtest.MustCreateListing(t, conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusReserved), dbtest.WithSession("cs_3"))

	outcome, err := svc.HandleEvent(context.Background(), payments.Event{
		ID: "evt_3", Type: payments.EventCheckoutExpired, SessionID: "cs_3",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	stored := reload(t, conn, listing.ID)
	assert.Equal(t, enums.ListingStatusActive, stored.Status)
	assert.Nil(t, stored.CheckoutSessionID)
}

func TestExpiredOldSessionKeepsNewerReservation(t *testing.T) {
	svc, conn := newDBService(t)
	seller := dbtest.MustCreateSeller(t, conn, "acct_1")
	listing := dbtest.MustCreateListing(t, conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusReserved), dbtest.WithSession("cs_new"))

	outcome, err := svc.HandleEvent(context.Background(), payments.Event{
		ID: "evt_old", Type: payments.EventCheckoutExpired, ListingID: listing.ID.String(), SessionID: "cs_old",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)

	stored := reload(t, conn, listing.ID)
	assert.Equal(t, enums.ListingStatusReserved, stored.Status)
	require.NotNil(t, stored.CheckoutSessionID)
	assert.Equal(t, "cs_new", *stored.CheckoutSessionID)
}

func TestFailedPaymentDoesNotReopenSoldListing(t *testing.T) {
	svc, conn := newDBService(t)
	seller := dbtest.MustCreateSeller(t, conn, "acct_1")
	listing := dbtest.MustCreateListing(t, conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusSold), dbtest.WithSession("cs_4"))

	outcome, err := svc.HandleEvent(context.Background(), payments.Event{
		ID: "evt_4", Type: payments.EventCheckoutAsyncPaymentFailed, ListingID: listing.ID.String(), SessionID: "cs_4",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)
	assert.Equal(t, enums.ListingStatusSold, reload(t, conn, listing.ID).Status)
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	svc, _ := newDBService(t)
	outcome, err := svc.HandleEvent(context.Background(), payments.Event{ID: "evt_5", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = svc.HandleEvent(context.Background(), payments.Event{ID: "evt_6", Type: payments.EventCheckoutCompleted})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

type failingReconciler struct{}

func (failingReconciler) MarkSold(context.Context, listings.Ref) (bool, error) {
	return false, errors.New("connection reset")
}

func (failingReconciler) Release(context.Context, listings.Ref, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestStoreErrorsPropagate(t *testing.T) {
	svc, err := NewService(ServiceParams{Listings: failingReconciler{}})
	require.NoError(t, err)

	outcome, err := svc.HandleEvent(context.Background(), payments.Event{
		ID: "evt_7", Type: payments.EventCheckoutCompleted, SessionID: "cs_7",
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresReconciler(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
