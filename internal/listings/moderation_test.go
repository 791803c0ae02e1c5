package listings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/dbtest"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
)

func TestDecideApproveWithoutMediaLeavesListingUntouched(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID,
		dbtest.WithModeration(enums.ModerationPending), dbtest.WithMedia())

	_, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "approve"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	reloaded := f.reload(t, listing)
	assert.Equal(t, enums.ModerationPending, reloaded.ModerationStatus)
	assert.Empty(t, reloaded.ApprovedMediaURLs)
	assert.Nil(t, reloaded.ModeratedAt)
	assert.Equal(t, int64(0), f.countRows(t, &models.OutboxEvent{}, "1 = 1"))
}

func TestDecideApprovePublishesMedia(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID,
		dbtest.WithModeration(enums.ModerationPending),
		dbtest.WithMedia("https://cdn.example.com/front.jpg", "ftp://nope", "https://cdn.example.com/back.jpg"))

	dto, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "approve", Reason: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, enums.ModerationApproved, dto.ModerationStatus)
	assert.Equal(t, "https://cdn.example.com/front.jpg", dto.ImageURL)

	reloaded := f.reload(t, listing)
	assert.Equal(t, enums.ListingStatusActive, reloaded.Status)
	assert.Len(t, reloaded.ApprovedMediaURLs, 2)
	assert.Equal(t, "https://cdn.example.com/front.jpg", reloaded.ApprovedMediaURLs.First())
	require.NotNil(t, reloaded.ModerationNotes)
	assert.Equal(t, "looks good", *reloaded.ModerationNotes)
	assert.Equal(t, int64(1), f.countRows(t, &models.OutboxEvent{}, "event_type = ?", enums.EventListingModerated))
}

func TestDecideApproveFallsBackToImageURL(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID,
		dbtest.WithModeration(enums.ModerationPending), dbtest.WithMedia())
	require.NoError(t, f.conn.Model(listing).Update("image_url", "https://cdn.example.com/legacy.jpg").Error)

	dto, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/legacy.jpg", dto.ImageURL)
}

func TestDecideRejectArchivesActiveListing(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID)

	_, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "reject"})
	require.NoError(t, err)

	reloaded := f.reload(t, listing)
	assert.Equal(t, enums.ListingStatusArchived, reloaded.Status)
	assert.Equal(t, enums.ModerationRejected, reloaded.ModerationStatus)
	require.NotNil(t, reloaded.ModerationNotes)
	assert.Equal(t, defaultRejectReason, *reloaded.ModerationNotes)
}

func TestDecideRejectClearsReservation(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID,
		dbtest.WithStatus(enums.ListingStatusReserved), dbtest.WithSession("cs_held"))
	require.NoError(t, f.conn.Model(&models.Listing{}).Where("id = ?", listing.ID).Update("reserved_at", time.Now().UTC()).Error)

	_, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "reject"})
	require.NoError(t, err)

	reloaded := f.reload(t, listing)
	assert.Equal(t, enums.ListingStatusArchived, reloaded.Status)
	assert.Nil(t, reloaded.CheckoutSessionID)
	assert.Nil(t, reloaded.ReservedAt)
}

func TestDecideRejectKeepsSoldListingSold(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID, dbtest.WithStatus(enums.ListingStatusSold))

	_, err := f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "reject", Reason: "counterfeit"})
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusSold, f.reload(t, listing).Status)
}

func TestDecideValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.moderator.Decide(context.Background(), ModerationInput{Action: "approve"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	seller := dbtest.MustCreateSeller(t, f.conn, "")
	listing := dbtest.MustCreateListing(t, f.conn, seller.ID)
	_, err = f.moderator.Decide(context.Background(), ModerationInput{ListingID: listing.ID, Action: "maybe"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueueDefaultsToPending(t *testing.T) {
	f := newFixture(t)
	seller := dbtest.MustCreateSeller(t, f.conn, "acct_1")
	pending := dbtest.MustCreateListing(t, f.conn, seller.ID, dbtest.WithModeration(enums.ModerationPending))
	dbtest.MustCreateListing(t, f.conn, seller.ID)

	rows, err := f.moderator.Queue(context.Background(), "", "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)
	assert.Equal(t, seller.Email, rows[0].SellerEmail)

	all, err := f.moderator.Queue(context.Background(), "all", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.moderator.Queue(context.Background(), "bogus", "", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
