package listings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(enums.ListingStatusActive, enums.ListingStatusReserved))
	assert.True(t, CanTransition(enums.ListingStatusReserved, enums.ListingStatusSold))
	assert.True(t, CanTransition(enums.ListingStatusActive, enums.ListingStatusSold))
	assert.True(t, CanTransition(enums.ListingStatusReserved, enums.ListingStatusActive))
	assert.True(t, CanTransition(enums.ListingStatusArchived, enums.ListingStatusActive))

	assert.False(t, CanTransition(enums.ListingStatusReserved, enums.ListingStatusReserved))
	assert.False(t, CanTransition(enums.ListingStatusSold, enums.ListingStatusActive))
	assert.False(t, CanTransition(enums.ListingStatusArchived, enums.ListingStatusSold))
}

func TestGuardsDerivedFromTransitions(t *testing.T) {
	assert.Equal(t, []enums.ListingStatus{enums.ListingStatusActive}, Sources(enums.ListingStatusReserved))
	assert.Equal(t, []enums.ListingStatus{enums.ListingStatusActive, enums.ListingStatusReserved}, Sources(enums.ListingStatusSold))
	assert.Equal(t, []enums.ListingStatus{enums.ListingStatusReserved}, Sources(enums.ListingStatusActive, enums.ListingStatusReserved))

	assert.ElementsMatch(t, []enums.ListingStatus{enums.ListingStatusArchived, enums.ListingStatusActive}, OwnerFrom(enums.ListingStatusActive))
	assert.ElementsMatch(t, []enums.ListingStatus{enums.ListingStatusActive, enums.ListingStatusArchived}, OwnerFrom(enums.ListingStatusArchived))
}

func TestCheckGuardRejectsMissingEdges(t *testing.T) {
	assert.NoError(t, checkGuard(Sources(enums.ListingStatusSold), enums.ListingStatusSold))
	assert.NoError(t, checkGuard([]enums.ListingStatus{enums.ListingStatusArchived}, enums.ListingStatusArchived))
	assert.ErrorIs(t, checkGuard([]enums.ListingStatus{enums.ListingStatusSold}, enums.ListingStatusActive), ErrInvalidTransition)
	assert.ErrorIs(t, checkGuard([]enums.ListingStatus{enums.ListingStatusActive, enums.ListingStatusArchived}, enums.ListingStatusReserved), ErrInvalidTransition)
}

func TestCheckPurchasable(t *testing.T) {
	assert.NoError(t, CheckPurchasable(enums.ListingStatusActive, enums.ModerationApproved))
	assert.ErrorIs(t, CheckPurchasable(enums.ListingStatusActive, enums.ModerationPending), ErrNotPurchasable)
	assert.ErrorIs(t, CheckPurchasable(enums.ListingStatusReserved, enums.ModerationApproved), ErrNotPurchasable)
}

func TestApprovalMedia(t *testing.T) {
	approved, primary, err := ApprovalMedia(dbtypes.URLList{"ftp://bad", "https://a/1.jpg", "https://a/2.jpg", "https://a/1.jpg"}, "")
	require.NoError(t, err)
	assert.Equal(t, dbtypes.URLList{"https://a/1.jpg", "https://a/2.jpg"}, approved)
	assert.Equal(t, "https://a/1.jpg", primary)

	approved, primary, err = ApprovalMedia(dbtypes.URLList{}, "https://legacy/img.png")
	require.NoError(t, err)
	assert.Equal(t, dbtypes.URLList{"https://legacy/img.png"}, approved)
	assert.Equal(t, "https://legacy/img.png", primary)

	_, _, err = ApprovalMedia(dbtypes.URLList{}, "")
	assert.ErrorIs(t, err, ErrNoMedia)
	_, _, err = ApprovalMedia(nil, "not-a-url")
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestStatusAfterModeration(t *testing.T) {
	assert.Equal(t, enums.ListingStatusActive, StatusAfterApproval(enums.ListingStatusActive))
	assert.Equal(t, enums.ListingStatusSold, StatusAfterApproval(enums.ListingStatusSold))
	assert.Equal(t, enums.ListingStatusReserved, StatusAfterApproval(enums.ListingStatusReserved))

	assert.Equal(t, enums.ListingStatusArchived, StatusAfterRejection(enums.ListingStatusActive))
	assert.Equal(t, enums.ListingStatusArchived, StatusAfterRejection(enums.ListingStatusReserved))
	assert.Equal(t, enums.ListingStatusSold, StatusAfterRejection(enums.ListingStatusSold))
}
