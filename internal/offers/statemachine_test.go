package offers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

func int64Ptr(v int64) *int64 { return &v }

func TestApplyAcceptUsesCounterWhenPresent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		offer models.Offer
		want  int64
	}{
		{"original amount", models.Offer{Status: enums.OfferStatusPending, AmountCents: 5000}, 5000},
		{"countered amount", models.Offer{Status: enums.OfferStatusCountered, AmountCents: 5000, CounterAmountCents: int64Ptr(6000)}, 6000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step, err := Apply(&tc.offer, enums.OfferActionAccept, 0, "", now)
			require.NoError(t, err)
			assert.Equal(t, enums.OfferStatusAccepted, step.To)
			assert.Equal(t, tc.want, step.Updates["final_amount_cents"])
			assert.Equal(t, now, step.Updates["resolved_at"])
		})
	}
}

func TestApplyCounterStaysOpen(t *testing.T) {
	offer := models.Offer{Status: enums.OfferStatusPending, AmountCents: 5000}
	step, err := Apply(&offer, enums.OfferActionCounter, 6000, "meet me halfway", time.Now())
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusCountered, step.To)
	assert.False(t, step.Resolved())
	assert.NotContains(t, step.Updates, "resolved_at")
	assert.Equal(t, int64(6000), step.Updates["counter_amount_cents"])

	_, err = Apply(&offer, enums.OfferActionCounter, 0, "", time.Now())
	assert.ErrorIs(t, err, ErrCounterAmount)
}

func TestApplyRejectDefaultsMessage(t *testing.T) {
	offer := models.Offer{Status: enums.OfferStatusCountered, AmountCents: 5000}
	step, err := Apply(&offer, enums.OfferActionReject, 0, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, defaultRejectMessage, step.Updates["seller_message"])
	assert.True(t, step.Resolved())
}

func TestApplyAcceptCounterRequiresCounter(t *testing.T) {
	pending := models.Offer{Status: enums.OfferStatusPending, AmountCents: 5000}
	_, err := Apply(&pending, enums.OfferActionAcceptCounter, 0, "", time.Now())
	assert.ErrorIs(t, err, ErrNotCountered)

	countered := models.Offer{Status: enums.OfferStatusCountered, AmountCents: 5000, CounterAmountCents: int64Ptr(6000)}
	step, err := Apply(&countered, enums.OfferActionAcceptCounter, 0, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(6000), step.Updates["final_amount_cents"])
}

func TestApplyRejectsEveryActionOnTerminalOffer(t *testing.T) {
	terminal := []enums.OfferStatus{
		enums.OfferStatusAccepted,
		enums.OfferStatusRejected,
		enums.OfferStatusCancelled,
		enums.OfferStatusExpired,
	}
	actions := []enums.OfferAction{
		enums.OfferActionAccept,
		enums.OfferActionReject,
		enums.OfferActionCounter,
		enums.OfferActionCancel,
		enums.OfferActionAcceptCounter,
	}
	for _, status := range terminal {
		for _, action := range actions {
			offer := models.Offer{Status: status, AmountCents: 5000, CounterAmountCents: int64Ptr(6000)}
			_, err := Apply(&offer, action, 7000, "", time.Now())
			assert.ErrorIs(t, err, ErrTerminal, "%s/%s", status, action)
		}
		_, err := Expire(&models.Offer{Status: status}, time.Now())
		assert.ErrorIs(t, err, ErrTerminal)
	}
}

func TestDisplayCents(t *testing.T) {
	offer := models.Offer{AmountCents: 5000}
	assert.Equal(t, int64(5000), DisplayCents(&offer))
	offer.CounterAmountCents = int64Ptr(6000)
	assert.Equal(t, int64(6000), DisplayCents(&offer))
	offer.FinalAmountCents = int64Ptr(5500)
	assert.Equal(t, int64(5500), DisplayCents(&offer))
}
