package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

type recordingExpirer struct {
	cutoff time.Time
	limit  int
	err    error
}

func (r *recordingExpirer) ExpireBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	r.cutoff = cutoff
	r.limit = limit
	return 3, r.err
}

func TestOfferExpiryJobUsesTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &recordingExpirer{}
	jobIface, err := NewOfferExpiryJob(OfferExpiryJobParams{Logger: logger.Nop(), Offers: expirer, TTL: 48 * time.Hour})
	require.NoError(t, err)
	job := jobIface.(*offerExpiryJob)
	job.now = func() time.Time { return now }

	expired, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, expired)
	assert.Equal(t, now.Add(-48*time.Hour), expirer.cutoff)
	assert.Equal(t, defaultExpiryBatch, expirer.limit)
}

func TestOfferExpiryJobDefaultsAndErrors(t *testing.T) {
	expirer := &recordingExpirer{err: errors.New("boom")}
	jobIface, err := NewOfferExpiryJob(OfferExpiryJobParams{Logger: logger.Nop(), Offers: expirer})
	require.NoError(t, err)
	assert.Equal(t, defaultOfferTTL, jobIface.(*offerExpiryJob).ttl)
	expired, err := jobIface.Run(context.Background())
	assert.Error(t, err)
	assert.Zero(t, expired)
}
