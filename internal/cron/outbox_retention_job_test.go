package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/dbtest"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
)

func seedOutboxRow(t *testing.T, conn *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) {
	t.Helper()
	row := models.OutboxEvent{
		EventType:     enums.EventListingSold,
		AggregateType: enums.AggregateListing,
		AggregateID:   dbtest.MustCreateCustomer(t, conn).ID,
		Payload:       datatypes.JSON(`{}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, conn.Create(&row).Error)
}

func TestOutboxRetentionJobSweepsPublishedAndParkedRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	oldPublished := now.Add(-45 * day)
	freshPublished := now.Add(-2 * day)

	seedOutboxRow(t, conn, oldPublished, &oldPublished, 1)     // swept
	seedOutboxRow(t, conn, freshPublished, &freshPublished, 1) // kept
	seedOutboxRow(t, conn, now.Add(-120*day), nil, 10)         // parked and old: swept
	seedOutboxRow(t, conn, now.Add(-40*day), nil, 10)          // parked but inside window
	seedOutboxRow(t, conn, now.Add(-120*day), nil, 3)          // still retrying

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.Nop(),
		DB:          db.NewFromConn(conn),
		Repository:  outbox.NewRepository(conn),
		MaxAttempts: 10,
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 6*time.Hour, job.Every())

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(3), remaining)
}

func TestOutboxRetentionJobRequiresDeps(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db runner required")
	assert.Contains(t, err.Error(), "outbox repository required")
}
