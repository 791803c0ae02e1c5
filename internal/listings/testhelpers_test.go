package listings

import (
	"testing"

	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/dbtest"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
)

type fixture struct {
	conn      *gorm.DB
	client    *db.Client
	repo      Repository
	lifecycle *Lifecycle
	service   Service
	moderator ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	repo := NewRepository(conn)
	emitter := outbox.NewWriter(outbox.NewRepository(conn), logger.Nop())

	lifecycle, err := NewLifecycle(client, repo, emitter, logger.Nop())
	if err != nil {
		t.Fatalf("lifecycle: %v", err)
	}
	sellers, err := profiles.NewService(profiles.NewRepository(conn), nil, logger.Nop())
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	svc, err := NewService(client, repo, sellers, logger.Nop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	moderator, err := NewModerationService(client, repo, emitter, logger.Nop())
	if err != nil {
		t.Fatalf("moderation: %v", err)
	}
	return &fixture{conn: conn, client: client, repo: repo, lifecycle: lifecycle, service: svc, moderator: moderator}
}

func (f *fixture) reload(t *testing.T, listing *models.Listing) *models.Listing {
	t.Helper()
	var out models.Listing
	if err := f.conn.Where("id = ?", listing.ID).First(&out).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	return &out
}

func (f *fixture) countRows(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.conn.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
