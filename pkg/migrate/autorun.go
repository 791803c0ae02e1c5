package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at boot, but only in dev with the
// auto-migrate flag on. Goose files target postgres; the sqlite driver gets
// a GORM AutoMigrate of the model set instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	mode := "goose"
	if cfg.FeatureFlags.UseSQLite {
		mode = "automigrate"
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "mode": mode})
	started := time.Now()

	var err error
	switch mode {
	case "automigrate":
		err = client.DB().WithContext(ctx).AutoMigrate(models.All()...)
	default:
		sqlDB, dbErr := client.DB().DB()
		if dbErr != nil {
			return fmt.Errorf("extracting sql.DB: %w", dbErr)
		}
		err = Apply(ctx, sqlDB, "", CommandUp, 0, nil)
	}
	if err != nil {
		return fmt.Errorf("dev migrate (%s): %w", mode, err)
	}

	logg.Info(logg.WithField(ctx, "took_ms", time.Since(started).Milliseconds()), "migrate.dev.done")
	return nil
}
