package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlement/internal/models"
	cfgpkg "github.com/fatflowers/entitlement/pkg/config"
	gormzap "github.com/fatflowers/entitlement/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormzap.New(l, cfg.Database.SlowThreshold, cfg.Database.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// partialIndexes cannot be expressed as gorm tags because their predicates
// contain commas.
var partialIndexes = []string{
	// at most one live subscription per user
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_user_subscription_live ON user_subscription (user_id) WHERE status IN ('trial', 'active')`,
	// one trial per account
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_user_subscription_trial ON user_subscription (user_id) WHERE is_trial`,
	// arena addressing: (user, post type) resolves to one live counter
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_subscription_usage_live ON subscription_usage (user_id, post_type_id) WHERE live`,
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.UserSubscription{},
		&models.SubscriptionUsage{},
		&models.Listing{},
		&models.PackageHistory{},
		&models.PurchaseEventLog{},
		&models.AppliedPurchaseEvent{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			l.Errorf("create index failed: %v", err)
			return err
		}
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
