package migration

import (
	"strings"

	"github.com/smallbiznis/creditdesk/internal/config"
	pkgdb "github.com/smallbiznis/creditdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if strings.EqualFold(strings.TrimSpace(cfg.DBType), pkgdb.TypePostgres) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("postgres migrations applied")
			return nil
		}

		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema auto-migrated", zap.String("dialect", cfg.DBType))
		return nil
	}),
)
