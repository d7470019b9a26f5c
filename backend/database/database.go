package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimastery/academy/backend/badges"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
)

const connectAttempts = 5

// Connect opens the configured database, retrying while the server wakes up.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.IsProduction() {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var db *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d failed, retrying... (%v)", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DBPath), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Models lists every table managed by Migrate.
var Models = []interface{}{
	&models.User{},
	&models.LoginHistory{},
	&models.Course{},
	&models.Module{},
	&models.Lesson{},
	&models.Quiz{},
	&models.Question{},
	&models.Progress{},
	&models.QuizAttempt{},
	&models.Badge{},
	&models.UserBadge{},
	&models.Certificate{},
	&models.Payment{},
	&models.Post{},
	&models.Reply{},
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// Seed creates the reference rows the application needs to run.
func Seed(ctx context.Context, db *gorm.DB) error {
	if err := badges.Seed(ctx, db); err != nil {
		return errors.Wrap(err, "seed badges")
	}
	return nil
}
