package database

import (
	"embed"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pressly/goose/v3"
	"github.com/reqdrop/reqdrop/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func MigrateDB(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDb, "migrations")
}

// NewTestDatabase returns an in-memory sqlite database with the schema
// auto-migrated. The single-connection pool keeps every session on the same
// in-memory database.
func NewTestDatabase(tb testing.TB) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to init db %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to init db %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.FileRequest{},
		&models.UploadedFile{},
	); err != nil {
		tb.Fatalf("failed to migrate db %v", err)
	}

	return db
}
