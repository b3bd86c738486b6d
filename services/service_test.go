package services

import (
	"fmt"
	"testing"

	"gamification-service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own shared-cache in-memory database so the
// connection pool sees one schema. TranslateError matches production config;
// the services branch on gorm.ErrDuplicatedKey.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.PointActivity{},
		&models.Badge{},
		&models.UserBadgeGrant{},
		&models.LeaderboardSnapshotEntry{},
		&models.LearnerAccount{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
