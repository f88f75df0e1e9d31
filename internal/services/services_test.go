package services

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"
)

// newTestDB opens a unique in-memory SQLite database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svctest_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fixedClock returns a Now seam pinned to the given local hour.
func fixedClock(hour int) func() time.Time {
	ts := time.Date(2025, 6, 15, hour, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func newLedgerService(t *testing.T, db *gorm.DB) *LedgerService {
	t.Helper()
	svc := NewLedgerService(db,
		loyalty.MustLevelTable(loyalty.DefaultLevels()),
		loyalty.DefaultGoldenHour(),
		loyalty.MustCatalog(loyalty.DefaultCatalog()),
	)
	svc.Now = fixedClock(10) // outside the golden window unless a test overrides
	return svc
}
