package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/serialguard/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

const (
	serialA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	serialB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	serialC = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)
