package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

var requestNumberRE = regexp.MustCompile(`^REQ-\d{8}-\d{4,}$`)

func newServicesDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func insertNumbered(t *testing.T, db *gorm.DB, number string) {
	t.Helper()
	req := &domain.ServiceRequest{
		RequestNumber: number,
		ServiceType:   domain.ServiceSuratPengantarKTP,
		FullName:      "Budi",
		NIK:           "1111111111111111",
		PhoneNumber:   "081234567890",
		Status:        domain.StatusPending,
	}
	if err := repo.CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("insert %s: %v", number, err)
	}
}

func TestRequestNumberPrefix(t *testing.T) {
	day := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
	if got := requestNumberPrefix(day); got != "REQ-20250615-" {
		t.Fatalf("prefix = %q", got)
	}
}

func TestNextRequestNumber_FirstOfDay(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	got := nextRequestNumber(context.Background(), db, now)
	if got != "REQ-20250615-0001" {
		t.Fatalf("first number = %q, want REQ-20250615-0001", got)
	}
	if !requestNumberRE.MatchString(got) {
		t.Fatalf("number %q does not match pattern", got)
	}
}

func TestNextRequestNumber_Increments(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	insertNumbered(t, db, "REQ-20250615-0001")
	insertNumbered(t, db, "REQ-20250615-0007")
	// Another day must not bleed in.
	insertNumbered(t, db, "REQ-20250614-0099")

	if got := nextRequestNumber(context.Background(), db, now); got != "REQ-20250615-0008" {
		t.Fatalf("next = %q, want REQ-20250615-0008", got)
	}
}

func TestNextRequestNumber_StoreErrorFallsBack(t *testing.T) {
	db := newServicesDB(t) // no table: the lookup errors
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	got := nextRequestNumber(context.Background(), db, now)
	want := fallbackRequestNumber(now, 4)
	if got != want {
		t.Fatalf("fallback = %q, want %q", got, want)
	}
	if !requestNumberRE.MatchString(got) {
		t.Fatalf("fallback %q does not match pattern", got)
	}
}

func TestFallbackRequestNumber_Digits(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 123e6, time.UTC)

	four := fallbackRequestNumber(now, 4)
	six := fallbackRequestNumber(now, 6)

	if len(four) != len("REQ-20250615-")+4 {
		t.Fatalf("4-digit fallback = %q", four)
	}
	if len(six) != len("REQ-20250615-")+6 {
		t.Fatalf("6-digit fallback = %q", six)
	}

	millis := fmt.Sprintf("%d", now.UnixMilli())
	if four != "REQ-20250615-"+millis[len(millis)-4:] {
		t.Fatalf("4-digit fallback = %q, want last 4 of %s", four, millis)
	}
}
