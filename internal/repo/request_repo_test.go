package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

func newRequestRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("request_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
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

func seedRequest(t *testing.T, db *gorm.DB, number, nik string, status domain.RequestStatus, created time.Time) *domain.ServiceRequest {
	t.Helper()
	req := &domain.ServiceRequest{
		RequestNumber: number,
		ServiceType:   domain.ServiceSuratPengantarKTP,
		FullName:      "Budi Santoso",
		NIK:           nik,
		PhoneNumber:   "081234567890",
		Status:        status,
	}
	if err := CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("seed request %s: %v", number, err)
	}
	// Backdate after insert; CreateRequest stamps its own time.
	if err := db.Model(&domain.ServiceRequest{}).
		Where("id = ?", req.ID).
		Update("created_at", created).Error; err != nil {
		t.Fatalf("backdate request: %v", err)
	}
	req.CreatedAt = created
	return req
}

func TestCreateRequest_SetsIDAndTimestamps(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})

	start := time.Now().UTC().Add(-time.Minute)
	req := &domain.ServiceRequest{
		RequestNumber: "REQ-20250101-0001",
		ServiceType:   domain.ServiceKeteranganDomisili,
		FullName:      "Siti",
		NIK:           "3310112233445566",
		PhoneNumber:   "081234567890",
		Status:        domain.StatusPending,
	}
	if err := CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.ID == "" {
		t.Fatalf("expected generated id")
	}
	if req.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", req.CreatedAt)
	}

	var got domain.ServiceRequest
	if err := db.First(&got, "id = ?", req.ID).Error; err != nil {
		t.Fatalf("load created request: %v", err)
	}
	if got.RequestNumber != "REQ-20250101-0001" || got.Status != domain.StatusPending {
		t.Fatalf("unexpected fields: %+v", got)
	}
}

func TestCreateRequest_DuplicateNumber(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})

	seedRequest(t, db, "REQ-20250101-0001", "1111111111111111", domain.StatusPending, time.Now().UTC())

	dup := &domain.ServiceRequest{
		RequestNumber: "REQ-20250101-0001",
		ServiceType:   domain.ServiceSuratPengantarKTP,
		FullName:      "Lain",
		NIK:           "2222222222222222",
		PhoneNumber:   "081234567891",
		Status:        domain.StatusPending,
	}
	err := CreateRequest(context.Background(), db, dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestLatestRequestByNIK(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})
	ctx := context.Background()

	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	seedRequest(t, db, "REQ-20250110-0001", "3310112233445566", domain.StatusCompleted, base)
	latest := seedRequest(t, db, "REQ-20250110-0002", "3310112233445566", domain.StatusPending, base.Add(2*time.Hour))
	seedRequest(t, db, "REQ-20250110-0003", "9999999999999999", domain.StatusPending, base.Add(3*time.Hour))

	got, err := LatestRequestByNIK(ctx, db, "3310112233445566")
	if err != nil {
		t.Fatalf("LatestRequestByNIK: %v", err)
	}
	if got.ID != latest.ID {
		t.Fatalf("expected newest request %s, got %s (%s)", latest.RequestNumber, got.RequestNumber, got.ID)
	}

	if _, err := LatestRequestByNIK(ctx, db, "0000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown NIK, got %v", err)
	}
}

func TestLastRequestNumber(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})
	ctx := context.Background()

	now := time.Now().UTC()
	seedRequest(t, db, "REQ-20250110-0002", "1111111111111111", domain.StatusPending, now)
	seedRequest(t, db, "REQ-20250110-0010", "2222222222222222", domain.StatusPending, now)
	seedRequest(t, db, "REQ-20250111-0001", "3333333333333333", domain.StatusPending, now)

	got, err := LastRequestNumber(ctx, db, "REQ-20250110-")
	if err != nil {
		t.Fatalf("LastRequestNumber: %v", err)
	}
	if got != "REQ-20250110-0010" {
		t.Fatalf("expected REQ-20250110-0010, got %s", got)
	}

	if _, err := LastRequestNumber(ctx, db, "REQ-20990101-"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty day, got %v", err)
	}
}

func TestListRequests_Filters(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})
	ctx := context.Background()

	day1 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)
	seedRequest(t, db, "REQ-20250201-0001", "1111111111111111", domain.StatusPending, day1)
	seedRequest(t, db, "REQ-20250201-0002", "1122334455667788", domain.StatusCompleted, day1.Add(time.Hour))
	seedRequest(t, db, "REQ-20250202-0001", "2222222222222222", domain.StatusPending, day2)

	all, err := ListRequests(ctx, db, RequestFilters{})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	// Newest first.
	if all[0].RequestNumber != "REQ-20250202-0001" {
		t.Fatalf("expected newest first, got %s", all[0].RequestNumber)
	}

	byStatus, err := ListRequests(ctx, db, RequestFilters{Status: domain.StatusCompleted})
	if err != nil || len(byStatus) != 1 || byStatus[0].RequestNumber != "REQ-20250201-0002" {
		t.Fatalf("status filter wrong: %v %v", byStatus, err)
	}

	byNIK, err := ListRequests(ctx, db, RequestFilters{NIK: "112233"})
	if err != nil || len(byNIK) != 1 {
		t.Fatalf("nik substring filter wrong: %v %v", byNIK, err)
	}

	to := day1.Add(23 * time.Hour)
	byDate, err := ListRequests(ctx, db, RequestFilters{DateFrom: &day1, DateTo: &to})
	if err != nil || len(byDate) != 2 {
		t.Fatalf("date filter wrong: got %d rows, err %v", len(byDate), err)
	}

	bySearch, err := ListRequests(ctx, db, RequestFilters{Search: "20250202"})
	if err != nil || len(bySearch) != 1 {
		t.Fatalf("search filter wrong: %v %v", bySearch, err)
	}

	limited, err := ListRequests(ctx, db, RequestFilters{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("limit wrong: got %d rows, err %v", len(limited), err)
	}
}

func TestUpdateRequest(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})
	ctx := context.Background()

	req := seedRequest(t, db, "REQ-20250301-0001", "1111111111111111", domain.StatusPending, time.Now().UTC())

	updated, err := UpdateRequest(ctx, db, req.ID, map[string]any{
		"status":      domain.StatusOnProcess,
		"operator_id": "op-1",
	})
	if err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}
	if updated.Status != domain.StatusOnProcess {
		t.Fatalf("status not updated: %+v", updated)
	}
	if updated.OperatorID == nil || *updated.OperatorID != "op-1" {
		t.Fatalf("operator_id not updated: %+v", updated)
	}

	if _, err := UpdateRequest(ctx, db, "missing-id", map[string]any{"status": domain.StatusCancelled}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestSetDocuments_RoundTrip(t *testing.T) {
	db := newRequestRepoDB(t, &domain.ServiceRequest{})
	ctx := context.Background()

	req := seedRequest(t, db, "REQ-20250301-0002", "1111111111111111", domain.StatusPending, time.Now().UTC())

	keys := domain.StringList{"a/b/document_0.pdf", "a/b/document_1.jpg"}
	if err := SetDocuments(ctx, db, req.ID, keys); err != nil {
		t.Fatalf("SetDocuments: %v", err)
	}

	got, err := GetRequest(ctx, db, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if len(got.Documents) != 2 || got.Documents[0] != keys[0] || got.Documents[1] != keys[1] {
		t.Fatalf("documents did not round-trip: %+v", got.Documents)
	}
}
