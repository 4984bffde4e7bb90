package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

func seedDashboardRequest(t *testing.T, db *gorm.DB, number string, st domain.ServiceType, status domain.RequestStatus, created time.Time, notes *string) *domain.ServiceRequest {
	t.Helper()
	req := &domain.ServiceRequest{
		RequestNumber: number,
		ServiceType:   st,
		FullName:      "Siti Rahayu",
		NIK:           "3310112233445566",
		PhoneNumber:   "081234567890",
		Status:        status,
		OperatorNotes: notes,
	}
	if err := repo.CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("seed %s: %v", number, err)
	}
	if err := db.Model(&domain.ServiceRequest{}).
		Where("id = ?", req.ID).
		Update("created_at", created).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	req.CreatedAt = created
	return req
}

func TestStats_ZeroFilledAndSumsToTotal(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	svc := NewDashboardService(db)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	seedDashboardRequest(t, db, "REQ-20250501-0001", domain.ServiceSuratPengantarKTP, domain.StatusPending, base, nil)
	seedDashboardRequest(t, db, "REQ-20250501-0002", domain.ServiceSuratPengantarKTP, domain.StatusCompleted, base.Add(time.Hour), nil)
	seedDashboardRequest(t, db, "REQ-20250502-0001", domain.ServiceKeteranganUsaha, domain.StatusOnProcess, base.Add(25*time.Hour), nil)

	stats, err := svc.Stats(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRequests != 3 {
		t.Fatalf("total = %d", stats.TotalRequests)
	}
	sum := stats.PendingRequests + stats.OnProcessRequests + stats.CompletedRequests + stats.CancelledRequests
	if sum != stats.TotalRequests {
		t.Fatalf("status buckets sum to %d, want %d", sum, stats.TotalRequests)
	}

	// Every service type is present, even with zero requests.
	if len(stats.RequestsByService) != len(domain.AllServiceTypes) {
		t.Fatalf("expected %d service buckets, got %d", len(domain.AllServiceTypes), len(stats.RequestsByService))
	}
	if stats.RequestsByService[domain.ServiceSuratPengantarKTP] != 2 {
		t.Fatalf("ktp bucket = %d", stats.RequestsByService[domain.ServiceSuratPengantarKTP])
	}
	if stats.RequestsByService[domain.ServiceKeteranganKematian] != 0 {
		t.Fatalf("empty bucket missing or nonzero")
	}

	if len(stats.RequestsByDate) != 2 {
		t.Fatalf("expected 2 day buckets, got %+v", stats.RequestsByDate)
	}
}

func TestStats_EmptyStoreHasEmptySlices(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	svc := NewDashboardService(db)

	stats, err := svc.Stats(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Fatalf("total = %d", stats.TotalRequests)
	}
	if stats.RequestsByDate == nil {
		t.Fatal("RequestsByDate must be an empty slice, not nil")
	}
}

func TestExportCSV_HeaderRowsAndQuoting(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	svc := NewDashboardService(db)
	ctx := context.Background()

	created := time.Date(2025, 5, 3, 9, 0, 0, 0, time.UTC)
	tricky := `Harap bawa "KTP asli", dan KK`
	seedDashboardRequest(t, db, "REQ-20250503-0001", domain.ServiceKeteranganDomisili, domain.StatusCompleted, created, &tricky)

	csv, err := svc.ExportCSV(ctx, repo.RequestFilters{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	lines := strings.Split(csv, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Nomor Permohonan,Jenis Layanan,Nama Pemohon,NIK,Nomor HP,Status,Tanggal Pengajuan,Catatan Operator" {
		t.Fatalf("header = %q", lines[0])
	}

	row := lines[1]
	if !strings.HasPrefix(row, `"REQ-20250503-0001","Surat Keterangan Domisili","Siti Rahayu","3310112233445566","081234567890","Selesai","3/5/2025",`) {
		t.Fatalf("row = %q", row)
	}
	// Inner quotes doubled, commas contained inside the quoted cell.
	if !strings.Contains(row, `"Harap bawa ""KTP asli"", dan KK"`) {
		t.Fatalf("notes cell not quoted correctly: %q", row)
	}
}

func TestExportCSV_RowPerRequestAndFilters(t *testing.T) {
	db := newServicesDB(t, &domain.ServiceRequest{})
	svc := NewDashboardService(db)
	ctx := context.Background()

	base := time.Date(2025, 5, 3, 9, 0, 0, 0, time.UTC)
	seedDashboardRequest(t, db, "REQ-20250503-0001", domain.ServiceKeteranganDomisili, domain.StatusCompleted, base, nil)
	seedDashboardRequest(t, db, "REQ-20250503-0002", domain.ServiceKeteranganUsaha, domain.StatusPending, base.Add(time.Hour), nil)

	all, err := svc.ExportCSV(ctx, repo.RequestFilters{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if got := len(strings.Split(all, "\n")); got != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", got)
	}

	filtered, err := svc.ExportCSV(ctx, repo.RequestFilters{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("ExportCSV filtered: %v", err)
	}
	if got := len(strings.Split(filtered, "\n")); got != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", got)
	}
	if !strings.Contains(filtered, "REQ-20250503-0002") || strings.Contains(filtered, "REQ-20250503-0001") {
		t.Fatalf("filter leaked rows: %q", filtered)
	}
}

func TestFormatDate_Locales(t *testing.T) {
	ts := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	id := NewDashboardService(nil)
	if got := id.formatDate(ts); got != "31/1/2025" {
		t.Fatalf("indonesian date = %q", got)
	}
}
