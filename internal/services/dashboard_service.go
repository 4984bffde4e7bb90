// Package services – DashboardService
//
// This file implements the operator dashboard: summary statistics over the
// request set, the filtered listing, and CSV export with localized headers
// and labels. All reads go straight to the store; request data is never
// cached in-process.
package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"

	"go.opentelemetry.io/otel"
)

// DashboardStats is the aggregate view consumed by the operator dashboard.
// The four status buckets always sum to TotalRequests for any date range.
type DashboardStats struct {
	TotalRequests     int64                        `json:"total_requests"`
	PendingRequests   int64                        `json:"pending_requests"`
	OnProcessRequests int64                        `json:"on_process_requests"`
	CompletedRequests int64                        `json:"completed_requests"`
	CancelledRequests int64                        `json:"cancelled_requests"`
	RequestsByService map[domain.ServiceType]int64 `json:"requests_by_service"`
	RequestsByDate    []repo.DailyCount            `json:"requests_by_date"`
}

// csvHeader is the fixed export header (Indonesian, matching the operator
// spreadsheet workflow).
var csvHeader = []string{
	"Nomor Permohonan",
	"Jenis Layanan",
	"Nama Pemohon",
	"NIK",
	"Nomor HP",
	"Status",
	"Tanggal Pengajuan",
	"Catatan Operator",
}

// DashboardService computes operator-facing aggregates and exports.
type DashboardService struct {
	DB *gorm.DB
	// DateLocale selects the export date layout. Indonesian (d/m/yyyy) by
	// default.
	DateLocale language.Tag
}

// NewDashboardService constructs a DashboardService with the Indonesian
// export locale.
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{DB: db, DateLocale: language.Indonesian}
}

// Stats returns the aggregate view for the optional date range. Service-type
// buckets are zero-filled so every category is always present.
func (s *DashboardService) Stats(ctx context.Context, from, to *time.Time) (*DashboardStats, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "Stats")
	defer span.End()

	total, err := repo.CountRequests(ctx, s.DB, from, to)
	if err != nil {
		return nil, err
	}
	byStatus, err := repo.CountByStatus(ctx, s.DB, from, to)
	if err != nil {
		return nil, err
	}
	byService, err := repo.CountByServiceType(ctx, s.DB, from, to)
	if err != nil {
		return nil, err
	}
	byDay, err := repo.CountByDay(ctx, s.DB, from, to)
	if err != nil {
		return nil, err
	}

	filledServices := make(map[domain.ServiceType]int64, len(domain.AllServiceTypes))
	for _, st := range domain.AllServiceTypes {
		filledServices[st] = byService[st]
	}
	if byDay == nil {
		byDay = []repo.DailyCount{}
	}

	return &DashboardStats{
		TotalRequests:     total,
		PendingRequests:   byStatus[domain.StatusPending],
		OnProcessRequests: byStatus[domain.StatusOnProcess],
		CompletedRequests: byStatus[domain.StatusCompleted],
		CancelledRequests: byStatus[domain.StatusCancelled],
		RequestsByService: filledServices,
		RequestsByDate:    byDay,
	}, nil
}

// List returns the filtered request listing, newest first.
func (s *DashboardService) List(ctx context.Context, f repo.RequestFilters) ([]domain.ServiceRequest, error) {
	return repo.ListRequests(ctx, s.DB, f)
}

// ExportCSV serializes the filtered listing. The header row is plain; every
// data field is wrapped in double quotes (inner quotes doubled) so free-text
// notes cannot break the row structure. Dates and labels are localized.
func (s *DashboardService) ExportCSV(ctx context.Context, f repo.RequestFilters) (string, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "ExportCSV")
	defer span.End()

	requests, err := repo.ListRequests(ctx, s.DB, f)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(csvHeader, ","))

	for _, r := range requests {
		notes := ""
		if r.OperatorNotes != nil {
			notes = *r.OperatorNotes
		}
		row := []string{
			r.RequestNumber,
			r.ServiceType.Label(),
			r.FullName,
			r.NIK,
			r.PhoneNumber,
			r.Status.Label(),
			s.formatDate(r.CreatedAt),
			notes,
		}
		sb.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			sb.WriteByte('"')
		}
	}
	return sb.String(), nil
}

// formatDate renders a timestamp per the configured locale: d/m/yyyy for
// Indonesian, m/d/yyyy otherwise.
func (s *DashboardService) formatDate(t time.Time) string {
	if s.DateLocale == language.Indonesian || s.DateLocale == language.Und {
		return t.Format("2/1/2006")
	}
	return t.Format("1/2/2006")
}
