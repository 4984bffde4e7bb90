// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries behind the
// operator dashboard: totals, per-status and per-service breakdowns, and the
// per-day submission series. Each function is context-aware and safe to call
// from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// DailyCount is one point of the per-day submission series. Date is a
// calendar day in YYYY-MM-DD form.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// rangeScope applies the optional created_at bounds shared by all aggregate
// queries.
func rangeScope(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	return q
}

// CountRequests returns the total number of requests within the optional
// date range.
func CountRequests(ctx context.Context, db *gorm.DB, from, to *time.Time) (int64, error) {
	var total int64
	q := rangeScope(db.WithContext(ctx).Model(&domain.ServiceRequest{}), from, to)
	err := q.Count(&total).Error
	return total, err
}

// CountByStatus returns request counts grouped by status within the optional
// date range. Statuses with no rows are absent from the map; callers
// zero-fill from domain.AllStatuses.
func CountByStatus(ctx context.Context, db *gorm.DB, from, to *time.Time) (map[domain.RequestStatus]int64, error) {
	var rows []struct {
		Status domain.RequestStatus
		N      int64
	}
	q := rangeScope(db.WithContext(ctx).Model(&domain.ServiceRequest{}), from, to)
	if err := q.Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.RequestStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// CountByServiceType returns request counts grouped by service type within
// the optional date range. Absent categories are zero-filled by the caller.
func CountByServiceType(ctx context.Context, db *gorm.DB, from, to *time.Time) (map[domain.ServiceType]int64, error) {
	var rows []struct {
		ServiceType domain.ServiceType
		N           int64
	}
	q := rangeScope(db.WithContext(ctx).Model(&domain.ServiceRequest{}), from, to)
	if err := q.Select("service_type, COUNT(*) AS n").Group("service_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.ServiceType]int64, len(rows))
	for _, r := range rows {
		out[r.ServiceType] = r.N
	}
	return out, nil
}

// CountByDay returns the per-day submission counts within the optional date
// range, sorted ascending by date.
func CountByDay(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]DailyCount, error) {
	var rows []DailyCount
	q := rangeScope(db.WithContext(ctx).Model(&domain.ServiceRequest{}), from, to)
	err := q.
		Select("date(created_at) AS date, COUNT(*) AS count").
		Group("date(created_at)").
		Order("date ASC").
		Scan(&rows).Error
	return rows, err
}
