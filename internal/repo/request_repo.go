// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ServiceRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Unique-constraint violations on request_number are mapped to
//     ErrDuplicate so the service layer can apply its fallback numbering.
//   - On other DB errors (connectivity issues, etc.), the raw gorm error is
//     propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is with either.
var ErrNotFound = gorm.ErrRecordNotFound

// RequestFilters narrows ListRequests. Zero values mean "no filter".
type RequestFilters struct {
	// NIK matches as a substring (operators often search partial numbers).
	NIK string
	// ServiceType matches exactly when valid.
	ServiceType domain.ServiceType
	// Status matches exactly when valid.
	Status domain.RequestStatus
	// DateFrom / DateTo bound created_at (inclusive).
	DateFrom *time.Time
	DateTo   *time.Time
	// Search matches full_name or request_number as a substring.
	Search string
	// Limit caps the result size when > 0.
	Limit int
}

// CreateRequest inserts a new service request row. The caller provides the
// populated model; ID and timestamps are assigned here when unset. A unique
// violation on request_number is mapped to ErrDuplicate.
func CreateRequest(ctx context.Context, db *gorm.DB, req *domain.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Documents == nil {
		req.Documents = domain.StringList{}
	}
	if err := db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetRequest fetches a request by ID, or ErrNotFound if missing.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// LatestRequestByNIK returns the most recently created request with the exact
// NIK, or ErrNotFound when the NIK has never filed one.
func LatestRequestByNIK(ctx context.Context, db *gorm.DB, nik string) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	err := db.WithContext(ctx).
		Where("nik = ?", nik).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LastRequestNumber returns the lexicographically greatest request_number
// with the given prefix (e.g. "REQ-20260831-"), or ErrNotFound when no
// request was filed under that prefix yet.
func LastRequestNumber(ctx context.Context, db *gorm.DB, prefix string) (string, error) {
	var row struct {
		RequestNumber string
	}
	err := db.WithContext(ctx).
		Model(&domain.ServiceRequest{}).
		Select("request_number").
		Where("request_number LIKE ?", prefix+"%").
		Order("request_number DESC").
		Limit(1).
		First(&row).Error
	if err != nil {
		return "", err
	}
	return row.RequestNumber, nil
}

// ListRequests returns requests matching the filters, newest first.
func ListRequests(ctx context.Context, db *gorm.DB, f RequestFilters) ([]domain.ServiceRequest, error) {
	q := db.WithContext(ctx).Model(&domain.ServiceRequest{}).Order("created_at DESC")

	if nik := strings.TrimSpace(f.NIK); nik != "" {
		q = q.Where("nik LIKE ?", "%"+nik+"%")
	}
	if f.ServiceType != "" {
		q = q.Where("service_type = ?", f.ServiceType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("full_name LIKE ? OR request_number LIKE ?", like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []domain.ServiceRequest
	err := q.Find(&out).Error
	return out, err
}

// UpdateRequest applies the partial field map to a request and returns the
// refreshed row. Returns ErrNotFound when the id does not exist.
func UpdateRequest(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.ServiceRequest, error) {
	res := db.WithContext(ctx).
		Model(&domain.ServiceRequest{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetRequest(ctx, db, id)
}

// SetDocuments replaces the stored document keys for a request.
func SetDocuments(ctx context.Context, db *gorm.DB, id string, docs domain.StringList) error {
	res := db.WithContext(ctx).
		Model(&domain.ServiceRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"documents":  docs,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations;
	// Postgres reports "duplicate key value violates unique constraint".
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "constraint failed: unique")
}
