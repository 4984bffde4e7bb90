// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// OperatorNote audit trail.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// CreateNote appends an audit note for a request. Notes are immutable: there
// is deliberately no update or delete counterpart.
func CreateNote(ctx context.Context, db *gorm.DB, requestID, operatorID, note string, oldStatus, newStatus *domain.RequestStatus) (*domain.OperatorNote, error) {
	n := &domain.OperatorNote{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		OperatorID: operatorID,
		Note:       note,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotes returns the audit trail for a request, newest first.
func ListNotes(ctx context.Context, db *gorm.DB, requestID string) ([]domain.OperatorNote, error) {
	var out []domain.OperatorNote
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
