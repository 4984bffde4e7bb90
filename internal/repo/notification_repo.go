// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification outbox drained by the background dispatcher.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// EnqueueNotification inserts a pending outbox row.
func EnqueueNotification(ctx context.Context, db *gorm.DB, requestID, phone, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Phone:     phone,
		Message:   message,
		Status:    domain.NotificationPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// PendingNotifications returns up to limit rows eligible for dispatch
// (pending, or failed and awaiting retry), oldest first so delivery order
// roughly follows enqueue order.
func PendingNotifications(ctx context.Context, db *gorm.DB, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := db.WithContext(ctx).
		Where("status IN ?", []string{domain.NotificationPending, domain.NotificationFailed}).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkNotificationSent records a successful delivery.
func MarkNotificationSent(ctx context.Context, db *gorm.DB, id string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.NotificationSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"sent_at":    now,
			"updated_at": now,
		}).Error
}

// MarkNotificationFailed records a delivery failure. Once attempts reach
// maxAttempts the row moves to the dead state and is no longer retried.
func MarkNotificationFailed(ctx context.Context, db *gorm.DB, id, reason string, maxAttempts int) error {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return err
	}

	status := domain.NotificationFailed
	if n.Attempts+1 >= maxAttempts {
		status = domain.NotificationDead
	}
	return db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"attempts":   n.Attempts + 1,
			"last_error": reason,
			"updated_at": time.Now().UTC(),
		}).Error
}
