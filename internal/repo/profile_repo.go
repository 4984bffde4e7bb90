// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model used by the access gate.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// GetProfile fetches the profile for a principal, or ErrNotFound when the
// user has no role record.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or updates the role record for a principal. Used by
// seeding and admin tooling; the request path only ever reads profiles.
func UpsertProfile(ctx context.Context, db *gorm.DB, userID string, role domain.Role) (*domain.Profile, error) {
	existing, err := GetProfile(ctx, db, userID)
	if err == nil {
		res := db.WithContext(ctx).
			Model(&domain.Profile{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return nil, res.Error
		}
		existing.Role = role
		return existing, nil
	}

	p := &domain.Profile{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
