// Package services – AccessService
//
// This file implements the access gate that separates public submitters from
// privileged operators. The gate is strictly fail-closed: no principal, a
// missing role record, a lookup error, or a lookup that outlives the bounded
// timeout all yield false. It never fails open and never returns an error;
// callers get a plain yes/no.
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

// RoleLookup resolves the role record for a principal. The default is
// repo.GetProfile; tests substitute doubles (including ones that hang).
type RoleLookup func(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)

// AccessService answers operator-capability questions for dashboard
// operations.
type AccessService struct {
	DB *gorm.DB
	// Timeout bounds the role lookup so an unreachable store cannot hang the
	// caller. Defaults to 5s.
	Timeout time.Duration
	// Lookup resolves the principal's profile.
	Lookup RoleLookup
}

// NewAccessService constructs an AccessService with the default timeout and
// the database-backed role lookup.
func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{
		DB:      db,
		Timeout: 5 * time.Second,
		Lookup:  repo.GetProfile,
	}
}

// IsOperator reports whether userID holds the operator or admin role.
//
// The lookup runs in its own goroutine so the timeout holds even against a
// lookup implementation that ignores context cancellation. The abandoned
// goroutine finishes on its own; its result is discarded.
func (s *AccessService) IsOperator(ctx context.Context, userID string) bool {
	if strings.TrimSpace(userID) == "" {
		return false
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		profile *domain.Profile
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := s.Lookup(ctx, s.DB, userID)
		ch <- result{profile: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return false
	case r := <-ch:
		if r.err != nil || r.profile == nil {
			return false
		}
		return r.profile.Role.CanOperate()
	}
}
