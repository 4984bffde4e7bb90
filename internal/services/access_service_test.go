package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

func TestIsOperator_EmptyUserID(t *testing.T) {
	s := NewAccessService(nil)
	s.Lookup = func(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
		t.Fatal("lookup must not run for an empty principal")
		return nil, nil
	}
	if s.IsOperator(context.Background(), "   ") {
		t.Fatal("empty principal must be denied")
	}
}

func TestIsOperator_Roles(t *testing.T) {
	db := newServicesDB(t, &domain.Profile{})
	ctx := context.Background()

	if _, err := repo.UpsertProfile(ctx, db, "citizen", domain.RoleUser); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.UpsertProfile(ctx, db, "clerk", domain.RoleOperator); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.UpsertProfile(ctx, db, "chief", domain.RoleAdmin); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewAccessService(db)
	cases := map[string]bool{
		"citizen": false,
		"clerk":   true,
		"chief":   true,
		"nobody":  false, // no profile row at all
	}
	for user, want := range cases {
		if got := s.IsOperator(ctx, user); got != want {
			t.Errorf("IsOperator(%q) = %v, want %v", user, got, want)
		}
	}
}

func TestIsOperator_LookupErrorFailsClosed(t *testing.T) {
	s := NewAccessService(nil)
	s.Lookup = func(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
		return nil, errors.New("connection refused")
	}
	if s.IsOperator(context.Background(), "clerk") {
		t.Fatal("lookup error must be denied")
	}
}

func TestIsOperator_TimeoutFailsClosed(t *testing.T) {
	s := NewAccessService(nil)
	s.Timeout = 30 * time.Millisecond
	// A lookup that ignores cancellation entirely.
	s.Lookup = func(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
		time.Sleep(500 * time.Millisecond)
		return &domain.Profile{UserID: userID, Role: domain.RoleAdmin}, nil
	}

	start := time.Now()
	got := s.IsOperator(context.Background(), "chief")
	elapsed := time.Since(start)

	if got {
		t.Fatal("slow lookup must be denied, not trusted late")
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("timeout did not bound the caller: took %v", elapsed)
	}
}
