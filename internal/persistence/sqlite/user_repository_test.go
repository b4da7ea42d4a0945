package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

func TestUserRepository_DuplicateEmailRejected(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "user-1", "john@example.com")

	err := repo.CreateUser(ctx, persistence.User{
		ID:          "user-2",
		Email:       "john@example.com",
		DisplayName: "Other John",
		Role:        "ATTENDANT",
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused email, got %v", err)
	}
}

func TestUserRepository_InvitationColumnsRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	token := "invite-token-1"
	expires := testTime.Add(72 * time.Hour)
	user := persistence.User{
		ID:                  "user-1",
		Email:               "mary@example.com",
		DisplayName:         "Mary Adams",
		Role:                "OVERSEER",
		InvitationToken:     &token,
		InvitationExpiresAt: &expires,
		Active:              true,
		CreatedAt:           testTime,
		UpdatedAt:           testTime,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.InvitationToken == nil || *got.InvitationToken != token {
		t.Errorf("expected invitation token %q, got %v", token, got.InvitationToken)
	}
	if got.InvitationExpiresAt == nil || !got.InvitationExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, got.InvitationExpiresAt)
	}
	if got.InvitationAccepted {
		t.Error("expected invitation to be pending")
	}
	if got.LastLoginAt != nil {
		t.Errorf("expected no last login, got %v", got.LastLoginAt)
	}
}

func TestUserRepository_GetUserByInvitationToken(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	token := "invite-token-1"
	expires := testTime.Add(72 * time.Hour)
	if err := repo.CreateUser(ctx, persistence.User{
		ID:                  "user-1",
		Email:               "mary@example.com",
		DisplayName:         "Mary Adams",
		Role:                "ATTENDANT",
		InvitationToken:     &token,
		InvitationExpiresAt: &expires,
		Active:              true,
		CreatedAt:           testTime,
		UpdatedAt:           testTime,
	}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repo.GetUserByInvitationToken(ctx, token)
	if err != nil {
		t.Fatalf("GetUserByInvitationToken failed: %v", err)
	}
	if got.ID != "user-1" {
		t.Fatalf("expected user-1, got %q", got.ID)
	}
	if _, err := repo.GetUserByInvitationToken(ctx, "unknown-token"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestUserRepository_UpdateClearsInvitation(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	token := "invite-token-1"
	expires := testTime.Add(72 * time.Hour)
	user := persistence.User{
		ID:                  "user-1",
		Email:               "mary@example.com",
		DisplayName:         "Mary Adams",
		Role:                "ATTENDANT",
		InvitationToken:     &token,
		InvitationExpiresAt: &expires,
		Active:              true,
		CreatedAt:           testTime,
		UpdatedAt:           testTime,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user.InvitationToken = nil
	user.InvitationExpiresAt = nil
	user.InvitationAccepted = true
	user.PasswordHash = "argon2id-hash"
	user.UpdatedAt = testTime.Add(time.Hour)
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.InvitationToken != nil || got.InvitationExpiresAt != nil {
		t.Errorf("expected invitation columns cleared, got %v / %v", got.InvitationToken, got.InvitationExpiresAt)
	}
	if !got.InvitationAccepted {
		t.Error("expected invitation accepted")
	}
	if got.PasswordHash != "argon2id-hash" {
		t.Errorf("unexpected password hash %q", got.PasswordHash)
	}
}

func TestUserRepository_ListFilters(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "user-1", "john@example.com")
	admin := persistence.User{
		ID:                 "user-2",
		Email:              "admin@example.com",
		DisplayName:        "Site Admin",
		Role:               "ADMIN",
		InvitationAccepted: true,
		Active:             true,
		CreatedAt:          testTime,
		UpdatedAt:          testTime,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	disabled := persistence.User{
		ID:                 "user-3",
		Email:              "gone@example.com",
		DisplayName:        "Former Member",
		Role:               "ATTENDANT",
		InvitationAccepted: true,
		CreatedAt:          testTime,
		UpdatedAt:          testTime,
	}
	if err := repo.CreateUser(ctx, disabled); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	adminRole := "ADMIN"
	byRole, err := repo.ListUsers(ctx, persistence.UserFilter{Role: &adminRole})
	if err != nil {
		t.Fatalf("ListUsers by role failed: %v", err)
	}
	if len(byRole) != 1 || byRole[0].ID != "user-2" {
		t.Fatalf("expected only the admin, got %+v", byRole)
	}

	active := true
	byActive, err := repo.ListUsers(ctx, persistence.UserFilter{Active: &active})
	if err != nil {
		t.Fatalf("ListUsers by active failed: %v", err)
	}
	if len(byActive) != 2 {
		t.Fatalf("expected 2 active users, got %d", len(byActive))
	}

	bySearch, err := repo.ListUsers(ctx, persistence.UserFilter{Search: "former"})
	if err != nil {
		t.Fatalf("ListUsers by search failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ID != "user-3" {
		t.Fatalf("expected search to match Former Member, got %+v", bySearch)
	}
}

func TestUserRepository_DeleteUnknownReturnsNotFound(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewUserRepository(pool)

	if err := repo.DeleteUser(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
