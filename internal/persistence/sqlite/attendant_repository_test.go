package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/attendant-coordinator/internal/persistence"
)

func TestAttendantRepository_AdjustCounters(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewAttendantRepository(pool)
	ctx := context.Background()

	seedAttendant(t, pool, "attendant-1", "John", "Smith")

	if err := repo.AdjustCounters(ctx, "attendant-1", 1, 4.0); err != nil {
		t.Fatalf("AdjustCounters failed: %v", err)
	}
	if err := repo.AdjustCounters(ctx, "attendant-1", 1, 2.5); err != nil {
		t.Fatalf("AdjustCounters failed: %v", err)
	}

	got, err := repo.GetAttendant(ctx, "attendant-1")
	if err != nil {
		t.Fatalf("GetAttendant failed: %v", err)
	}
	if got.TotalAssignments != 2 {
		t.Errorf("expected 2 assignments, got %d", got.TotalAssignments)
	}
	if got.TotalHours != 6.5 {
		t.Errorf("expected 6.5 hours, got %v", got.TotalHours)
	}
}

func TestAttendantRepository_CountersNeverDropBelowZero(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewAttendantRepository(pool)
	ctx := context.Background()

	seedAttendant(t, pool, "attendant-1", "John", "Smith")

	if err := repo.AdjustCounters(ctx, "attendant-1", -3, -10); err != nil {
		t.Fatalf("AdjustCounters failed: %v", err)
	}

	got, err := repo.GetAttendant(ctx, "attendant-1")
	if err != nil {
		t.Fatalf("GetAttendant failed: %v", err)
	}
	if got.TotalAssignments != 0 || got.TotalHours != 0 {
		t.Errorf("expected counters clamped at zero, got %d / %v", got.TotalAssignments, got.TotalHours)
	}
}

func TestAttendantRepository_AdjustCountersUnknownAttendant(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewAttendantRepository(pool)

	if err := repo.AdjustCounters(context.Background(), "missing", 1, 4.0); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendantRepository_UserLinkClearedOnUserDelete(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewAttendantRepository(pool)
	ctx := context.Background()

	user := seedUser(t, pool, "user-1", "john@example.com")
	attendant := seedAttendant(t, pool, "attendant-1", "John", "Smith")
	attendant.UserID = &user.ID
	if err := repo.UpdateAttendant(ctx, attendant); err != nil {
		t.Fatalf("UpdateAttendant failed: %v", err)
	}

	if err := NewUserRepository(pool).DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	got, err := repo.GetAttendant(ctx, "attendant-1")
	if err != nil {
		t.Fatalf("GetAttendant failed: %v", err)
	}
	if got.UserID != nil {
		t.Errorf("expected user link cleared, got %v", got.UserID)
	}
}

func TestAttendantRepository_ListFilters(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewAttendantRepository(pool)
	ctx := context.Background()

	seedAttendant(t, pool, "attendant-1", "John", "Smith")
	unavailable := seedAttendant(t, pool, "attendant-2", "Mary", "Adams")
	unavailable.Availability = "UNAVAILABLE"
	if err := repo.UpdateAttendant(ctx, unavailable); err != nil {
		t.Fatalf("UpdateAttendant failed: %v", err)
	}

	available := "AVAILABLE"
	byAvailability, err := repo.ListAttendants(ctx, persistence.AttendantFilter{Availability: &available})
	if err != nil {
		t.Fatalf("ListAttendants failed: %v", err)
	}
	if len(byAvailability) != 1 || byAvailability[0].ID != "attendant-1" {
		t.Fatalf("expected only John Smith, got %+v", byAvailability)
	}

	bySearch, err := repo.ListAttendants(ctx, persistence.AttendantFilter{Search: "adams"})
	if err != nil {
		t.Fatalf("ListAttendants by search failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ID != "attendant-2" {
		t.Fatalf("expected search to match Mary Adams, got %+v", bySearch)
	}
}
