package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

func newCountSession(id, eventID, name string) persistence.CountSession {
	return persistence.CountSession{
		ID:          id,
		EventID:     eventID,
		Name:        name,
		ScheduledAt: testTime,
		Active:      true,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func TestCountRepository_ActiveNameMustBeUnique(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, pool, "event-1", "Fall Assembly", day)

	name := "Fall Assembly Count - 2024-09-14"
	if err := repo.CreateSession(ctx, newCountSession("count-1", event.ID, name)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	err := repo.CreateSession(ctx, newCountSession("count-2", event.ID, name))
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused active name, got %v", err)
	}
}

func TestCountRepository_DeactivationFreesName(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, pool, "event-1", "Fall Assembly", day)

	name := "Fall Assembly Count - 2024-09-14"
	if err := repo.CreateSession(ctx, newCountSession("count-1", event.ID, name)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := repo.DeactivateSession(ctx, "count-1", testTime.Add(time.Hour)); err != nil {
		t.Fatalf("DeactivateSession failed: %v", err)
	}

	exists, err := repo.SessionNameExists(ctx, name)
	if err != nil {
		t.Fatalf("SessionNameExists failed: %v", err)
	}
	if exists {
		t.Fatal("expected name to be free after deactivation")
	}
	if err := repo.CreateSession(ctx, newCountSession("count-2", event.ID, name)); err != nil {
		t.Fatalf("expected freed name to be reusable, got %v", err)
	}
}

func TestCountRepository_SessionNameExists(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, pool, "event-1", "Fall Assembly", day)

	if err := repo.CreateSession(ctx, newCountSession("count-1", event.ID, "Morning Count")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	exists, err := repo.SessionNameExists(ctx, "Morning Count")
	if err != nil {
		t.Fatalf("SessionNameExists failed: %v", err)
	}
	if !exists {
		t.Error("expected Morning Count to exist")
	}
	exists, err = repo.SessionNameExists(ctx, "Afternoon Count")
	if err != nil {
		t.Fatalf("SessionNameExists failed: %v", err)
	}
	if exists {
		t.Error("did not expect Afternoon Count to exist")
	}
}

func TestCountRepository_UpsertPositionCount(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, pool, "event-1", "Fall Assembly", day)
	if err := repo.CreateSession(ctx, newCountSession("count-1", event.ID, "Morning Count")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	first := persistence.PositionCount{
		ID:        "position-count-1",
		SessionID: "count-1",
		Position:  "Main Hall",
		Value:     0,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	if err := repo.UpsertPositionCount(ctx, first); err != nil {
		t.Fatalf("UpsertPositionCount failed: %v", err)
	}

	// Re-recording the same position replaces the value in place.
	second := first
	second.ID = "position-count-2"
	second.Value = 25
	second.UpdatedAt = testTime.Add(time.Minute)
	if err := repo.UpsertPositionCount(ctx, second); err != nil {
		t.Fatalf("UpsertPositionCount update failed: %v", err)
	}

	counts, err := repo.ListPositionCounts(ctx, "count-1")
	if err != nil {
		t.Fatalf("ListPositionCounts failed: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected a single row per position, got %d", len(counts))
	}
	if counts[0].Value != 25 {
		t.Errorf("expected value 25, got %d", counts[0].Value)
	}
}

func TestCountRepository_ListSessions_NewestScheduledFirst(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)
	ctx := context.Background()

	day := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, pool, "event-1", "Fall Assembly", day)

	early := newCountSession("count-early", event.ID, "Morning Count")
	early.ScheduledAt = testTime
	late := newCountSession("count-late", event.ID, "Afternoon Count")
	late.ScheduledAt = testTime.Add(4 * time.Hour)
	retired := newCountSession("count-retired", event.ID, "Old Count")
	retired.Active = false

	for _, session := range []persistence.CountSession{early, late, retired} {
		if err := repo.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession %s failed: %v", session.ID, err)
		}
	}

	sessions, err := repo.ListSessions(ctx, persistence.CountSessionFilter{EventID: event.ID, ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "count-late" {
		t.Errorf("expected newest scheduled session first, got %q", sessions[0].ID)
	}
}

func TestCountRepository_GetSessionUnknown(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewCountRepository(pool)

	if _, err := repo.GetSession(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
