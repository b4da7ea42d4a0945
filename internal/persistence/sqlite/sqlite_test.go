package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

var testTime = time.Date(2024, time.September, 2, 15, 4, 5, 0, time.UTC)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coordinator.db")
	pool, err := NewConnectionPool(path)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("failed to migrate storage: %v", err)
	}
	return pool
}

func seedEvent(t *testing.T, pool *ConnectionPool, id, name string, day time.Time) persistence.Event {
	t.Helper()

	event := persistence.Event{
		ID:        id,
		Name:      name,
		EventType: "ASSEMBLY",
		StartDate: day,
		EndDate:   day,
		Location:  "Assembly Hall",
		Active:    true,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	if err := NewEventRepository(pool).CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("failed to seed event %s: %v", id, err)
	}
	return event
}

func seedAttendant(t *testing.T, pool *ConnectionPool, id, first, last string) persistence.Attendant {
	t.Helper()

	attendant := persistence.Attendant{
		ID:           id,
		FirstName:    first,
		LastName:     last,
		Email:        id + "@example.com",
		Availability: "AVAILABLE",
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
	if err := NewAttendantRepository(pool).CreateAttendant(context.Background(), attendant); err != nil {
		t.Fatalf("failed to seed attendant %s: %v", id, err)
	}
	return attendant
}

func seedUser(t *testing.T, pool *ConnectionPool, id, email string) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:                 id,
		Email:              email,
		DisplayName:        "User " + id,
		Role:               "ATTENDANT",
		InvitationAccepted: true,
		Active:             true,
		CreatedAt:          testTime,
		UpdatedAt:          testTime,
	}
	if err := NewUserRepository(pool).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
	return user
}
