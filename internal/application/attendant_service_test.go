package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/attendant-coordinator/internal/persistence"
)

type attendantRepoStub struct {
	attendants map[string]Attendant
	createErr  error
	deleteErr  error
	adjustErr  error
}

func newAttendantRepoStub() *attendantRepoStub {
	return &attendantRepoStub{attendants: make(map[string]Attendant)}
}

func (s *attendantRepoStub) CreateAttendant(ctx context.Context, attendant Attendant) (Attendant, error) {
	if s.createErr != nil {
		return Attendant{}, s.createErr
	}
	s.attendants[attendant.ID] = attendant
	return attendant, nil
}

func (s *attendantRepoStub) GetAttendant(ctx context.Context, id string) (Attendant, error) {
	attendant, ok := s.attendants[id]
	if !ok {
		return Attendant{}, persistence.ErrNotFound
	}
	return attendant, nil
}

func (s *attendantRepoStub) UpdateAttendant(ctx context.Context, attendant Attendant) (Attendant, error) {
	if _, ok := s.attendants[attendant.ID]; !ok {
		return Attendant{}, persistence.ErrNotFound
	}
	s.attendants[attendant.ID] = attendant
	return attendant, nil
}

func (s *attendantRepoStub) ListAttendants(ctx context.Context, filter AttendantRepositoryFilter) ([]Attendant, error) {
	var out []Attendant
	for _, attendant := range s.attendants {
		if filter.Availability != nil && attendant.Availability != *filter.Availability {
			continue
		}
		out = append(out, attendant)
	}
	return out, nil
}

func (s *attendantRepoStub) DeleteAttendant(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.attendants[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.attendants, id)
	return nil
}

func (s *attendantRepoStub) AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error {
	if s.adjustErr != nil {
		return s.adjustErr
	}
	attendant, ok := s.attendants[attendantID]
	if !ok {
		return persistence.ErrNotFound
	}
	attendant.TotalAssignments += deltaAssignments
	attendant.TotalHours += deltaHours
	s.attendants[attendantID] = attendant
	return nil
}

func newAttendantServiceForTest(repo *attendantRepoStub) *AttendantService {
	counter := 0
	return NewAttendantService(repo, func() string {
		counter++
		return fmt.Sprintf("attendant-%d", counter)
	}, fixedNow)
}

func TestAttendantService_CreateAttendant_DefaultsToAvailable(t *testing.T) {
	t.Parallel()

	repo := newAttendantRepoStub()
	svc := newAttendantServiceForTest(repo)

	attendant, err := svc.CreateAttendant(context.Background(), CreateAttendantParams{
		Principal: Principal{UserID: "user-1", Role: RoleOverseer},
		Input: AttendantInput{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "John.Smith@Example.com",
		},
	})
	if err != nil {
		t.Fatalf("CreateAttendant failed: %v", err)
	}

	if attendant.Availability != AttendantAvailable {
		t.Errorf("expected AVAILABLE default, got %q", attendant.Availability)
	}
	if attendant.Email != "john.smith@example.com" {
		t.Errorf("expected normalized email, got %q", attendant.Email)
	}
	if attendant.TotalAssignments != 0 || attendant.TotalHours != 0 {
		t.Errorf("expected zeroed counters, got %d / %v", attendant.TotalAssignments, attendant.TotalHours)
	}
}

func TestAttendantService_CreateAttendant_RequiresName(t *testing.T) {
	t.Parallel()

	svc := newAttendantServiceForTest(newAttendantRepoStub())

	_, err := svc.CreateAttendant(context.Background(), CreateAttendantParams{
		Principal: Principal{UserID: "user-1", Role: RoleOverseer},
		Input:     AttendantInput{Email: "john@example.com"},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["name"]; !ok {
		t.Fatalf("expected name validation error, got %v", vErr.FieldErrors)
	}
}

func TestAttendantService_CreateAttendant_RequiresOverseer(t *testing.T) {
	t.Parallel()

	svc := newAttendantServiceForTest(newAttendantRepoStub())

	_, err := svc.CreateAttendant(context.Background(), CreateAttendantParams{
		Principal: Principal{UserID: "user-1", Role: RoleKeyman},
		Input:     AttendantInput{FirstName: "John", LastName: "Smith"},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAttendantService_UpdateAttendant_CountersNotWritable(t *testing.T) {
	t.Parallel()

	repo := newAttendantRepoStub()
	repo.attendants["attendant-1"] = Attendant{
		ID:               "attendant-1",
		FirstName:        "John",
		LastName:         "Smith",
		Availability:     AttendantAvailable,
		TotalAssignments: 3,
		TotalHours:       12,
	}
	svc := newAttendantServiceForTest(repo)

	updated, err := svc.UpdateAttendant(context.Background(), UpdateAttendantParams{
		Principal:   Principal{UserID: "user-1", Role: RoleOverseer},
		AttendantID: "attendant-1",
		Input: AttendantInput{
			FirstName:    "John",
			LastName:     "Smith",
			Availability: AttendantUnavailable,
		},
	})
	if err != nil {
		t.Fatalf("UpdateAttendant failed: %v", err)
	}

	if updated.Availability != AttendantUnavailable {
		t.Errorf("expected availability updated, got %q", updated.Availability)
	}
	if updated.TotalAssignments != 3 || updated.TotalHours != 12 {
		t.Errorf("expected counters untouched, got %d / %v", updated.TotalAssignments, updated.TotalHours)
	}
}

func TestAttendantService_ListAttendants_OrderedByName(t *testing.T) {
	t.Parallel()

	repo := newAttendantRepoStub()
	repo.attendants["attendant-1"] = Attendant{ID: "attendant-1", FirstName: "John", LastName: "Smith", Availability: AttendantAvailable}
	repo.attendants["attendant-2"] = Attendant{ID: "attendant-2", FirstName: "Mary", LastName: "Adams", Availability: AttendantAvailable}
	repo.attendants["attendant-3"] = Attendant{ID: "attendant-3", FirstName: "Alice", LastName: "Adams", Availability: AttendantAvailable}
	svc := newAttendantServiceForTest(repo)

	attendants, err := svc.ListAttendants(context.Background(), ListAttendantsParams{})
	if err != nil {
		t.Fatalf("ListAttendants failed: %v", err)
	}
	if len(attendants) != 3 {
		t.Fatalf("expected 3 attendants, got %d", len(attendants))
	}
	if attendants[0].ID != "attendant-3" || attendants[1].ID != "attendant-2" || attendants[2].ID != "attendant-1" {
		t.Fatalf("expected last-name then first-name ordering, got %+v", attendants)
	}
}

func TestAttendantService_DeleteAttendant_RequiresAdmin(t *testing.T) {
	t.Parallel()

	repo := newAttendantRepoStub()
	repo.attendants["attendant-1"] = Attendant{ID: "attendant-1"}
	svc := newAttendantServiceForTest(repo)

	if err := svc.DeleteAttendant(context.Background(), Principal{UserID: "user-1", Role: RoleOverseer}, "attendant-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteAttendant(context.Background(), Principal{UserID: "admin-1", Role: RoleAdmin}, "attendant-1"); err != nil {
		t.Fatalf("DeleteAttendant failed: %v", err)
	}
}

func TestAttendantService_DeleteAttendant_ReferencedRejected(t *testing.T) {
	t.Parallel()

	repo := newAttendantRepoStub()
	repo.attendants["attendant-1"] = Attendant{ID: "attendant-1"}
	repo.deleteErr = persistence.ErrForeignKeyViolation
	svc := newAttendantServiceForTest(repo)

	err := svc.DeleteAttendant(context.Background(), Principal{UserID: "admin-1", Role: RoleAdmin}, "attendant-1")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["attendant_id"]; !ok {
		t.Fatalf("expected attendant_id field error, got %v", vErr.FieldErrors)
	}
}
