package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type eventRepoStub struct {
	events    map[string]Event
	createErr error
	deleteErr error
}

func newEventRepoStub() *eventRepoStub {
	return &eventRepoStub{events: make(map[string]Event)}
}

func (s *eventRepoStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if s.createErr != nil {
		return Event{}, s.createErr
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	event, ok := s.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (s *eventRepoStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	if _, ok := s.events[event.ID]; !ok {
		return Event{}, ErrNotFound
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepoStub) ListEvents(ctx context.Context, activeOnly bool) ([]Event, error) {
	var out []Event
	for _, event := range s.events {
		if activeOnly && !event.Active {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.events, id)
	return nil
}

func newEventServiceForTest(repo *eventRepoStub, now func() time.Time) *EventService {
	counter := 0
	if now == nil {
		now = fixedNow
	}
	return NewEventService(repo, func() string {
		counter++
		return fmt.Sprintf("event-%d", counter)
	}, now)
}

func TestEventService_CreateEvent_CollapsesDatesToCalendarDay(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	svc := newEventServiceForTest(repo, nil)

	event, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1", Role: RoleOverseer},
		Input: EventInput{
			Name:      "Fall Assembly",
			EventType: "ASSEMBLY",
			StartDate: time.Date(2024, time.September, 14, 9, 30, 0, 0, time.UTC),
			EndDate:   time.Date(2024, time.September, 14, 17, 0, 0, 0, time.UTC),
			Location:  "Assembly Hall",
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	want := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC)
	if !event.StartDate.Equal(want) || !event.EndDate.Equal(want) {
		t.Errorf("expected dates collapsed to %v, got %v / %v", want, event.StartDate, event.EndDate)
	}
	if !event.Active {
		t.Error("expected new event to be active")
	}
}

func TestEventService_CreateEvent_EndBeforeStartRejected(t *testing.T) {
	t.Parallel()

	svc := newEventServiceForTest(newEventRepoStub(), nil)

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1", Role: RoleOverseer},
		Input: EventInput{
			Name:      "Fall Assembly",
			StartDate: time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, time.September, 13, 0, 0, 0, 0, time.UTC),
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["end_date"]; !ok {
		t.Fatalf("expected end_date validation error, got %v", vErr.FieldErrors)
	}
}

func TestEventService_CreateEvent_RequiresOverseer(t *testing.T) {
	t.Parallel()

	svc := newEventServiceForTest(newEventRepoStub(), nil)

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1", Role: RoleKeyman},
		Input: EventInput{
			Name:      "Fall Assembly",
			StartDate: time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC),
		},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_StatusDerivation(t *testing.T) {
	t.Parallel()

	// The clock reads 2024-09-01.
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  EventStatus
	}{
		{
			name:  "upcoming",
			start: time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC),
			want:  EventUpcoming,
		},
		{
			name:  "current on start day",
			start: time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC),
			want:  EventCurrent,
		},
		{
			name:  "current on end day",
			start: time.Date(2024, time.August, 30, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
			want:  EventCurrent,
		},
		{
			name:  "past",
			start: time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, time.August, 11, 0, 0, 0, 0, time.UTC),
			want:  EventPast,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newEventRepoStub()
			repo.events["event-1"] = Event{ID: "event-1", Name: "Test", StartDate: tc.start, EndDate: tc.end, Active: true}
			svc := newEventServiceForTest(repo, nil)

			event, err := svc.GetEvent(context.Background(), "event-1")
			if err != nil {
				t.Fatalf("GetEvent failed: %v", err)
			}
			if event.Status != tc.want {
				t.Fatalf("expected status %q, got %q", tc.want, event.Status)
			}
		})
	}
}

func TestEventService_ListEvents_SoonestFirst(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	repo.events["event-late"] = Event{ID: "event-late", Name: "Later", StartDate: time.Date(2024, time.October, 5, 0, 0, 0, 0, time.UTC), Active: true}
	repo.events["event-soon"] = Event{ID: "event-soon", Name: "Sooner", StartDate: time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC), Active: true}
	svc := newEventServiceForTest(repo, nil)

	events, err := svc.ListEvents(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "event-soon" {
		t.Errorf("expected soonest event first, got %q", events[0].ID)
	}
}

func TestEventService_DeleteEvent_RequiresAdmin(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	repo.events["event-1"] = Event{ID: "event-1", Active: true}
	svc := newEventServiceForTest(repo, nil)

	if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-1", Role: RoleOverseer}, "event-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteEvent(context.Background(), Principal{UserID: "admin-1", Role: RoleAdmin}, "event-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
}
