package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
	"github.com/example/attendant-coordinator/internal/scheduler"
)

// EventRepository captures the persistence interactions needed by the event
// service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventService manages events and derives their lifecycle status from the
// clock.
type EventService struct {
	events      EventRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an EventService with a specified
// logger.
func NewEventServiceWithLogger(events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates and persists a new event.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateEvent", "event_name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}
	if err = validateEventInput(input); err != nil {
		return
	}

	now := s.now()
	candidate := Event{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		EventType: strings.TrimSpace(input.EventType),
		StartDate: scheduler.DateOnly(input.StartDate),
		EndDate:   scheduler.DateOnly(input.EndDate),
		Location:  strings.TrimSpace(input.Location),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	event, err = s.events.CreateEvent(ctx, candidate)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	event.Status = eventStatusAt(event, s.now())
	return event, nil
}

// GetEvent returns a single event with its derived status.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	event.Status = eventStatusAt(event, s.now())
	return event, nil
}

// UpdateEvent applies field changes to an existing event. Dates collapse to
// their calendar day; the derived status follows the new dates.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}
	if err = validateEventInput(params.Input); err != nil {
		return
	}

	var existing Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	existing.Name = strings.TrimSpace(params.Input.Name)
	existing.EventType = strings.TrimSpace(params.Input.EventType)
	existing.StartDate = scheduler.DateOnly(params.Input.StartDate)
	existing.EndDate = scheduler.DateOnly(params.Input.EndDate)
	existing.Location = strings.TrimSpace(params.Input.Location)
	if params.Active != nil {
		existing.Active = *params.Active
	}
	existing.UpdatedAt = s.now()

	event, err = s.events.UpdateEvent(ctx, existing)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	event.Status = eventStatusAt(event, s.now())
	return event, nil
}

// ListEvents enumerates events ordered by start date, soonest first, with
// derived statuses.
func (s *EventService) ListEvents(ctx context.Context, activeOnly bool) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx, activeOnly)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	ordered := make([]Event, len(events))
	copy(ordered, events)
	for i := range ordered {
		ordered[i].Status = eventStatusAt(ordered[i], now)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartDate.Equal(ordered[j].StartDate) {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})
	return ordered, nil
}

// DeleteEvent removes an event. Assignments referencing it block deletion at
// the storage layer.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapEventRepoError(err)
	}
	s.loggerWith(ctx, "DeleteEvent", "event_id", eventID).InfoContext(ctx, "event deleted")
	return nil
}

func validateEventInput(input EventInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if input.EndDate.IsZero() {
		vErr.add("end_date", "end date is required")
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() {
		if scheduler.DateOnly(input.EndDate).Before(scheduler.DateOnly(input.StartDate)) {
			vErr.add("end_date", "end date must not precede start date")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// eventStatusAt derives the lifecycle status by comparing calendar days.
func eventStatusAt(event Event, now time.Time) EventStatus {
	today := scheduler.DateOnly(now)
	start := scheduler.DateOnly(event.StartDate)
	end := scheduler.DateOnly(event.EndDate)
	switch {
	case today.Before(start):
		return EventUpcoming
	case today.After(end):
		return EventPast
	default:
		return EventCurrent
	}
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("event_id", "event is referenced by other records")
		return vErr
	}
	return err
}
