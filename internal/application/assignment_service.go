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

// AssignmentRepository captures the persistence interactions needed by the
// assignment service. CreateAssignment is the enforcement point for the
// one-assignment-per-date invariant: the storage layer rejects a losing
// racer with persistence.ErrDuplicate regardless of the advisory pre-check.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentRepositoryFilter) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// AssignmentRepositoryFilter narrows queries issued to the assignment
// repository.
type AssignmentRepositoryFilter struct {
	EventID     string
	AttendantID string
	OnDate      *time.Time
}

// EventCatalog exposes event lookup operations.
type EventCatalog interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// AttendantDirectory exposes attendant lookup and counter maintenance.
type AttendantDirectory interface {
	GetAttendant(ctx context.Context, id string) (Attendant, error)
	ListAvailableAttendants(ctx context.Context) ([]Attendant, error)
	AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error
}

// Each assignment credits the attendant with a notional four-hour shift per
// event day; assignments carry no duration of their own.
const shiftHoursPerEventDay = 4.0

// AssignmentService owns the conflict-detection core: it decides whether an
// attendant may take an assignment, reports existing conflicts for display,
// and computes the complement set for assignment pickers.
type AssignmentService struct {
	assignments AssignmentRepository
	events      EventCatalog
	attendants  AttendantDirectory
	idGenerator func() string
	now         func() time.Time
	cache       *conflictCache
	logger      *slog.Logger
}

// NewAssignmentService wires dependencies for assignment operations.
func NewAssignmentService(assignments AssignmentRepository, events EventCatalog, attendants AttendantDirectory, idGenerator func() string, now func() time.Time) *AssignmentService {
	return NewAssignmentServiceWithLogger(assignments, events, attendants, idGenerator, now, nil)
}

// NewAssignmentServiceWithLogger constructs an AssignmentService with a
// specified logger.
func NewAssignmentServiceWithLogger(assignments AssignmentRepository, events EventCatalog, attendants AttendantDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AssignmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		assignments: assignments,
		events:      events,
		attendants:  attendants,
		idGenerator: idGenerator,
		now:         now,
		cache:       newConflictCache(30*time.Second, 256, now),
		logger:      defaultLogger(logger),
	}
}

func (s *AssignmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AssignmentService", operation, attrs...)
}

// CheckConflicts reports every existing assignment that would collide with
// assigning the attendant to the target event. The report is read-side only
// and does not reserve anything.
func (s *AssignmentService) CheckConflicts(ctx context.Context, attendantID, eventID string) ([]ConflictReport, error) {
	if s == nil {
		return nil, fmt.Errorf("AssignmentService is nil")
	}

	if cached, ok := s.cache.GetReports(conflictReportKey(attendantID, eventID)); ok {
		return cached, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}
	attendant, err := s.attendants.GetAttendant(ctx, attendantID)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	reports, err := s.detectConflicts(ctx, attendant, event)
	if err != nil {
		return nil, err
	}

	s.cache.StoreReports(conflictReportKey(attendantID, eventID), reports)
	return reports, nil
}

// CreateAssignment validates the request, fails fast on the first conflict,
// and persists the assignment with denormalized display fields.
func (s *AssignmentService) CreateAssignment(ctx context.Context, params CreateAssignmentParams) (assignment Assignment, err error) {
	if s == nil {
		err = fmt.Errorf("AssignmentService is nil")
		return
	}
	if s.assignments == nil {
		err = fmt.Errorf("assignment repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateAssignment",
		"event_id", input.EventID,
		"attendant_id", input.AttendantID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "assignment creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_id", assignment.ID).InfoContext(ctx, "assignment created")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.EventID) == "" {
		vErr.add("event_id", "event is required")
	}
	if strings.TrimSpace(input.AttendantID) == "" {
		vErr.add("attendant_id", "attendant is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var event Event
	event, err = s.events.GetEvent(ctx, input.EventID)
	if err != nil {
		err = mapAssignmentRepoError(err)
		return
	}

	var attendant Attendant
	attendant, err = s.attendants.GetAttendant(ctx, input.AttendantID)
	if err != nil {
		err = mapAssignmentRepoError(err)
		return
	}

	if attendant.Availability != AttendantAvailable {
		vErr.add("attendant_id", "attendant is not available")
		err = vErr
		return
	}

	var reports []ConflictReport
	reports, err = s.detectConflicts(ctx, attendant, event)
	if err != nil {
		return
	}
	if len(reports) > 0 {
		first := reports[0]
		err = &ScheduleConflictError{
			AttendantName: first.AttendantName,
			EventID:       first.EventID,
			EventName:     first.EventName,
			Date:          first.Date,
		}
		return
	}

	now := s.now()
	candidate := Assignment{
		ID:            s.idGenerator(),
		EventID:       event.ID,
		AttendantID:   attendant.ID,
		Position:      strings.TrimSpace(input.Position),
		Notes:         strings.TrimSpace(input.Notes),
		EventName:     event.Name,
		EventDate:     scheduler.DateOnly(event.StartDate),
		AttendantName: attendant.DisplayName(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	assignment, err = s.assignments.CreateAssignment(ctx, candidate)
	if err != nil {
		// A losing racer trips the (attendant_id, event_date) unique
		// constraint after the advisory pre-check passed. Re-run the
		// detector so the error still names the winning event.
		if errors.Is(err, persistence.ErrDuplicate) {
			err = s.conflictFromConstraint(ctx, attendant, event)
			return
		}
		err = mapAssignmentRepoError(err)
		return
	}

	if s.attendants != nil {
		hours := shiftHoursPerEventDay * float64(eventDaySpan(event))
		if cerr := s.attendants.AdjustCounters(ctx, attendant.ID, 1, hours); cerr != nil {
			logger.ErrorContext(ctx, "failed to update attendant counters", "error", cerr)
		}
	}

	s.cache.Invalidate()
	return assignment, nil
}

// DeleteAssignment removes an assignment and rolls back the attendant's
// aggregate counters.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, principal Principal, assignmentID string) error {
	if s == nil {
		return fmt.Errorf("AssignmentService is nil")
	}
	if s.assignments == nil {
		return fmt.Errorf("assignment repository not configured")
	}
	if !principal.Role.AtLeast(RoleOverseer) {
		return ErrUnauthorized
	}

	existing, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return mapAssignmentRepoError(err)
	}

	if err := s.assignments.DeleteAssignment(ctx, assignmentID); err != nil {
		return mapAssignmentRepoError(err)
	}

	if s.attendants != nil {
		hours := shiftHoursPerEventDay
		if event, gerr := s.events.GetEvent(ctx, existing.EventID); gerr == nil {
			hours = shiftHoursPerEventDay * float64(eventDaySpan(event))
		}
		if cerr := s.attendants.AdjustCounters(ctx, existing.AttendantID, -1, -hours); cerr != nil {
			s.loggerWith(ctx, "DeleteAssignment").ErrorContext(ctx, "failed to update attendant counters", "error", cerr)
		}
	}

	s.cache.Invalidate()
	return nil
}

// ListAssignments enumerates assignments matching the recognized filters,
// ordered by event date then attendant name.
func (s *AssignmentService) ListAssignments(ctx context.Context, params ListAssignmentsParams) ([]Assignment, error) {
	if s == nil {
		return nil, fmt.Errorf("AssignmentService is nil")
	}
	if s.assignments == nil {
		return nil, fmt.Errorf("assignment repository not configured")
	}

	assignments, err := s.assignments.ListAssignments(ctx, AssignmentRepositoryFilter{
		EventID:     params.EventID,
		AttendantID: params.AttendantID,
		OnDate:      params.OnDate,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Assignment, len(assignments))
	copy(ordered, assignments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EventDate.Equal(ordered[j].EventDate) {
			if ordered[i].AttendantName == ordered[j].AttendantName {
				return ordered[i].ID < ordered[j].ID
			}
			return ordered[i].AttendantName < ordered[j].AttendantName
		}
		return ordered[i].EventDate.Before(ordered[j].EventDate)
	})

	return ordered, nil
}

// AvailableAttendants returns available attendants who hold no assignment on
// the target event's date, the complement set of the conflict check.
func (s *AssignmentService) AvailableAttendants(ctx context.Context, eventID string) ([]Attendant, error) {
	if s == nil {
		return nil, fmt.Errorf("AssignmentService is nil")
	}
	if s.attendants == nil {
		return nil, fmt.Errorf("attendant directory not configured")
	}

	if cached, ok := s.cache.GetRoster(availabilityKey(eventID)); ok {
		return cached, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	candidates, err := s.attendants.ListAvailableAttendants(ctx)
	if err != nil {
		return nil, err
	}

	date := scheduler.DateOnly(event.StartDate)
	taken, err := s.assignments.ListAssignments(ctx, AssignmentRepositoryFilter{OnDate: &date})
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}

	busy := make(map[string]struct{}, len(taken))
	for _, assignment := range taken {
		busy[assignment.AttendantID] = struct{}{}
	}

	available := make([]Attendant, 0, len(candidates))
	for _, attendant := range candidates {
		if _, ok := busy[attendant.ID]; ok {
			continue
		}
		available = append(available, attendant)
	}

	sort.SliceStable(available, func(i, j int) bool {
		if available[i].LastName == available[j].LastName {
			return available[i].FirstName < available[j].FirstName
		}
		return available[i].LastName < available[j].LastName
	})

	s.cache.StoreRoster(availabilityKey(eventID), available)
	return available, nil
}

func (s *AssignmentService) detectConflicts(ctx context.Context, attendant Attendant, event Event) ([]ConflictReport, error) {
	existing, err := s.assignments.ListAssignments(ctx, AssignmentRepositoryFilter{AttendantID: attendant.ID})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	bookings := make([]scheduler.Assignment, 0, len(existing))
	for _, assignment := range existing {
		bookings = append(bookings, toSchedulerAssignment(assignment))
	}

	candidate := scheduler.Assignment{
		AttendantID:   attendant.ID,
		AttendantName: attendant.DisplayName(),
		EventID:       event.ID,
		EventName:     event.Name,
		EventDate:     event.StartDate,
	}

	conflicts := scheduler.DetectConflicts(bookings, candidate)
	return toConflictReports(conflicts, attendant.DisplayName()), nil
}

// conflictFromConstraint builds the richest error available after the unique
// constraint rejected an insert.
func (s *AssignmentService) conflictFromConstraint(ctx context.Context, attendant Attendant, event Event) error {
	reports, derr := s.detectConflicts(ctx, attendant, event)
	if derr == nil && len(reports) > 0 {
		first := reports[0]
		return &ScheduleConflictError{
			AttendantName: first.AttendantName,
			EventID:       first.EventID,
			EventName:     first.EventName,
			Date:          first.Date,
		}
	}
	return &ScheduleConflictError{
		AttendantName: attendant.DisplayName(),
		Date:          scheduler.DateOnly(event.StartDate),
	}
}

func toSchedulerAssignment(assignment Assignment) scheduler.Assignment {
	return scheduler.Assignment{
		ID:            assignment.ID,
		AttendantID:   assignment.AttendantID,
		AttendantName: assignment.AttendantName,
		EventID:       assignment.EventID,
		EventName:     assignment.EventName,
		EventDate:     assignment.EventDate,
	}
}

func toConflictReports(conflicts []scheduler.Conflict, attendantName string) []ConflictReport {
	if len(conflicts) == 0 {
		return nil
	}
	reports := make([]ConflictReport, 0, len(conflicts))
	for _, conflict := range conflicts {
		name := conflict.AttendantName
		if name == "" {
			name = attendantName
		}
		reports = append(reports, ConflictReport{
			AttendantName: name,
			EventID:       conflict.EventID,
			EventName:     conflict.EventName,
			Date:          conflict.Date,
		})
	}
	return reports
}

// eventDaySpan counts the inclusive calendar days the event covers.
func eventDaySpan(event Event) int {
	start := scheduler.DateOnly(event.StartDate)
	end := scheduler.DateOnly(event.EndDate)
	if end.Before(start) {
		return 1
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func mapAssignmentRepoError(err error) error {
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
		vErr.add("assignment", "related records are missing")
		return vErr
	}
	return err
}
