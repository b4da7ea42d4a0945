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
)

// CountSessionRepository captures the persistence interactions needed by the
// count service. CreateSession enforces active-name uniqueness at the
// storage layer and reports collisions as persistence.ErrDuplicate.
type CountSessionRepository interface {
	CreateSession(ctx context.Context, session CountSession) (CountSession, error)
	GetSession(ctx context.Context, id string) (CountSession, error)
	ListSessions(ctx context.Context, filter CountSessionRepositoryFilter) ([]CountSession, error)
	SessionNameExists(ctx context.Context, name string) (bool, error)
	UpsertPositionCount(ctx context.Context, count PositionCount) (PositionCount, error)
	ListPositionCounts(ctx context.Context, sessionID string) ([]PositionCount, error)
}

// CountSessionRepositoryFilter narrows count session queries.
type CountSessionRepositoryFilter struct {
	EventID    string
	ActiveOnly bool
}

// The probe gives up past this suffix; the per-event session cardinality is
// expected to stay far below it.
const maxNameProbe = 1000

// CountService manages headcount sessions and their position counts.
type CountService struct {
	sessions    CountSessionRepository
	events      EventCatalog
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCountService wires dependencies for count session operations.
func NewCountService(sessions CountSessionRepository, events EventCatalog, idGenerator func() string, now func() time.Time) *CountService {
	return NewCountServiceWithLogger(sessions, events, idGenerator, now, nil)
}

// NewCountServiceWithLogger constructs a CountService with a specified logger.
func NewCountServiceWithLogger(sessions CountSessionRepository, events EventCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CountService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CountService{
		sessions:    sessions,
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CountService", operation, attrs...)
}

// GenerateSessionName produces "{event name} Count - {date}", probing with a
// " (n)" suffix until the name is unique among active sessions. Generation
// alone reserves nothing: repeated calls before a session is created return
// the same string.
func (s *CountService) GenerateSessionName(ctx context.Context, eventID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("CountService is nil")
	}
	if s.events == nil {
		return "", fmt.Errorf("event catalog not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return "", mapCountRepoError(err)
	}

	base := fmt.Sprintf("%s Count - %s", event.Name, s.now().Format("2006-01-02"))
	name := base
	for n := 1; n <= maxNameProbe; n++ {
		exists, err := s.sessions.SessionNameExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return "", fmt.Errorf("could not find a unique session name for event %s", eventID)
}

// CreateSession creates a count session. An empty name is generated from the
// event; a duplicate active name fails with ErrAlreadyExists whether caught
// by the pre-check or by the storage constraint.
func (s *CountService) CreateSession(ctx context.Context, params CreateCountSessionParams) (session CountSession, err error) {
	if s == nil {
		err = fmt.Errorf("CountService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("count session repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateSession", "event_id", input.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "count session creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID, "session_name", session.Name).InfoContext(ctx, "count session created")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.EventID) == "" {
		vErr.add("event_id", "event is required")
	}
	if input.ScheduledAt.IsZero() {
		vErr.add("scheduled_at", "scheduled time is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.events.GetEvent(ctx, input.EventID); err != nil {
		err = mapCountRepoError(err)
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, err = s.GenerateSessionName(ctx, input.EventID)
		if err != nil {
			return
		}
	} else {
		var exists bool
		exists, err = s.sessions.SessionNameExists(ctx, name)
		if err != nil {
			return
		}
		if exists {
			err = ErrAlreadyExists
			return
		}
	}

	now := s.now()
	candidate := CountSession{
		ID:          s.idGenerator(),
		EventID:     input.EventID,
		Name:        name,
		ScheduledAt: input.ScheduledAt,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	session, err = s.sessions.CreateSession(ctx, candidate)
	if err != nil {
		err = mapCountRepoError(err)
		return
	}
	return session, nil
}

// GetSession returns a session with its recorded position counts. Positions
// with no recorded row are simply absent, which is distinct from a recorded
// zero.
func (s *CountService) GetSession(ctx context.Context, sessionID string) (CountSession, error) {
	if s == nil {
		return CountSession{}, fmt.Errorf("CountService is nil")
	}
	if s.sessions == nil {
		return CountSession{}, fmt.Errorf("count session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return CountSession{}, mapCountRepoError(err)
	}

	positions, err := s.sessions.ListPositionCounts(ctx, sessionID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return CountSession{}, err
	}
	session.Positions = positions
	return session, nil
}

// ListSessions enumerates count sessions, newest scheduled first.
func (s *CountService) ListSessions(ctx context.Context, eventID string, activeOnly bool) ([]CountSession, error) {
	if s == nil {
		return nil, fmt.Errorf("CountService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("count session repository not configured")
	}

	sessions, err := s.sessions.ListSessions(ctx, CountSessionRepositoryFilter{
		EventID:    eventID,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]CountSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ScheduledAt.Equal(ordered[j].ScheduledAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].ScheduledAt.After(ordered[j].ScheduledAt)
	})
	return ordered, nil
}

// RecordPositionCount stores one position's value for a session. Zero is a
// valid recorded value.
func (s *CountService) RecordPositionCount(ctx context.Context, params RecordPositionCountParams) (count PositionCount, err error) {
	if s == nil {
		err = fmt.Errorf("CountService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("count session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RecordPositionCount",
		"session_id", params.SessionID,
		"position", params.Position,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "position count rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "position count recorded", "value", count.Value)
	}()

	if !params.Principal.Role.AtLeast(RoleKeyman) {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Position) == "" {
		vErr.add("position", "position is required")
	}
	if params.Value < 0 {
		vErr.add("value", "count must not be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var session CountSession
	session, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapCountRepoError(err)
		return
	}
	if !session.Active {
		vErr.add("session_id", "session is no longer active")
		err = vErr
		return
	}

	now := s.now()
	count, err = s.sessions.UpsertPositionCount(ctx, PositionCount{
		ID:        s.idGenerator(),
		SessionID: session.ID,
		Position:  strings.TrimSpace(params.Position),
		Value:     params.Value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = mapCountRepoError(err)
		return
	}
	return count, nil
}

func mapCountRepoError(err error) error {
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
		vErr.add("event_id", "related records are missing")
		return vErr
	}
	return err
}
