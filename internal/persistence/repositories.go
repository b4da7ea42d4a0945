package persistence

import (
	"context"
	"time"
)

// UserFilter enumerates the recognized user list filters. Fields left at
// their zero value do not constrain the query.
type UserFilter struct {
	Search string
	Role   *string
	Active *bool
}

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByInvitationToken(ctx context.Context, token string) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// EventRepository exposes CRUD operations for events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// AttendantFilter enumerates the recognized attendant list filters.
type AttendantFilter struct {
	Search       string
	Availability *string
}

// AttendantRepository exposes CRUD operations for attendant profiles.
// AdjustCounters applies relative deltas in a single statement so concurrent
// assignment writes cannot lose updates.
type AttendantRepository interface {
	CreateAttendant(ctx context.Context, attendant Attendant) error
	UpdateAttendant(ctx context.Context, attendant Attendant) error
	GetAttendant(ctx context.Context, id string) (Attendant, error)
	ListAttendants(ctx context.Context, filter AttendantFilter) ([]Attendant, error)
	DeleteAttendant(ctx context.Context, id string) error
	AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error
}

// AssignmentFilter narrows assignment queries. OnDate matches the calendar
// day of the denormalized event date.
type AssignmentFilter struct {
	EventID     string
	AttendantID string
	OnDate      *time.Time
}

// AssignmentRepository stores event/attendant assignments. CreateAssignment
// must enforce the one-assignment-per-attendant-per-date invariant at the
// storage layer and report a violation as ErrDuplicate.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// CountSessionFilter narrows count session queries.
type CountSessionFilter struct {
	EventID    string
	ActiveOnly bool
}

// CountRepository stores count sessions and their position counts.
// SessionNameExists reports name collisions among active sessions only.
type CountRepository interface {
	CreateSession(ctx context.Context, session CountSession) error
	GetSession(ctx context.Context, id string) (CountSession, error)
	ListSessions(ctx context.Context, filter CountSessionFilter) ([]CountSession, error)
	SessionNameExists(ctx context.Context, name string) (bool, error)
	DeactivateSession(ctx context.Context, id string, at time.Time) error
	UpsertPositionCount(ctx context.Context, count PositionCount) error
	ListPositionCounts(ctx context.Context, sessionID string) ([]PositionCount, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error)
}
