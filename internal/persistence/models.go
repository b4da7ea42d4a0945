package persistence

import "time"

// User represents an account stored for the coordination service.
type User struct {
	ID                  string
	Email               string
	DisplayName         string
	Role                string
	PasswordHash        string
	InvitationToken     *string
	InvitationExpiresAt *time.Time
	InvitationAccepted  bool
	Active              bool
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Event represents a gathering stored in persistence. Status is derived by
// the application layer and never stored.
type Event struct {
	ID        string
	Name      string
	EventType string
	StartDate time.Time
	EndDate   time.Time
	Location  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attendant represents a volunteer profile with aggregate counters.
type Attendant struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	Phone            *string
	Availability     string
	TotalAssignments int
	TotalHours       float64
	UserID           *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Assignment joins an attendant to an event. Event name/date and the
// attendant display name are denormalized so listings need no joins.
type Assignment struct {
	ID            string
	EventID       string
	AttendantID   string
	Position      string
	Notes         *string
	EventName     string
	EventDate     time.Time
	AttendantName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CountSession represents one scheduled headcount for an event.
type CountSession struct {
	ID          string
	EventID     string
	Name        string
	ScheduledAt time.Time
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PositionCount records one headcount value for one position in a session.
// A stored zero is meaningful; "not yet entered" is the absence of a row.
type PositionCount struct {
	ID        string
	SessionID string
	Position  string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
