package application

import "time"

// Role identifies the privilege tier of an account.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleOverseer          Role = "OVERSEER"
	RoleAssistantOverseer Role = "ASSISTANT_OVERSEER"
	RoleKeyman            Role = "KEYMAN"
	RoleAttendant         Role = "ATTENDANT"
)

var roleRank = map[Role]int{
	RoleAttendant:         1,
	RoleKeyman:            2,
	RoleAssistantOverseer: 3,
	RoleOverseer:          4,
	RoleAdmin:             5,
}

// Valid reports whether the role is one of the recognized tiers.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role outranks or equals the other role.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// InvitationStatus tags the invitation lifecycle state of a user account.
type InvitationStatus string

const (
	// InvitationPending marks an account whose holder has not yet set
	// credentials. The token remains valid until ExpiresAt.
	InvitationPending InvitationStatus = "PENDING"
	// InvitationAccepted marks an account with credentials in place.
	InvitationAccepted InvitationStatus = "ACCEPTED"
)

// Invitation is the tagged state of a user's invitation. Pending carries a
// token and expiry; accepted carries neither.
type Invitation struct {
	Status    InvitationStatus
	Token     string
	ExpiresAt time.Time
}

// AcceptableAt reports whether the invitation can be accepted at the given
// instant. An expired pending invitation stays pending but is rejected here
// until it is resent.
func (i Invitation) AcceptableAt(now time.Time) bool {
	return i.Status == InvitationPending && i.Token != "" && now.Before(i.ExpiresAt)
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Invitation  Invitation
	Active      bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Role        Role
}

// CreateUserParams wraps the data required to create an invited user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
	Active    *bool
}

// ListUsersParams wraps the recognized user list filters.
type ListUsersParams struct {
	Principal Principal
	Search    string
	Role      *Role
	Active    *bool
}

// RegisterParams captures a self-registration request. Self-registered
// accounts always start as attendants.
type RegisterParams struct {
	Email       string
	DisplayName string
	Password    string
}

// AcceptInvitationParams captures an invitation acceptance request.
type AcceptInvitationParams struct {
	Token    string
	Password string
}

// EventStatus is derived from the event's dates against the clock.
type EventStatus string

const (
	EventUpcoming EventStatus = "UPCOMING"
	EventCurrent  EventStatus = "CURRENT"
	EventPast     EventStatus = "PAST"
)

// Event represents a gathering with a derived status.
type Event struct {
	ID        string
	Name      string
	EventType string
	StartDate time.Time
	EndDate   time.Time
	Location  string
	Active    bool
	Status    EventStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Name      string
	EventType string
	StartDate time.Time
	EndDate   time.Time
	Location  string
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
	Active    *bool
}

// Availability tags whether an attendant can currently be assigned.
type Availability string

const (
	AttendantAvailable   Availability = "AVAILABLE"
	AttendantUnavailable Availability = "UNAVAILABLE"
)

// Attendant represents a volunteer profile.
type Attendant struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	Phone            *string
	Availability     Availability
	TotalAssignments int
	TotalHours       float64
	UserID           *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayName renders the attendant's full name for listings and conflict
// reports.
func (a Attendant) DisplayName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// AttendantInput captures caller provided attendant fields.
type AttendantInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	Availability Availability
	UserID       *string
}

// CreateAttendantParams wraps the data required to create an attendant.
type CreateAttendantParams struct {
	Principal Principal
	Input     AttendantInput
}

// UpdateAttendantParams wraps the data required to update an attendant.
type UpdateAttendantParams struct {
	Principal   Principal
	AttendantID string
	Input       AttendantInput
}

// ListAttendantsParams wraps the recognized attendant list filters.
type ListAttendantsParams struct {
	Principal    Principal
	Search       string
	Availability *Availability
}

// Assignment represents a persisted assignment with display fields.
type Assignment struct {
	ID            string
	EventID       string
	AttendantID   string
	Position      string
	Notes         string
	EventName     string
	EventDate     time.Time
	AttendantName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AssignmentInput captures caller provided assignment fields. Position and
// notes are optional.
type AssignmentInput struct {
	EventID     string
	AttendantID string
	Position    string
	Notes       string
}

// CreateAssignmentParams wraps the data required to create an assignment.
type CreateAssignmentParams struct {
	Principal Principal
	Input     AssignmentInput
}

// ListAssignmentsParams wraps the recognized assignment list filters.
type ListAssignmentsParams struct {
	Principal   Principal
	EventID     string
	AttendantID string
	OnDate      *time.Time
}

// ConflictReport describes one existing assignment that collides with a
// requested attendant/event pair on the same calendar date.
type ConflictReport struct {
	AttendantName string
	EventID       string
	EventName     string
	Date          time.Time
}

// CountSession represents one scheduled headcount for an event.
type CountSession struct {
	ID          string
	EventID     string
	Name        string
	ScheduledAt time.Time
	Active      bool
	Positions   []PositionCount
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CountSessionInput captures caller provided count session fields. Name is
// optional; an empty name is generated from the event.
type CountSessionInput struct {
	EventID     string
	Name        string
	ScheduledAt time.Time
}

// CreateCountSessionParams wraps the data required to create a count session.
type CreateCountSessionParams struct {
	Principal Principal
	Input     CountSessionInput
}

// PositionCount records one headcount value for one position. Value zero is
// a meaningful recorded count, distinct from a position with no row at all.
type PositionCount struct {
	ID        string
	SessionID string
	Position  string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordPositionCountParams wraps the data required to record one count.
type RecordPositionCountParams struct {
	Principal Principal
	SessionID string
	Position  string
	Value     int
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication.
type AuthenticateResult struct {
	User    User
	Session Session
}
