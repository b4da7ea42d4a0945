package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/attendant-coordinator/internal/application"
	"github.com/example/attendant-coordinator/internal/persistence"
)

var (
	userCounter      uint64
	eventCounter     uint64
	attendantCounter uint64
)

var referenceTime = time.Date(2024, time.September, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Role         application.Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
// Fixtures come out accepted and active, the shape of an account that already
// completed its invitation.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		Role:         application.RoleAttendant,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole overrides the generated role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserActive sets the active flag on the generated fixture.
func WithUserActive(active bool) UserOption {
	return func(f *UserFixture) {
		f.Active = active
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		Invitation:  application.Invitation{Status: application.InvitationAccepted},
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:                 f.ID,
		Email:              f.Email,
		DisplayName:        f.DisplayName,
		Role:               string(f.Role),
		PasswordHash:       f.PasswordHash,
		InvitationAccepted: true,
		Active:             f.Active,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event record.
type EventFixture struct {
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

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic single-day event fixture with
// optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	start := time.Date(2024, time.September, 14, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(idx))
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EventFixture{
		ID:        id,
		Name:      fmt.Sprintf("Event %03d", idx),
		EventType: "ASSEMBLY",
		StartDate: start,
		EndDate:   start,
		Location:  "Assembly Hall",
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventName overrides the generated event name.
func WithEventName(name string) EventOption {
	return func(f *EventFixture) {
		f.Name = name
	}
}

// WithEventDates sets the start and end dates on the fixture.
func WithEventDates(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

// WithEventActive sets the active flag on the generated fixture.
func WithEventActive(active bool) EventOption {
	return func(f *EventFixture) {
		f.Active = active
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:        f.ID,
		Name:      f.Name,
		EventType: f.EventType,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Location:  f.Location,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		Name:      f.Name,
		EventType: f.EventType,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Location:  f.Location,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// --------------------------- Attendant fixtures ---------------------------

// AttendantFixture represents a deterministic attendant profile.
type AttendantFixture struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Availability application.Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AttendantOption configures the generated attendant fixture.
type AttendantOption func(*AttendantFixture)

// NewAttendantFixture returns a deterministic available attendant fixture with
// optional overrides.
func NewAttendantFixture(opts ...AttendantOption) AttendantFixture {
	idx := atomic.AddUint64(&attendantCounter, 1)
	id := fmt.Sprintf("attendant-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AttendantFixture{
		ID:           id,
		FirstName:    "Attendant",
		LastName:     fmt.Sprintf("%03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		Availability: application.AttendantAvailable,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAttendantID overrides the generated attendant ID.
func WithAttendantID(id string) AttendantOption {
	return func(f *AttendantFixture) {
		f.ID = id
	}
}

// WithAttendantName sets the first and last name on the fixture.
func WithAttendantName(first, last string) AttendantOption {
	return func(f *AttendantFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithAttendantAvailability overrides the generated availability.
func WithAttendantAvailability(availability application.Availability) AttendantOption {
	return func(f *AttendantFixture) {
		f.Availability = availability
	}
}

// Application returns the fixture as an application.Attendant value.
func (f AttendantFixture) Application() application.Attendant {
	return application.Attendant{
		ID:           f.ID,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		Availability: f.Availability,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Attendant value.
func (f AttendantFixture) Persistence() persistence.Attendant {
	return persistence.Attendant{
		ID:           f.ID,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		Availability: string(f.Availability),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
