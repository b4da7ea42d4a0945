package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing
	// record, such as a duplicate count session name.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for failed authentication attempts.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a deactivated account attempts to
	// authenticate.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrInvitationExpired is returned when an invitation token is presented
	// after its expiry. The invitation stays pending until it is resent.
	ErrInvitationExpired = errors.New("application: invitation expired")
	// ErrInvitationAccepted is returned when an already-accepted invitation
	// is presented or resent.
	ErrInvitationAccepted = errors.New("application: invitation already accepted")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ScheduleConflictError reports that creating an assignment would give an
// attendant two assignments on the same calendar date. It carries the first
// conflicting event only; the full set is available from CheckConflicts.
type ScheduleConflictError struct {
	AttendantName string
	EventID       string
	EventName     string
	Date          time.Time
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("schedule conflict with %q on %s", e.EventName, e.Date.Format("2006-01-02"))
}

// IsScheduleConflict reports whether err wraps a ScheduleConflictError.
func IsScheduleConflict(err error) bool {
	var conflict *ScheduleConflictError
	return errors.As(err, &conflict)
}
