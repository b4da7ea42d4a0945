package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// AttendantRepository captures the persistence interactions needed by the
// attendant service. AdjustCounters applies relative deltas atomically so
// concurrent assignment writes do not lose updates.
type AttendantRepository interface {
	CreateAttendant(ctx context.Context, attendant Attendant) (Attendant, error)
	GetAttendant(ctx context.Context, id string) (Attendant, error)
	UpdateAttendant(ctx context.Context, attendant Attendant) (Attendant, error)
	ListAttendants(ctx context.Context, filter AttendantRepositoryFilter) ([]Attendant, error)
	DeleteAttendant(ctx context.Context, id string) error
	AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error
}

// AttendantRepositoryFilter narrows attendant queries.
type AttendantRepositoryFilter struct {
	Search       string
	Availability *Availability
}

// AttendantService manages volunteer profiles and their aggregate workload
// counters.
type AttendantService struct {
	attendants  AttendantRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendantService wires dependencies for attendant operations.
func NewAttendantService(attendants AttendantRepository, idGenerator func() string, now func() time.Time) *AttendantService {
	return NewAttendantServiceWithLogger(attendants, idGenerator, now, nil)
}

// NewAttendantServiceWithLogger constructs an AttendantService with a
// specified logger.
func NewAttendantServiceWithLogger(attendants AttendantRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendantService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendantService{
		attendants:  attendants,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendantService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendantService", operation, attrs...)
}

// CreateAttendant validates and persists a new attendant. New attendants
// start available with zeroed counters.
func (s *AttendantService) CreateAttendant(ctx context.Context, params CreateAttendantParams) (attendant Attendant, err error) {
	if s == nil {
		err = fmt.Errorf("AttendantService is nil")
		return
	}
	if s.attendants == nil {
		err = fmt.Errorf("attendant repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateAttendant")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "attendant creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("attendant_id", attendant.ID).InfoContext(ctx, "attendant created")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}
	if err = validateAttendantInput(input); err != nil {
		return
	}

	availability := input.Availability
	if availability == "" {
		availability = AttendantAvailable
	}

	now := s.now()
	candidate := Attendant{
		ID:           s.idGenerator(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        normalizeEmail(input.Email),
		Phone:        input.Phone,
		Availability: availability,
		UserID:       input.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	attendant, err = s.attendants.CreateAttendant(ctx, candidate)
	if err != nil {
		err = mapAttendantRepoError(err)
		return
	}
	return attendant, nil
}

// GetAttendant returns a single attendant.
func (s *AttendantService) GetAttendant(ctx context.Context, attendantID string) (Attendant, error) {
	if s == nil {
		return Attendant{}, fmt.Errorf("AttendantService is nil")
	}
	if s.attendants == nil {
		return Attendant{}, fmt.Errorf("attendant repository not configured")
	}

	attendant, err := s.attendants.GetAttendant(ctx, attendantID)
	if err != nil {
		return Attendant{}, mapAttendantRepoError(err)
	}
	return attendant, nil
}

// UpdateAttendant applies profile changes. Counters are not writable here;
// they only move through assignment creation and deletion.
func (s *AttendantService) UpdateAttendant(ctx context.Context, params UpdateAttendantParams) (attendant Attendant, err error) {
	if s == nil {
		err = fmt.Errorf("AttendantService is nil")
		return
	}
	if s.attendants == nil {
		err = fmt.Errorf("attendant repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateAttendant", "attendant_id", params.AttendantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "attendant update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendant updated")
	}()

	if !params.Principal.Role.AtLeast(RoleOverseer) {
		err = ErrUnauthorized
		return
	}
	if err = validateAttendantInput(params.Input); err != nil {
		return
	}

	var existing Attendant
	existing, err = s.attendants.GetAttendant(ctx, params.AttendantID)
	if err != nil {
		err = mapAttendantRepoError(err)
		return
	}

	existing.FirstName = strings.TrimSpace(params.Input.FirstName)
	existing.LastName = strings.TrimSpace(params.Input.LastName)
	existing.Email = normalizeEmail(params.Input.Email)
	existing.Phone = params.Input.Phone
	if params.Input.Availability != "" {
		existing.Availability = params.Input.Availability
	}
	existing.UserID = params.Input.UserID
	existing.UpdatedAt = s.now()

	attendant, err = s.attendants.UpdateAttendant(ctx, existing)
	if err != nil {
		err = mapAttendantRepoError(err)
		return
	}
	return attendant, nil
}

// ListAttendants enumerates attendants matching the recognized filters,
// ordered by last name then first name.
func (s *AttendantService) ListAttendants(ctx context.Context, params ListAttendantsParams) ([]Attendant, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendantService is nil")
	}
	if s.attendants == nil {
		return nil, fmt.Errorf("attendant repository not configured")
	}

	attendants, err := s.attendants.ListAttendants(ctx, AttendantRepositoryFilter{
		Search:       strings.TrimSpace(params.Search),
		Availability: params.Availability,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Attendant, len(attendants))
	copy(ordered, attendants)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].LastName == ordered[j].LastName {
			return ordered[i].FirstName < ordered[j].FirstName
		}
		return ordered[i].LastName < ordered[j].LastName
	})
	return ordered, nil
}

// DeleteAttendant removes an attendant. Assignments referencing them block
// deletion at the storage layer.
func (s *AttendantService) DeleteAttendant(ctx context.Context, principal Principal, attendantID string) error {
	if s == nil {
		return fmt.Errorf("AttendantService is nil")
	}
	if s.attendants == nil {
		return fmt.Errorf("attendant repository not configured")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	if err := s.attendants.DeleteAttendant(ctx, attendantID); err != nil {
		return mapAttendantRepoError(err)
	}
	s.loggerWith(ctx, "DeleteAttendant", "attendant_id", attendantID).InfoContext(ctx, "attendant deleted")
	return nil
}

// ListAvailableAttendants satisfies AttendantDirectory for the assignment
// service.
func (s *AttendantService) ListAvailableAttendants(ctx context.Context) ([]Attendant, error) {
	availability := AttendantAvailable
	return s.ListAttendants(ctx, ListAttendantsParams{Availability: &availability})
}

// AdjustCounters satisfies AttendantDirectory for the assignment service.
func (s *AttendantService) AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error {
	if s == nil || s.attendants == nil {
		return fmt.Errorf("attendant repository not configured")
	}
	if err := s.attendants.AdjustCounters(ctx, attendantID, deltaAssignments, deltaHours); err != nil {
		return mapAttendantRepoError(err)
	}
	return nil
}

func validateAttendantInput(input AttendantInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.LastName) == "" {
		vErr.add("name", "first or last name is required")
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			vErr.add("email", "email address is invalid")
		}
	}
	if input.Availability != "" && input.Availability != AttendantAvailable && input.Availability != AttendantUnavailable {
		vErr.add("availability", "availability must be AVAILABLE or UNAVAILABLE")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapAttendantRepoError(err error) error {
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
		vErr.add("attendant_id", "attendant is referenced by other records")
		return vErr
	}
	return err
}
