package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// AttendantRepository implements persistence.AttendantRepository using SQLite
type AttendantRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAttendantRepository creates a new SQLite attendant repository
func NewAttendantRepository(pool *ConnectionPool) *AttendantRepository {
	return &AttendantRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const attendantColumns = `id, first_name, last_name, email, phone, availability,
	total_assignments, total_hours, user_id, created_at, updated_at`

// CreateAttendant inserts a new attendant profile
func (r *AttendantRepository) CreateAttendant(ctx context.Context, attendant persistence.Attendant) error {
	if attendant.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO attendants (` + attendantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		attendant.ID,
		attendant.FirstName,
		attendant.LastName,
		attendant.Email,
		nullString(attendant.Phone),
		attendant.Availability,
		attendant.TotalAssignments,
		attendant.TotalHours,
		nullString(attendant.UserID),
		formatTime(attendant.CreatedAt),
		formatTime(attendant.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateAttendant updates profile fields. Counters are excluded; they move
// only through AdjustCounters.
func (r *AttendantRepository) UpdateAttendant(ctx context.Context, attendant persistence.Attendant) error {
	query := `
		UPDATE attendants
		SET first_name = ?, last_name = ?, email = ?, phone = ?, availability = ?, user_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		attendant.FirstName,
		attendant.LastName,
		attendant.Email,
		nullString(attendant.Phone),
		attendant.Availability,
		nullString(attendant.UserID),
		formatTime(attendant.UpdatedAt),
		attendant.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// GetAttendant returns an attendant by id
func (r *AttendantRepository) GetAttendant(ctx context.Context, id string) (persistence.Attendant, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+attendantColumns+` FROM attendants WHERE id = ?`, id)

	attendant, err := scanAttendant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Attendant{}, persistence.ErrNotFound
		}
		return persistence.Attendant{}, r.mapper.MapError(err)
	}
	return attendant, nil
}

// ListAttendants returns attendants matching the filter, ordered by name
func (r *AttendantRepository) ListAttendants(ctx context.Context, filter persistence.AttendantFilter) ([]persistence.Attendant, error) {
	query := `SELECT ` + attendantColumns + ` FROM attendants`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, `(first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)`)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Availability != nil {
		conditions = append(conditions, `availability = ?`)
		args = append(args, *filter.Availability)
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY last_name, first_name, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var attendants []persistence.Attendant
	for rows.Next() {
		attendant, err := scanAttendant(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		attendants = append(attendants, attendant)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return attendants, nil
}

// DeleteAttendant removes an attendant. Rows referencing them fail with a
// foreign key violation.
func (r *AttendantRepository) DeleteAttendant(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM attendants WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// AdjustCounters applies relative deltas in one statement so concurrent
// writers cannot lose updates. Totals never drop below zero.
func (r *AttendantRepository) AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error {
	query := `
		UPDATE attendants
		SET total_assignments = MAX(0, total_assignments + ?),
			total_hours = MAX(0, total_hours + ?),
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		deltaAssignments,
		deltaHours,
		formatTime(nowUTC()),
		attendantID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func scanAttendant(scan func(dest ...interface{}) error) (persistence.Attendant, error) {
	var attendant persistence.Attendant
	var phone, userID sql.NullString
	var createdAt, updatedAt string

	err := scan(
		&attendant.ID,
		&attendant.FirstName,
		&attendant.LastName,
		&attendant.Email,
		&phone,
		&attendant.Availability,
		&attendant.TotalAssignments,
		&attendant.TotalHours,
		&userID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Attendant{}, err
	}

	attendant.Phone = stringPtr(phone)
	attendant.UserID = stringPtr(userID)
	if attendant.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Attendant{}, err
	}
	if attendant.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Attendant{}, err
	}
	return attendant, nil
}
