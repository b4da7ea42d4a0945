package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// AssignmentRepository implements persistence.AssignmentRepository using
// SQLite. The unique index on (attendant_id, event_date) is the enforcement
// point for the one-assignment-per-date rule; a losing concurrent writer
// surfaces as persistence.ErrDuplicate.
type AssignmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewAssignmentRepository creates a new SQLite assignment repository
func NewAssignmentRepository(pool *ConnectionPool) *AssignmentRepository {
	return &AssignmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const assignmentColumns = `id, event_id, attendant_id, position, notes,
	event_name, event_date, attendant_name, created_at, updated_at`

// CreateAssignment inserts an assignment inside a transaction, retrying
// transient lock errors. A same-date collision is reported as ErrDuplicate.
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, assignment persistence.Assignment) error {
	if assignment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				INSERT INTO assignments (` + assignmentColumns + `)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			_, err := r.helper.ExecTx(tx, query,
				assignment.ID,
				assignment.EventID,
				assignment.AttendantID,
				assignment.Position,
				nullString(assignment.Notes),
				assignment.EventName,
				formatDate(assignment.EventDate),
				assignment.AttendantName,
				formatTime(assignment.CreatedAt),
				formatTime(assignment.UpdatedAt),
			)
			return r.mapper.MapError(err)
		})
	})
}

// GetAssignment returns an assignment by id
func (r *AssignmentRepository) GetAssignment(ctx context.Context, id string) (persistence.Assignment, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)

	assignment, err := scanAssignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Assignment{}, persistence.ErrNotFound
		}
		return persistence.Assignment{}, r.mapper.MapError(err)
	}
	return assignment, nil
}

// ListAssignments returns assignments matching the filter, ordered by event
// date then attendant name
func (r *AssignmentRepository) ListAssignments(ctx context.Context, filter persistence.AssignmentFilter) ([]persistence.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, `event_id = ?`)
		args = append(args, filter.EventID)
	}
	if filter.AttendantID != "" {
		conditions = append(conditions, `attendant_id = ?`)
		args = append(args, filter.AttendantID)
	}
	if filter.OnDate != nil {
		conditions = append(conditions, `event_date = ?`)
		args = append(args, formatDate(*filter.OnDate))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY event_date, attendant_name, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var assignments []persistence.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return assignments, nil
}

// DeleteAssignment removes an assignment
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func scanAssignment(scan func(dest ...interface{}) error) (persistence.Assignment, error) {
	var assignment persistence.Assignment
	var notes sql.NullString
	var eventDate, createdAt, updatedAt string

	err := scan(
		&assignment.ID,
		&assignment.EventID,
		&assignment.AttendantID,
		&assignment.Position,
		&notes,
		&assignment.EventName,
		&eventDate,
		&assignment.AttendantName,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Assignment{}, err
	}

	assignment.Notes = stringPtr(notes)
	if assignment.EventDate, err = parseDate(eventDate); err != nil {
		return persistence.Assignment{}, err
	}
	if assignment.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Assignment{}, err
	}
	if assignment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Assignment{}, err
	}
	return assignment, nil
}
