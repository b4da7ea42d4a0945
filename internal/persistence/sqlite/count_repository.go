package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// CountRepository implements persistence.CountRepository using SQLite. The
// partial unique index on active session names is the enforcement point for
// name uniqueness; a deactivated session frees its name.
type CountRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCountRepository creates a new SQLite count repository
func NewCountRepository(pool *ConnectionPool) *CountRepository {
	return &CountRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const countSessionColumns = `id, event_id, name, scheduled_at, active, created_at, updated_at`

// CreateSession inserts a new count session
func (r *CountRepository) CreateSession(ctx context.Context, session persistence.CountSession) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO count_sessions (` + countSessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.EventID,
		session.Name,
		formatTime(session.ScheduledAt),
		boolInt(session.Active),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetSession returns a count session by id
func (r *CountRepository) GetSession(ctx context.Context, id string) (persistence.CountSession, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+countSessionColumns+` FROM count_sessions WHERE id = ?`, id)

	session, err := scanCountSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.CountSession{}, persistence.ErrNotFound
		}
		return persistence.CountSession{}, r.mapper.MapError(err)
	}
	return session, nil
}

// ListSessions returns count sessions matching the filter, newest scheduled
// first
func (r *CountRepository) ListSessions(ctx context.Context, filter persistence.CountSessionFilter) ([]persistence.CountSession, error) {
	query := `SELECT ` + countSessionColumns + ` FROM count_sessions`
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, `event_id = ?`)
		args = append(args, filter.EventID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, `active = 1`)
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY scheduled_at DESC, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.CountSession
	for rows.Next() {
		session, err := scanCountSession(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// SessionNameExists reports whether an active session already uses the name
func (r *CountRepository) SessionNameExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM count_sessions WHERE name = ? AND active = 1`, name,
	).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

// DeactivateSession retires a session, releasing its name for reuse
func (r *CountRepository) DeactivateSession(ctx context.Context, id string, at time.Time) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE count_sessions SET active = 0, updated_at = ? WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// UpsertPositionCount inserts or replaces the value for one position in a
// session. A stored zero is a meaningful count.
func (r *CountRepository) UpsertPositionCount(ctx context.Context, count persistence.PositionCount) error {
	if count.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO position_counts (id, session_id, position, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, position)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := r.helper.Exec(ctx, query,
		count.ID,
		count.SessionID,
		count.Position,
		count.Value,
		formatTime(count.CreatedAt),
		formatTime(count.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// ListPositionCounts returns the recorded counts for a session, ordered by
// position
func (r *CountRepository) ListPositionCounts(ctx context.Context, sessionID string) ([]persistence.PositionCount, error) {
	query := `
		SELECT id, session_id, position, value, created_at, updated_at
		FROM position_counts
		WHERE session_id = ?
		ORDER BY position
	`
	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var counts []persistence.PositionCount
	for rows.Next() {
		var count persistence.PositionCount
		var createdAt, updatedAt string
		if err := rows.Scan(&count.ID, &count.SessionID, &count.Position, &count.Value, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if count.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if count.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return counts, nil
}

func scanCountSession(scan func(dest ...interface{}) error) (persistence.CountSession, error) {
	var session persistence.CountSession
	var scheduledAt, createdAt, updatedAt string
	var active int

	err := scan(
		&session.ID,
		&session.EventID,
		&session.Name,
		&scheduledAt,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.CountSession{}, err
	}

	session.Active = active != 0
	if session.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return persistence.CountSession{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CountSession{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.CountSession{}, err
	}
	return session, nil
}
