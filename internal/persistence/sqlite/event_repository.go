package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = `id, name, event_type, start_date, end_date, location, active, created_at, updated_at`

// CreateEvent inserts a new event
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		event.ID,
		event.Name,
		event.EventType,
		formatDate(event.StartDate),
		formatDate(event.EndDate),
		event.Location,
		boolInt(event.Active),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateEvent updates an existing event
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	query := `
		UPDATE events
		SET name = ?, event_type = ?, start_date = ?, end_date = ?, location = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		event.Name,
		event.EventType,
		formatDate(event.StartDate),
		formatDate(event.EndDate),
		event.Location,
		boolInt(event.Active),
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// GetEvent returns an event by id
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)

	event, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns events ordered by start date
func (r *EventRepository) ListEvents(ctx context.Context, activeOnly bool) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY start_date, name, id`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes an event. Rows referencing it fail with a foreign key
// violation.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func scanEvent(scan func(dest ...interface{}) error) (persistence.Event, error) {
	var event persistence.Event
	var startDate, endDate, createdAt, updatedAt string
	var active int

	err := scan(
		&event.ID,
		&event.Name,
		&event.EventType,
		&startDate,
		&endDate,
		&event.Location,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	event.Active = active != 0
	if event.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Event{}, err
	}
	if event.EndDate, err = parseDate(endDate); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
