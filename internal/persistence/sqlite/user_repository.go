package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = `id, email, display_name, role, password_hash,
	invitation_token, invitation_expires_at, invitation_accepted,
	active, last_login_at, created_at, updated_at`

// CreateUser inserts a new user account
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.Role,
		user.PasswordHash,
		nullString(user.InvitationToken),
		nullTime(user.InvitationExpiresAt),
		boolInt(user.InvitationAccepted),
		boolInt(user.Active),
		nullTime(user.LastLoginAt),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser updates an existing user account
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	query := `
		UPDATE users
		SET email = ?, display_name = ?, role = ?, password_hash = ?,
			invitation_token = ?, invitation_expires_at = ?, invitation_accepted = ?,
			active = ?, last_login_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		user.Email,
		user.DisplayName,
		user.Role,
		user.PasswordHash,
		nullString(user.InvitationToken),
		nullTime(user.InvitationExpiresAt),
		boolInt(user.InvitationAccepted),
		boolInt(user.Active),
		nullTime(user.LastLoginAt),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// GetUser returns a user by id
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// GetUserByEmail returns a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

// GetUserByInvitationToken returns the user holding the given pending
// invitation token
func (r *UserRepository) GetUserByInvitationToken(ctx context.Context, token string) (persistence.User, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE invitation_token = ?`, token)
	return r.scanUser(row)
}

// ListUsers returns users matching the filter, ordered by display name
func (r *UserRepository) ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, `(email LIKE ? OR display_name LIKE ?)`)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Role != nil {
		conditions = append(conditions, `role = ?`)
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, `active = ?`)
		args = append(args, boolInt(*filter.Active))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY display_name, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := r.scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

// DeleteUser removes a user account
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func (r *UserRepository) scanUser(row *sql.Row) (persistence.User, error) {
	var user persistence.User
	var token, invitationExpires, lastLogin sql.NullString
	var accepted, active int
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.PasswordHash,
		&token,
		&invitationExpires,
		&accepted,
		&active,
		&lastLogin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, r.mapper.MapError(err)
	}
	return r.buildUser(user, token, invitationExpires, lastLogin, accepted, active, createdAt, updatedAt)
}

func (r *UserRepository) scanUserRows(rows *sql.Rows) (persistence.User, error) {
	var user persistence.User
	var token, invitationExpires, lastLogin sql.NullString
	var accepted, active int
	var createdAt, updatedAt string

	err := rows.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.PasswordHash,
		&token,
		&invitationExpires,
		&accepted,
		&active,
		&lastLogin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return r.buildUser(user, token, invitationExpires, lastLogin, accepted, active, createdAt, updatedAt)
}

func (r *UserRepository) buildUser(user persistence.User, token, invitationExpires, lastLogin sql.NullString, accepted, active int, createdAt, updatedAt string) (persistence.User, error) {
	var err error
	user.InvitationToken = stringPtr(token)
	if user.InvitationExpiresAt, err = timePtr(invitationExpires); err != nil {
		return persistence.User{}, err
	}
	if user.LastLoginAt, err = timePtr(lastLogin); err != nil {
		return persistence.User{}, err
	}
	user.InvitationAccepted = accepted != 0
	user.Active = active != 0
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
