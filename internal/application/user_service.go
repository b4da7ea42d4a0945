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

// UserRepository captures the persistence interactions needed by the user
// service. Email uniqueness is enforced at the storage layer and reported as
// persistence.ErrDuplicate.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByInvitationToken(ctx context.Context, token string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	SetCredentials(ctx context.Context, userID, passwordHash string, acceptedAt time.Time) (User, error)
	SetInvitation(ctx context.Context, userID, token string, expiresAt time.Time) (User, error)
	ListUsers(ctx context.Context, filter UserRepositoryFilter) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserRepositoryFilter narrows user queries.
type UserRepositoryFilter struct {
	Search string
	Role   *Role
	Active *bool
}

// InvitationMailer delivers invitation messages. Failures are logged, never
// surfaced: the invitation row is the source of truth and the token can be
// resent.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, email, displayName, token string, expiresAt time.Time) error
}

const minPasswordLength = 8

// UserService manages accounts and the invitation lifecycle.
type UserService struct {
	users          UserRepository
	mailer         InvitationMailer
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	invitationTTL  time.Duration
	hashPassword   func(string) (string, error)
	logger         *slog.Logger
}

// NewUserService wires dependencies for user operations. tokenGenerator
// produces invitation tokens and may equal idGenerator.
func NewUserService(users UserRepository, mailer InvitationMailer, idGenerator, tokenGenerator func() string, now func() time.Time, invitationTTL time.Duration) *UserService {
	return NewUserServiceWithLogger(users, mailer, idGenerator, tokenGenerator, now, invitationTTL, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, mailer InvitationMailer, idGenerator, tokenGenerator func() string, now func() time.Time, invitationTTL time.Duration, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if invitationTTL <= 0 {
		invitationTTL = 7 * 24 * time.Hour
	}
	return &UserService{
		users:          users,
		mailer:         mailer,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		invitationTTL:  invitationTTL,
		hashPassword: func(password string) (string, error) {
			return HashPassword(password, DefaultPasswordParams)
		},
		logger: defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser creates an invited account: no credentials, a pending invitation
// token, and an invitation mail sent on a best-effort basis.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateUser", "email", normalizeEmail(input.Email))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if err = validateUserInput(input); err != nil {
		return
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       normalizeEmail(input.Email),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        input.Role,
		Invitation: Invitation{
			Status:    InvitationPending,
			Token:     s.tokenGenerator(),
			ExpiresAt: now.Add(s.invitationTTL),
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = s.users.CreateUser(ctx, candidate, "")
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	s.sendInvitation(ctx, user, logger)
	return user, nil
}

// AcceptInvitation exchanges a pending invitation token for credentials. An
// expired token is rejected but left pending so an admin can resend it.
func (s *UserService) AcceptInvitation(ctx context.Context, params AcceptInvitationParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "AcceptInvitation")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "invitation acceptance failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "invitation accepted")
	}()

	token := strings.TrimSpace(params.Token)
	vErr := &ValidationError{}
	if token == "" {
		vErr.add("token", "invitation token is required")
	}
	if len(params.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing User
	existing, err = s.users.GetUserByInvitationToken(ctx, token)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	if existing.Invitation.Status == InvitationAccepted {
		err = ErrInvitationAccepted
		return
	}
	if !existing.Invitation.AcceptableAt(s.now()) {
		err = ErrInvitationExpired
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	user, err = s.users.SetCredentials(ctx, existing.ID, hash, s.now())
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return user, nil
}

// ResendInvitation rotates the token and expiry of a pending invitation and
// sends a fresh mail. Accepted invitations cannot be resent.
func (s *UserService) ResendInvitation(ctx context.Context, principal Principal, userID string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResendInvitation", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "invitation resend failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "invitation resent")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	if existing.Invitation.Status == InvitationAccepted {
		err = ErrInvitationAccepted
		return
	}

	user, err = s.users.SetInvitation(ctx, existing.ID, s.tokenGenerator(), s.now().Add(s.invitationTTL))
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	s.sendInvitation(ctx, user, logger)
	return user, nil
}

// Register creates a self-registered attendant account with credentials set
// immediately, skipping the invitation flow.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register", "email", normalizeEmail(params.Email))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	email := normalizeEmail(params.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, perr := mail.ParseAddress(email); perr != nil {
		vErr.add("email", "email address is invalid")
	}
	if strings.TrimSpace(params.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if len(params.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: strings.TrimSpace(params.DisplayName),
		Role:        RoleAttendant,
		Invitation:  Invitation{Status: InvitationAccepted},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	user, err = s.users.CreateUser(ctx, candidate, hash)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return user, nil
}

// GetUser returns a single account.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin() && principal.UserID != userID {
		return User{}, ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// UpdateUser applies admin edits to an account. Deactivating an account
// blocks future logins without touching existing rows.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if err = validateUserInput(params.Input); err != nil {
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	existing.Email = normalizeEmail(params.Input.Email)
	existing.DisplayName = strings.TrimSpace(params.Input.DisplayName)
	existing.Role = params.Input.Role
	if params.Active != nil {
		existing.Active = *params.Active
	}
	existing.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, existing)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return user, nil
}

// ListUsers enumerates accounts matching the recognized filters, ordered by
// display name.
func (s *UserService) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	if !params.Principal.IsAdmin() {
		return nil, ErrUnauthorized
	}

	users, err := s.users.ListUsers(ctx, UserRepositoryFilter{
		Search: strings.TrimSpace(params.Search),
		Role:   params.Role,
		Active: params.Active,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]User, len(users))
	copy(ordered, users)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DisplayName == ordered[j].DisplayName {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].DisplayName < ordered[j].DisplayName
	})
	return ordered, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if principal.UserID == userID {
		vErr := &ValidationError{}
		vErr.add("user_id", "cannot delete your own account")
		return vErr
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return mapUserRepoError(err)
	}
	s.loggerWith(ctx, "DeleteUser", "user_id", userID).InfoContext(ctx, "user deleted")
	return nil
}

// sendInvitation is fire-and-forget: a mail failure leaves the pending row
// intact and is resolved by resending.
func (s *UserService) sendInvitation(ctx context.Context, user User, logger *slog.Logger) {
	if s.mailer == nil {
		return
	}
	if merr := s.mailer.SendInvitation(ctx, user.Email, user.DisplayName, user.Invitation.Token, user.Invitation.ExpiresAt); merr != nil {
		logger.ErrorContext(ctx, "invitation mail delivery failed", "error", merr)
	}
}

func validateUserInput(input UserInput) error {
	vErr := &ValidationError{}
	email := normalizeEmail(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email address is invalid")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if !input.Role.Valid() {
		vErr.add("role", "role is not recognized")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("email", "email is already in use")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("user_id", "user is referenced by other records")
		return vErr
	}
	return err
}
