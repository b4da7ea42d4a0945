package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

// CredentialStore exposes the user lookups the auth service needs. The
// password hash travels alongside the user only here; no other service sees
// it.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (User, string, error)
	GetUser(ctx context.Context, id string) (User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

// SessionStore captures the persistence interactions for issued sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, at time.Time) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

// AuthService authenticates users and manages their sessions.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionStore
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService wires dependencies for authentication operations.
func NewAuthService(credentials CredentialStore, sessions SessionStore, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionStore, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate verifies credentials and issues a session. Unknown emails and
// wrong passwords collapse to the same error; an account without credentials
// still holds a pending invitation and cannot log in.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	user, hash, lerr := s.credentials.GetUserByEmail(ctx, email)
	if lerr != nil {
		if errors.Is(lerr, persistence.ErrNotFound) || errors.Is(lerr, ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = lerr
		return
	}
	if !user.Active {
		err = ErrAccountDisabled
		return
	}
	if hash == "" {
		err = ErrInvalidCredentials
		return
	}
	if verr := VerifyPassword(hash, params.Password); verr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session, cerr := s.sessions.CreateSession(ctx, Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     s.tokenGenerator(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if cerr != nil {
		err = cerr
		return
	}

	if lerr := s.credentials.RecordLogin(ctx, user.ID, now); lerr != nil {
		logger.ErrorContext(ctx, "failed to record login time", "error", lerr)
	}
	user.LastLoginAt = &now

	result = AuthenticateResult{User: user, Session: session}
	return result, nil
}

// ValidateSession resolves a session token to the acting principal. Expired
// and revoked sessions are distinguished so handlers can phrase the response.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if s.credentials == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("auth stores not configured")
	}
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if s.now().After(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !user.Active {
		return Principal{}, ErrAccountDisabled
	}

	return Principal{UserID: user.ID, Role: user.Role}, nil
}

// RevokeSession invalidates a session token. Revoking an unknown token is not
// an error.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("auth stores not configured")
	}
	if token == "" {
		return nil
	}

	if err := s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s.loggerWith(ctx, "RevokeSession").InfoContext(ctx, "session revoked")
	return nil
}

// PruneSessions deletes sessions past their expiry and returns how many rows
// were removed.
func (s *AuthService) PruneSessions(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return 0, fmt.Errorf("auth stores not configured")
	}

	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.loggerWith(ctx, "PruneSessions").InfoContext(ctx, "expired sessions pruned", "removed", removed)
	}
	return removed, nil
}
