package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/attendant-coordinator/internal/persistence"
)

type userRepoStub struct {
	users     map[string]User
	hashes    map[string]string
	createErr error
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{
		users:  make(map[string]User),
		hashes: make(map[string]string),
	}
}

func (s *userRepoStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return User{}, persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	s.hashes[user.ID] = passwordHash
	return user, nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByInvitationToken(ctx context.Context, token string) (User, error) {
	for _, user := range s.users {
		if user.Invitation.Status == InvitationPending && user.Invitation.Token == token {
			return user, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user User) (User, error) {
	if _, ok := s.users[user.ID]; !ok {
		return User{}, persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *userRepoStub) SetCredentials(ctx context.Context, userID, passwordHash string, acceptedAt time.Time) (User, error) {
	user, ok := s.users[userID]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	user.Invitation = Invitation{Status: InvitationAccepted}
	user.UpdatedAt = acceptedAt
	s.users[userID] = user
	s.hashes[userID] = passwordHash
	return user, nil
}

func (s *userRepoStub) SetInvitation(ctx context.Context, userID, token string, expiresAt time.Time) (User, error) {
	user, ok := s.users[userID]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	user.Invitation = Invitation{Status: InvitationPending, Token: token, ExpiresAt: expiresAt}
	s.users[userID] = user
	return user, nil
}

func (s *userRepoStub) ListUsers(ctx context.Context, filter UserRepositoryFilter) ([]User, error) {
	var out []User
	for _, user := range s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type mailerStub struct {
	sent []sentInvitation
	err  error
}

type sentInvitation struct {
	email string
	token string
}

func (m *mailerStub) SendInvitation(ctx context.Context, email, displayName, token string, expiresAt time.Time) error {
	m.sent = append(m.sent, sentInvitation{email: email, token: token})
	return m.err
}

const testInvitationTTL = 7 * 24 * time.Hour

func newUserServiceForTest(repo *userRepoStub, mailer *mailerStub, now func() time.Time) *UserService {
	idCounter := 0
	tokenCounter := 0
	if now == nil {
		now = fixedNow
	}
	return NewUserService(repo, mailer,
		func() string {
			idCounter++
			return fmt.Sprintf("user-%d", idCounter)
		},
		func() string {
			tokenCounter++
			return fmt.Sprintf("token-%d", tokenCounter)
		},
		now, testInvitationTTL)
}

var adminPrincipal = Principal{UserID: "admin-1", Role: RoleAdmin}

func TestUserService_CreateUser_IssuesPendingInvitation(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	mailer := &mailerStub{}
	svc := newUserServiceForTest(repo, mailer, nil)

	user, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "keyman@example.com", DisplayName: "Key Man", Role: RoleKeyman},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if user.Invitation.Status != InvitationPending {
		t.Errorf("expected pending invitation, got %q", user.Invitation.Status)
	}
	if user.Invitation.Token == "" {
		t.Error("expected an invitation token")
	}
	want := fixedNow().Add(testInvitationTTL)
	if !user.Invitation.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, user.Invitation.ExpiresAt)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].token != user.Invitation.Token {
		t.Errorf("expected invitation mail with the issued token, got %v", mailer.sent)
	}
}

func TestUserService_CreateUser_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := newUserServiceForTest(newUserRepoStub(), &mailerStub{}, nil)

	_, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: Principal{UserID: "user-9", Role: RoleOverseer},
		Input:     UserInput{Email: "x@example.com", DisplayName: "X", Role: RoleAttendant},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_CreateUser_MailFailureDoesNotFailCreate(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	mailer := &mailerStub{err: errors.New("smtp unreachable")}
	svc := newUserServiceForTest(repo, mailer, nil)

	user, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "keyman@example.com", DisplayName: "Key Man", Role: RoleKeyman},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, ok := repo.users[user.ID]; !ok {
		t.Fatal("expected pending account persisted despite mail failure")
	}
}

func TestUserService_CreateUser_DuplicateEmailRejected(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	params := CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "dup@example.com", DisplayName: "First", Role: RoleAttendant},
	}
	if _, err := svc.CreateUser(context.Background(), params); err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}

	_, err := svc.CreateUser(context.Background(), params)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["email"]; !ok {
		t.Fatalf("expected email validation error, got %v", vErr.FieldErrors)
	}
}

func TestUserService_AcceptInvitation_BeforeExpiry(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "invitee@example.com", DisplayName: "Invitee", Role: RoleKeyman},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	accepted, err := svc.AcceptInvitation(context.Background(), AcceptInvitationParams{
		Token:    created.Invitation.Token,
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("AcceptInvitation failed: %v", err)
	}
	if accepted.Invitation.Status != InvitationAccepted {
		t.Errorf("expected accepted invitation, got %q", accepted.Invitation.Status)
	}
	if repo.hashes[accepted.ID] == "" {
		t.Error("expected a stored password hash")
	}
}

func TestUserService_AcceptInvitation_ExpiredUntilResent(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	current := fixedNow()
	svc := newUserServiceForTest(repo, &mailerStub{}, func() time.Time { return current })

	created, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "invitee@example.com", DisplayName: "Invitee", Role: RoleKeyman},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	current = current.Add(testInvitationTTL + time.Hour)

	_, err = svc.AcceptInvitation(context.Background(), AcceptInvitationParams{
		Token:    created.Invitation.Token,
		Password: "correct horse battery",
	})
	if !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}

	stored := repo.users[created.ID]
	if stored.Invitation.Status != InvitationPending {
		t.Fatalf("expected expired invitation to stay pending, got %q", stored.Invitation.Status)
	}

	resent, err := svc.ResendInvitation(context.Background(), adminPrincipal, created.ID)
	if err != nil {
		t.Fatalf("ResendInvitation failed: %v", err)
	}
	if resent.Invitation.Token == created.Invitation.Token {
		t.Error("expected resend to rotate the token")
	}

	if _, err := svc.AcceptInvitation(context.Background(), AcceptInvitationParams{
		Token:    resent.Invitation.Token,
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("AcceptInvitation after resend failed: %v", err)
	}
}

func TestUserService_AcceptInvitation_AlreadyAccepted(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: adminPrincipal,
		Input:     UserInput{Email: "invitee@example.com", DisplayName: "Invitee", Role: RoleKeyman},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := svc.AcceptInvitation(context.Background(), AcceptInvitationParams{
		Token:    created.Invitation.Token,
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("AcceptInvitation failed: %v", err)
	}

	_, err = svc.AcceptInvitation(context.Background(), AcceptInvitationParams{
		Token:    created.Invitation.Token,
		Password: "correct horse battery",
	})
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvitationAccepted) {
		t.Fatalf("expected the spent token rejected, got %v", err)
	}
}

func TestUserService_ResendInvitation_AcceptedRejected(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	registered, err := svc.Register(context.Background(), RegisterParams{
		Email:       "self@example.com",
		DisplayName: "Self Registered",
		Password:    "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err = svc.ResendInvitation(context.Background(), adminPrincipal, registered.ID)
	if !errors.Is(err, ErrInvitationAccepted) {
		t.Fatalf("expected ErrInvitationAccepted, got %v", err)
	}
}

func TestUserService_Register_CreatesAcceptedAttendant(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	user, err := svc.Register(context.Background(), RegisterParams{
		Email:       "self@example.com",
		DisplayName: "Self Registered",
		Password:    "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Role != RoleAttendant {
		t.Errorf("expected self-registered account to be an attendant, got %q", user.Role)
	}
	if user.Invitation.Status != InvitationAccepted {
		t.Errorf("expected accepted invitation, got %q", user.Invitation.Status)
	}
	if repo.hashes[user.ID] == "" {
		t.Error("expected a stored password hash")
	}
}

func TestUserService_Register_ShortPasswordRejected(t *testing.T) {
	t.Parallel()

	svc := newUserServiceForTest(newUserRepoStub(), &mailerStub{}, nil)

	_, err := svc.Register(context.Background(), RegisterParams{
		Email:       "self@example.com",
		DisplayName: "Self Registered",
		Password:    "short",
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["password"]; !ok {
		t.Fatalf("expected password validation error, got %v", vErr.FieldErrors)
	}
}

func TestUserService_DeleteUser_SelfDeletionRejected(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	repo.users["admin-1"] = User{ID: "admin-1", Role: RoleAdmin}
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	err := svc.DeleteUser(context.Background(), adminPrincipal, "admin-1")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUserService_GetUser_SelfAccessAllowed(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	repo.users["user-5"] = User{ID: "user-5", Role: RoleAttendant}
	svc := newUserServiceForTest(repo, &mailerStub{}, nil)

	if _, err := svc.GetUser(context.Background(), Principal{UserID: "user-5", Role: RoleAttendant}, "user-5"); err != nil {
		t.Fatalf("expected self access allowed, got %v", err)
	}

	if _, err := svc.GetUser(context.Background(), Principal{UserID: "user-6", Role: RoleAttendant}, "user-5"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for other account, got %v", err)
	}
}
