package main

import (
	"context"
	"time"

	"github.com/example/attendant-coordinator/internal/application"
	"github.com/example/attendant-coordinator/internal/persistence"
)

// The adapters below bridge the application service interfaces, which speak
// application models, to the SQLite repositories, which speak persistence
// models. Writes re-read the stored row so callers observe exactly what was
// persisted.

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByInvitationToken(ctx context.Context, token string) (application.User, error) {
	stored, err := a.repo.GetUserByInvitationToken(ctx, token)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) SetCredentials(ctx context.Context, userID, passwordHash string, acceptedAt time.Time) (application.User, error) {
	current, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return application.User{}, err
	}
	current.PasswordHash = passwordHash
	current.InvitationToken = nil
	current.InvitationExpiresAt = nil
	current.InvitationAccepted = true
	current.UpdatedAt = acceptedAt
	if err := a.repo.UpdateUser(ctx, current); err != nil {
		return application.User{}, err
	}
	return toApplicationUser(current), nil
}

func (a *userRepositoryAdapter) SetInvitation(ctx context.Context, userID, token string, expiresAt time.Time) (application.User, error) {
	current, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return application.User{}, err
	}
	current.InvitationToken = &token
	current.InvitationExpiresAt = &expiresAt
	current.InvitationAccepted = false
	current.UpdatedAt = time.Now().UTC()
	if err := a.repo.UpdateUser(ctx, current); err != nil {
		return application.User{}, err
	}
	return toApplicationUser(current), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context, filter application.UserRepositoryFilter) ([]application.User, error) {
	persistedFilter := persistence.UserFilter{
		Search: filter.Search,
		Active: filter.Active,
	}
	if filter.Role != nil {
		role := string(*filter.Role)
		persistedFilter.Role = &role
	}
	models, err := a.repo.ListUsers(ctx, persistedFilter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, string, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, "", err
	}
	return toApplicationUser(stored), stored.PasswordHash, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *credentialStoreAdapter) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	current, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	current.LastLoginAt = &at
	current.UpdatedAt = at
	return a.repo.UpdateUser(ctx, current)
}

type sessionStoreAdapter struct {
	repo persistence.SessionRepository
}

func newSessionStoreAdapter(repo persistence.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) GetSessionByToken(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) RevokeSession(ctx context.Context, token string, at time.Time) error {
	_, err := a.repo.RevokeSession(ctx, token, at)
	return err
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	return a.repo.DeleteExpiredSessions(ctx, before)
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, activeOnly bool) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type attendantRepositoryAdapter struct {
	repo persistence.AttendantRepository
}

func newAttendantRepositoryAdapter(repo persistence.AttendantRepository) *attendantRepositoryAdapter {
	return &attendantRepositoryAdapter{repo: repo}
}

func (a *attendantRepositoryAdapter) CreateAttendant(ctx context.Context, attendant application.Attendant) (application.Attendant, error) {
	if err := a.repo.CreateAttendant(ctx, toPersistenceAttendant(attendant)); err != nil {
		return application.Attendant{}, err
	}
	stored, err := a.repo.GetAttendant(ctx, attendant.ID)
	if err != nil {
		return application.Attendant{}, err
	}
	return toApplicationAttendant(stored), nil
}

func (a *attendantRepositoryAdapter) GetAttendant(ctx context.Context, id string) (application.Attendant, error) {
	stored, err := a.repo.GetAttendant(ctx, id)
	if err != nil {
		return application.Attendant{}, err
	}
	return toApplicationAttendant(stored), nil
}

func (a *attendantRepositoryAdapter) UpdateAttendant(ctx context.Context, attendant application.Attendant) (application.Attendant, error) {
	if err := a.repo.UpdateAttendant(ctx, toPersistenceAttendant(attendant)); err != nil {
		return application.Attendant{}, err
	}
	stored, err := a.repo.GetAttendant(ctx, attendant.ID)
	if err != nil {
		return application.Attendant{}, err
	}
	return toApplicationAttendant(stored), nil
}

func (a *attendantRepositoryAdapter) ListAttendants(ctx context.Context, filter application.AttendantRepositoryFilter) ([]application.Attendant, error) {
	persistedFilter := persistence.AttendantFilter{Search: filter.Search}
	if filter.Availability != nil {
		availability := string(*filter.Availability)
		persistedFilter.Availability = &availability
	}
	models, err := a.repo.ListAttendants(ctx, persistedFilter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	attendants := make([]application.Attendant, 0, len(models))
	for _, model := range models {
		attendants = append(attendants, toApplicationAttendant(model))
	}
	return attendants, nil
}

func (a *attendantRepositoryAdapter) DeleteAttendant(ctx context.Context, id string) error {
	return a.repo.DeleteAttendant(ctx, id)
}

func (a *attendantRepositoryAdapter) AdjustCounters(ctx context.Context, attendantID string, deltaAssignments int, deltaHours float64) error {
	return a.repo.AdjustCounters(ctx, attendantID, deltaAssignments, deltaHours)
}

type assignmentRepositoryAdapter struct {
	repo persistence.AssignmentRepository
}

func newAssignmentRepositoryAdapter(repo persistence.AssignmentRepository) *assignmentRepositoryAdapter {
	return &assignmentRepositoryAdapter{repo: repo}
}

func (a *assignmentRepositoryAdapter) CreateAssignment(ctx context.Context, assignment application.Assignment) (application.Assignment, error) {
	if err := a.repo.CreateAssignment(ctx, toPersistenceAssignment(assignment)); err != nil {
		return application.Assignment{}, err
	}
	stored, err := a.repo.GetAssignment(ctx, assignment.ID)
	if err != nil {
		return application.Assignment{}, err
	}
	return toApplicationAssignment(stored), nil
}

func (a *assignmentRepositoryAdapter) GetAssignment(ctx context.Context, id string) (application.Assignment, error) {
	stored, err := a.repo.GetAssignment(ctx, id)
	if err != nil {
		return application.Assignment{}, err
	}
	return toApplicationAssignment(stored), nil
}

func (a *assignmentRepositoryAdapter) ListAssignments(ctx context.Context, filter application.AssignmentRepositoryFilter) ([]application.Assignment, error) {
	models, err := a.repo.ListAssignments(ctx, persistence.AssignmentFilter{
		EventID:     filter.EventID,
		AttendantID: filter.AttendantID,
		OnDate:      filter.OnDate,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	assignments := make([]application.Assignment, 0, len(models))
	for _, model := range models {
		assignments = append(assignments, toApplicationAssignment(model))
	}
	return assignments, nil
}

func (a *assignmentRepositoryAdapter) DeleteAssignment(ctx context.Context, id string) error {
	return a.repo.DeleteAssignment(ctx, id)
}

type countRepositoryAdapter struct {
	repo persistence.CountRepository
}

func newCountRepositoryAdapter(repo persistence.CountRepository) *countRepositoryAdapter {
	return &countRepositoryAdapter{repo: repo}
}

func (a *countRepositoryAdapter) CreateSession(ctx context.Context, session application.CountSession) (application.CountSession, error) {
	if err := a.repo.CreateSession(ctx, toPersistenceCountSession(session)); err != nil {
		return application.CountSession{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.CountSession{}, err
	}
	return toApplicationCountSession(stored), nil
}

func (a *countRepositoryAdapter) GetSession(ctx context.Context, id string) (application.CountSession, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.CountSession{}, err
	}
	return toApplicationCountSession(stored), nil
}

func (a *countRepositoryAdapter) ListSessions(ctx context.Context, filter application.CountSessionRepositoryFilter) ([]application.CountSession, error) {
	models, err := a.repo.ListSessions(ctx, persistence.CountSessionFilter{
		EventID:    filter.EventID,
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.CountSession, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationCountSession(model))
	}
	return sessions, nil
}

func (a *countRepositoryAdapter) SessionNameExists(ctx context.Context, name string) (bool, error) {
	return a.repo.SessionNameExists(ctx, name)
}

func (a *countRepositoryAdapter) UpsertPositionCount(ctx context.Context, count application.PositionCount) (application.PositionCount, error) {
	if err := a.repo.UpsertPositionCount(ctx, persistence.PositionCount{
		ID:        count.ID,
		SessionID: count.SessionID,
		Position:  count.Position,
		Value:     count.Value,
		CreatedAt: count.CreatedAt,
		UpdatedAt: count.UpdatedAt,
	}); err != nil {
		return application.PositionCount{}, err
	}
	return count, nil
}

func (a *countRepositoryAdapter) ListPositionCounts(ctx context.Context, sessionID string) ([]application.PositionCount, error) {
	models, err := a.repo.ListPositionCounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	counts := make([]application.PositionCount, 0, len(models))
	for _, model := range models {
		counts = append(counts, application.PositionCount{
			ID:        model.ID,
			SessionID: model.SessionID,
			Position:  model.Position,
			Value:     model.Value,
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
		})
	}
	return counts, nil
}

func toApplicationUser(model persistence.User) application.User {
	invitation := application.Invitation{Status: application.InvitationAccepted}
	if !model.InvitationAccepted {
		invitation = application.Invitation{Status: application.InvitationPending}
		if model.InvitationToken != nil {
			invitation.Token = *model.InvitationToken
		}
		if model.InvitationExpiresAt != nil {
			invitation.ExpiresAt = *model.InvitationExpiresAt
		}
	}
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		Role:        application.Role(model.Role),
		Invitation:  invitation,
		Active:      model.Active,
		LastLoginAt: cloneTime(model.LastLoginAt),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	model := persistence.User{
		ID:                 user.ID,
		Email:              user.Email,
		DisplayName:        user.DisplayName,
		Role:               string(user.Role),
		PasswordHash:       passwordHash,
		InvitationAccepted: user.Invitation.Status == application.InvitationAccepted,
		Active:             user.Active,
		LastLoginAt:        cloneTime(user.LastLoginAt),
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}
	if user.Invitation.Status == application.InvitationPending && user.Invitation.Token != "" {
		token := user.Invitation.Token
		expires := user.Invitation.ExpiresAt
		model.InvitationToken = &token
		model.InvitationExpiresAt = &expires
	}
	return model
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:        model.ID,
		Name:      model.Name,
		EventType: model.EventType,
		StartDate: model.StartDate,
		EndDate:   model.EndDate,
		Location:  model.Location,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:        event.ID,
		Name:      event.Name,
		EventType: event.EventType,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		Location:  event.Location,
		Active:    event.Active,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func toApplicationAttendant(model persistence.Attendant) application.Attendant {
	return application.Attendant{
		ID:               model.ID,
		FirstName:        model.FirstName,
		LastName:         model.LastName,
		Email:            model.Email,
		Phone:            cloneString(model.Phone),
		Availability:     application.Availability(model.Availability),
		TotalAssignments: model.TotalAssignments,
		TotalHours:       model.TotalHours,
		UserID:           cloneString(model.UserID),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toPersistenceAttendant(attendant application.Attendant) persistence.Attendant {
	return persistence.Attendant{
		ID:               attendant.ID,
		FirstName:        attendant.FirstName,
		LastName:         attendant.LastName,
		Email:            attendant.Email,
		Phone:            cloneString(attendant.Phone),
		Availability:     string(attendant.Availability),
		TotalAssignments: attendant.TotalAssignments,
		TotalHours:       attendant.TotalHours,
		UserID:           cloneString(attendant.UserID),
		CreatedAt:        attendant.CreatedAt,
		UpdatedAt:        attendant.UpdatedAt,
	}
}

func toApplicationAssignment(model persistence.Assignment) application.Assignment {
	notes := ""
	if model.Notes != nil {
		notes = *model.Notes
	}
	return application.Assignment{
		ID:            model.ID,
		EventID:       model.EventID,
		AttendantID:   model.AttendantID,
		Position:      model.Position,
		Notes:         notes,
		EventName:     model.EventName,
		EventDate:     model.EventDate,
		AttendantName: model.AttendantName,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceAssignment(assignment application.Assignment) persistence.Assignment {
	var notes *string
	if assignment.Notes != "" {
		value := assignment.Notes
		notes = &value
	}
	return persistence.Assignment{
		ID:            assignment.ID,
		EventID:       assignment.EventID,
		AttendantID:   assignment.AttendantID,
		Position:      assignment.Position,
		Notes:         notes,
		EventName:     assignment.EventName,
		EventDate:     assignment.EventDate,
		AttendantName: assignment.AttendantName,
		CreatedAt:     assignment.CreatedAt,
		UpdatedAt:     assignment.UpdatedAt,
	}
}

func toApplicationCountSession(model persistence.CountSession) application.CountSession {
	return application.CountSession{
		ID:          model.ID,
		EventID:     model.EventID,
		Name:        model.Name,
		ScheduledAt: model.ScheduledAt,
		Active:      model.Active,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceCountSession(session application.CountSession) persistence.CountSession {
	return persistence.CountSession{
		ID:          session.ID,
		EventID:     session.EventID,
		Name:        session.Name,
		ScheduledAt: session.ScheduledAt,
		Active:      session.Active,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
