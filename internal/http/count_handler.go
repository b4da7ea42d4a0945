package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendant-coordinator/internal/application"
)

var (
	errMissingEventID       = errors.New("event_id is required")
	errInvalidScheduledTime = errors.New("scheduled_at must use the RFC 3339 format")
)

type countService interface {
	GenerateSessionName(ctx context.Context, eventID string) (string, error)
	CreateSession(ctx context.Context, params application.CreateCountSessionParams) (application.CountSession, error)
	GetSession(ctx context.Context, sessionID string) (application.CountSession, error)
	ListSessions(ctx context.Context, eventID string, activeOnly bool) ([]application.CountSession, error)
	RecordPositionCount(ctx context.Context, params application.RecordPositionCountParams) (application.PositionCount, error)
}

type CountHandler struct {
	service   countService
	responder responder
	logger    *slog.Logger
}

func NewCountHandler(service countService, logger *slog.Logger) *CountHandler {
	base := defaultLogger(logger)
	return &CountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CountHandler", operation, attrs...)
}

// GenerateName handles GET /api/counts/generate-name?event_id=. The returned
// name is not reserved; calling repeatedly yields the same string until a
// session takes it.
func (h *CountHandler) GenerateName(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	name, err := h.service.GenerateSessionName(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "GenerateName", "event_id", eventID).ErrorContext(r.Context(), "failed to generate session name", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, generateNameResponse{Name: name})
}

// List handles GET /api/counts
func (h *CountHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	activeOnly := r.URL.Query().Get("active") == "true"

	sessions, err := h.service.ListSessions(r.Context(), eventID, activeOnly)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list count sessions", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]countSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		payload = append(payload, toCountSessionResponse(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Create handles POST /api/counts. A duplicate active name yields 409.
func (h *CountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req countSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode count session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var scheduledAt time.Time
	if s := strings.TrimSpace(req.ScheduledAt); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduledTime)
			return
		}
		scheduledAt = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.service.CreateSession(r.Context(), application.CreateCountSessionParams{
		Principal: principal,
		Input: application.CountSessionInput{
			EventID:     req.EventID,
			Name:        req.Name,
			ScheduledAt: scheduledAt,
		},
	})
	if err != nil {
		h.log(r.Context(), "Create", "event_id", req.EventID).ErrorContext(r.Context(), "failed to create count session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCountSessionResponse(session))
}

// Get handles GET /api/counts/{id}
func (h *CountHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || sessionID == "" {
		http.NotFound(w, r)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.log(r.Context(), "Get", "session_id", sessionID).ErrorContext(r.Context(), "failed to get count session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCountSessionResponse(session))
}

// ListPositions handles GET /api/counts/{id}/positions
func (h *CountHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || sessionID == "" {
		http.NotFound(w, r)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.log(r.Context(), "ListPositions", "session_id", sessionID).ErrorContext(r.Context(), "failed to get count session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]positionCountResponse, 0, len(session.Positions))
	for _, count := range session.Positions {
		payload = append(payload, toPositionCountResponse(count))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// RecordPosition handles POST /api/counts/{id}/positions. A value of zero is
// recorded, not discarded.
func (h *CountHandler) RecordPosition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || sessionID == "" {
		http.NotFound(w, r)
		return
	}

	var req positionCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RecordPosition", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode position count request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if req.Value == nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"value": "value is required"},
		})
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.RecordPositionCount(r.Context(), application.RecordPositionCountParams{
		Principal: principal,
		SessionID: sessionID,
		Position:  req.Position,
		Value:     *req.Value,
	})
	if err != nil {
		h.log(r.Context(), "RecordPosition", "session_id", sessionID).ErrorContext(r.Context(), "failed to record position count", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPositionCountResponse(count))
}

type generateNameResponse struct {
	Name string `json:"name"`
}

type countSessionRequest struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	ScheduledAt string `json:"scheduled_at"`
}

type countSessionResponse struct {
	ID          string                  `json:"id"`
	EventID     string                  `json:"event_id"`
	Name        string                  `json:"name"`
	ScheduledAt string                  `json:"scheduled_at"`
	Active      bool                    `json:"active"`
	Positions   []positionCountResponse `json:"positions,omitempty"`
	CreatedAt   string                  `json:"created_at"`
	UpdatedAt   string                  `json:"updated_at"`
}

// Value is a pointer so an omitted field is told apart from an explicit
// zero; only the latter is a recorded count.
type positionCountRequest struct {
	Position string `json:"position"`
	Value    *int   `json:"value"`
}

type positionCountResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Position  string `json:"position"`
	Value     int    `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

func toCountSessionResponse(session application.CountSession) countSessionResponse {
	resp := countSessionResponse{
		ID:          session.ID,
		EventID:     session.EventID,
		Name:        session.Name,
		ScheduledAt: formatTimestamp(session.ScheduledAt),
		Active:      session.Active,
		CreatedAt:   formatTimestamp(session.CreatedAt),
		UpdatedAt:   formatTimestamp(session.UpdatedAt),
	}
	for _, count := range session.Positions {
		resp.Positions = append(resp.Positions, toPositionCountResponse(count))
	}
	return resp
}

func toPositionCountResponse(count application.PositionCount) positionCountResponse {
	return positionCountResponse{
		ID:        count.ID,
		SessionID: count.SessionID,
		Position:  count.Position,
		Value:     count.Value,
		UpdatedAt: formatTimestamp(count.UpdatedAt),
	}
}
