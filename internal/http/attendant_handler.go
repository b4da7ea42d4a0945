package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendant-coordinator/internal/application"
)

type attendantService interface {
	CreateAttendant(ctx context.Context, params application.CreateAttendantParams) (application.Attendant, error)
	GetAttendant(ctx context.Context, attendantID string) (application.Attendant, error)
	UpdateAttendant(ctx context.Context, params application.UpdateAttendantParams) (application.Attendant, error)
	ListAttendants(ctx context.Context, params application.ListAttendantsParams) ([]application.Attendant, error)
}

type AttendantHandler struct {
	service   attendantService
	responder responder
	logger    *slog.Logger
}

func NewAttendantHandler(service attendantService, logger *slog.Logger) *AttendantHandler {
	base := defaultLogger(logger)
	return &AttendantHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendantHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendantHandler", operation, attrs...)
}

// List handles GET /api/attendants
func (h *AttendantHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListAttendantsParams{
		Principal: principal,
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if availability := strings.TrimSpace(r.URL.Query().Get("availability")); availability != "" {
		typed := application.Availability(availability)
		params.Availability = &typed
	}

	attendants, err := h.service.ListAttendants(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list attendants", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]attendantResponse, 0, len(attendants))
	for _, attendant := range attendants {
		payload = append(payload, toAttendantResponse(attendant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Create handles POST /api/attendants
func (h *AttendantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req attendantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode attendant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	attendant, err := h.service.CreateAttendant(r.Context(), application.CreateAttendantParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.log(r.Context(), "Create").ErrorContext(r.Context(), "failed to create attendant", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAttendantResponse(attendant))
}

// Get handles GET /api/attendants/{id}
func (h *AttendantHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	attendantID, ok := ResourceIDFromContext(r.Context())
	if !ok || attendantID == "" {
		http.NotFound(w, r)
		return
	}

	attendant, err := h.service.GetAttendant(r.Context(), attendantID)
	if err != nil {
		h.log(r.Context(), "Get", "attendant_id", attendantID).ErrorContext(r.Context(), "failed to get attendant", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendantResponse(attendant))
}

// Update handles PUT /api/attendants/{id}
func (h *AttendantHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	attendantID, ok := ResourceIDFromContext(r.Context())
	if !ok || attendantID == "" {
		http.NotFound(w, r)
		return
	}

	var req attendantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode attendant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	attendant, err := h.service.UpdateAttendant(r.Context(), application.UpdateAttendantParams{
		Principal:   principal,
		AttendantID: attendantID,
		Input:       req.toInput(),
	})
	if err != nil {
		h.log(r.Context(), "Update", "attendant_id", attendantID).ErrorContext(r.Context(), "failed to update attendant", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendantResponse(attendant))
}

type attendantRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone,omitempty"`
	Availability string  `json:"availability"`
	UserID       *string `json:"user_id,omitempty"`
}

func (req attendantRequest) toInput() application.AttendantInput {
	return application.AttendantInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Availability: application.Availability(req.Availability),
		UserID:       req.UserID,
	}
}

type attendantResponse struct {
	ID               string  `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	DisplayName      string  `json:"display_name"`
	Email            string  `json:"email"`
	Phone            *string `json:"phone,omitempty"`
	Availability     string  `json:"availability"`
	TotalAssignments int     `json:"total_assignments"`
	TotalHours       float64 `json:"total_hours"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toAttendantResponse(attendant application.Attendant) attendantResponse {
	return attendantResponse{
		ID:               attendant.ID,
		FirstName:        attendant.FirstName,
		LastName:         attendant.LastName,
		DisplayName:      attendant.DisplayName(),
		Email:            attendant.Email,
		Phone:            attendant.Phone,
		Availability:     string(attendant.Availability),
		TotalAssignments: attendant.TotalAssignments,
		TotalHours:       attendant.TotalHours,
		CreatedAt:        formatTimestamp(attendant.CreatedAt),
		UpdatedAt:        formatTimestamp(attendant.UpdatedAt),
	}
}
