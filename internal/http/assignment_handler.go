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

var errMissingConflictQuery = errors.New("attendant_id and event_id are required")

type assignmentService interface {
	CreateAssignment(ctx context.Context, params application.CreateAssignmentParams) (application.Assignment, error)
	DeleteAssignment(ctx context.Context, principal application.Principal, assignmentID string) error
	ListAssignments(ctx context.Context, params application.ListAssignmentsParams) ([]application.Assignment, error)
	CheckConflicts(ctx context.Context, attendantID, eventID string) ([]application.ConflictReport, error)
}

type AssignmentHandler struct {
	service   assignmentService
	responder responder
	logger    *slog.Logger
}

func NewAssignmentHandler(service assignmentService, logger *slog.Logger) *AssignmentHandler {
	base := defaultLogger(logger)
	return &AssignmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AssignmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AssignmentHandler", operation, attrs...)
}

// List handles GET /api/assignments
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListAssignmentsParams{
		Principal:   principal,
		EventID:     strings.TrimSpace(r.URL.Query().Get("event_id")),
		AttendantID: strings.TrimSpace(r.URL.Query().Get("attendant_id")),
	}
	if on := strings.TrimSpace(r.URL.Query().Get("on")); on != "" {
		parsed, err := time.ParseInLocation("2006-01-02", on, time.UTC)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventDate)
			return
		}
		params.OnDate = &parsed
	}

	assignments, err := h.service.ListAssignments(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list assignments", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]assignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		payload = append(payload, toAssignmentResponse(assignment))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Create handles POST /api/assignments. A same-date collision yields 409 with
// the conflicting event in the body.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create",
		"event_id", req.EventID,
		"attendant_id", req.AttendantID,
	)

	assignment, err := h.service.CreateAssignment(r.Context(), application.CreateAssignmentParams{
		Principal: principal,
		Input: application.AssignmentInput{
			EventID:     req.EventID,
			AttendantID: req.AttendantID,
			Position:    req.Position,
			Notes:       req.Notes,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create assignment", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("assignment_id", assignment.ID).InfoContext(r.Context(), "assignment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAssignmentResponse(assignment))
}

// Delete handles DELETE /api/assignments/{id}
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	assignmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || assignmentID == "" {
		http.NotFound(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteAssignment(r.Context(), principal, assignmentID); err != nil {
		h.log(r.Context(), "Delete", "assignment_id", assignmentID).ErrorContext(r.Context(), "failed to delete assignment", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// CheckConflicts handles GET /api/assignments/conflicts?attendant_id=&event_id=
func (h *AssignmentHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	attendantID := strings.TrimSpace(r.URL.Query().Get("attendant_id"))
	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	if attendantID == "" || eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingConflictQuery)
		return
	}

	reports, err := h.service.CheckConflicts(r.Context(), attendantID, eventID)
	if err != nil {
		h.log(r.Context(), "CheckConflicts", "attendant_id", attendantID, "event_id", eventID).ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := conflictsResponse{
		HasConflicts: len(reports) > 0,
		Conflicts:    make([]conflictDetail, 0, len(reports)),
	}
	for _, report := range reports {
		payload.Conflicts = append(payload.Conflicts, conflictDetail{
			AttendantName: report.AttendantName,
			EventID:       report.EventID,
			EventName:     report.EventName,
			Date:          formatDate(report.Date),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type assignmentRequest struct {
	EventID     string `json:"event_id"`
	AttendantID string `json:"attendant_id"`
	Position    string `json:"position"`
	Notes       string `json:"notes"`
}

type assignmentResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	EventDate     string `json:"event_date"`
	AttendantID   string `json:"attendant_id"`
	AttendantName string `json:"attendant_name"`
	Position      string `json:"position,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type conflictsResponse struct {
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []conflictDetail `json:"conflicts"`
}

func toAssignmentResponse(assignment application.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:            assignment.ID,
		EventID:       assignment.EventID,
		EventName:     assignment.EventName,
		EventDate:     formatDate(assignment.EventDate),
		AttendantID:   assignment.AttendantID,
		AttendantName: assignment.AttendantName,
		Position:      assignment.Position,
		Notes:         assignment.Notes,
		CreatedAt:     formatTimestamp(assignment.CreatedAt),
		UpdatedAt:     formatTimestamp(assignment.UpdatedAt),
	}
}
