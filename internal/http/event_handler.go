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

var errInvalidEventDate = errors.New("dates must use the YYYY-MM-DD format")

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	GetEvent(ctx context.Context, eventID string) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]application.Event, error)
}

type availabilityService interface {
	AvailableAttendants(ctx context.Context, eventID string) ([]application.Attendant, error)
}

type EventHandler struct {
	service      eventService
	availability availabilityService
	responder    responder
	logger       *slog.Logger
}

func NewEventHandler(service eventService, availability availabilityService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, availability: availability, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// List handles GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	events, err := h.service.ListEvents(r.Context(), activeOnly)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list events", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]eventResponse, 0, len(events))
	for _, event := range events {
		payload = append(payload, toEventResponse(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Create handles POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.log(r.Context(), "Create").ErrorContext(r.Context(), "failed to create event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventResponse(event))
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || eventID == "" {
		http.NotFound(w, r)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "failed to get event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventResponse(event))
}

// Update handles PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || eventID == "" {
		http.NotFound(w, r)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     input,
		Active:    req.Active,
	})
	if err != nil {
		h.log(r.Context(), "Update", "event_id", eventID).ErrorContext(r.Context(), "failed to update event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventResponse(event))
}

// AvailableAttendants handles GET /api/events/{id}/attendants
func (h *EventHandler) AvailableAttendants(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || eventID == "" {
		http.NotFound(w, r)
		return
	}

	attendants, err := h.availability.AvailableAttendants(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "AvailableAttendants", "event_id", eventID).ErrorContext(r.Context(), "failed to list available attendants", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]attendantResponse, 0, len(attendants))
	for _, attendant := range attendants {
		payload = append(payload, toAttendantResponse(attendant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type eventRequest struct {
	Name      string `json:"name"`
	EventType string `json:"event_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Location  string `json:"location"`
	Active    *bool  `json:"active,omitempty"`
}

func (req eventRequest) toInput() (application.EventInput, error) {
	input := application.EventInput{
		Name:      req.Name,
		EventType: req.EventType,
		Location:  req.Location,
	}
	if s := strings.TrimSpace(req.StartDate); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return application.EventInput{}, errInvalidEventDate
		}
		input.StartDate = parsed
	}
	if s := strings.TrimSpace(req.EndDate); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return application.EventInput{}, errInvalidEventDate
		}
		input.EndDate = parsed
	}
	return input, nil
}

type eventResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EventType string `json:"event_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Location  string `json:"location"`
	Active    bool   `json:"active"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toEventResponse(event application.Event) eventResponse {
	return eventResponse{
		ID:        event.ID,
		Name:      event.Name,
		EventType: event.EventType,
		StartDate: formatDate(event.StartDate),
		EndDate:   formatDate(event.EndDate),
		Location:  event.Location,
		Active:    event.Active,
		Status:    string(event.Status),
		CreatedAt: formatTimestamp(event.CreatedAt),
		UpdatedAt: formatTimestamp(event.UpdatedAt),
	}
}
