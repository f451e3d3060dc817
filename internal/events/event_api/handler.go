package event_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/apperrors"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

const defaultSortBy = "id"

type EventService interface {
	Create(ctx context.Context, fields models.EventFields, creator *models.User) (*models.Event, error)
	Update(ctx context.Context, id int64, fields models.EventFields, requester *models.User) (*models.Event, error)
	Delete(ctx context.Context, id int64, requester *models.User) error
	Get(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, page, size int, sortBy string) (models.Page[models.Event], error)
	Search(ctx context.Context, q models.SearchQuery) ([]models.Event, error)
	GetAttendees(ctx context.Context, id int64, requester *models.User) ([]models.Attendee, error)
	Register(ctx context.Context, id int64, user *models.User) (models.RegistrationResult, error)
	Pass(ctx context.Context, id int64, user *models.User) ([]byte, error)
	CheckIn(ctx context.Context, id int64, token string, requester *models.User) (*models.CheckIn, error)
}

type Handler struct {
	EventService EventService
	Logger       *logger.Logger
}

func NewHandler(svc EventService, l *logger.Logger) *Handler {
	return &Handler{EventService: svc, Logger: l}
}

// Routes mounts the public and bearer-protected event endpoints.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListEvents)
	r.Get("/search", h.SearchEvents)
	r.Get("/{eventId}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.CreateEvent)
		r.Put("/{eventId}", h.UpdateEvent)
		r.Delete("/{eventId}", h.DeleteEvent)
		r.Get("/{eventId}/attendees", h.GetAttendees)
		r.Post("/{eventId}/register", h.RegisterAttendee)
		r.Get("/{eventId}/pass", h.GetPass)
		r.Post("/{eventId}/checkin", h.CheckInAttendee)
	})

	return r
}

func eventID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(map[string]string{"id": "Event id must be a positive integer"})
	}
	return id, nil
}

func decodeFields(r *http.Request) (models.EventFields, error) {
	var fields models.EventFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return fields, apperrors.Validation(map[string]string{"body": "Invalid request body"})
	}
	return fields, nil
}

func queryInt(r *http.Request, name string, def int, bad map[string]string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		bad[name] = name + " must be an integer"
		return def
	}
	return v
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	event, err := h.EventService.Create(r.Context(), fields, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Event created successfully", event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	event, err := h.EventService.Update(r.Context(), id, fields, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Event updated successfully", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	if err := h.EventService.Delete(r.Context(), id, auth.CurrentUser(r.Context())); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Event deleted successfully", nil)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	event, err := h.EventService.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Event fetched successfully", event)
}

// ListEvents handles GET /api/events?page&size&sortBy.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	bad := map[string]string{}
	page := queryInt(r, "page", 0, bad)
	size := queryInt(r, "size", models.DefaultPageSize, bad)
	if len(bad) > 0 {
		utils.WriteError(w, h.Logger, apperrors.Validation(bad))
		return
	}
	sortBy := r.URL.Query().Get("sortBy")
	if sortBy == "" {
		sortBy = defaultSortBy
	}

	result, err := h.EventService.List(r.Context(), page, size, sortBy)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Events fetched successfully", result)
}

func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{
		Name:     q.Get("name"),
		Date:     q.Get("date"),
		Location: q.Get("location"),
	}

	found, err := h.EventService.Search(r.Context(), query)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	message := "Events fetched successfully"
	if len(found) == 0 {
		message = "No events found matching the criteria"
	}
	utils.WriteSuccess(w, message, found)
}

func (h *Handler) GetAttendees(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	attendees, err := h.EventService.GetAttendees(r.Context(), id, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Attendees fetched successfully", attendees)
}

func (h *Handler) RegisterAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	result, err := h.EventService.Register(r.Context(), id, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	message := "Attendee successfully added to event"
	if result.AlreadyRegistered {
		message = "Attendee already registered for event"
	}
	utils.WriteSuccess(w, message, result)
}

// GetPass serves the attendee's QR pass as a PNG.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	png, err := h.EventService.Pass(r.Context(), id, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// CheckInAttendee handles POST /api/events/{eventId}/checkin with the
// scanned pass in the body.
func (h *Handler) CheckInAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, h.Logger, apperrors.Validation(map[string]string{"body": "Invalid request body"}))
		return
	}

	checkIn, err := h.EventService.CheckIn(r.Context(), id, req.Pass, auth.CurrentUser(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Attendee checked in successfully", checkIn)
}
