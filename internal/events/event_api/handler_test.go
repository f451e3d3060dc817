package event_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-events/internal/apperrors"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) Create(ctx context.Context, fields models.EventFields, creator *models.User) (*models.Event, error) {
	args := m.Called(fields, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) Update(ctx context.Context, id int64, fields models.EventFields, requester *models.User) (*models.Event, error) {
	args := m.Called(id, fields, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) Delete(ctx context.Context, id int64, requester *models.User) error {
	return m.Called(id, requester).Error(0)
}

func (m *MockEventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) List(ctx context.Context, page, size int, sortBy string) (models.Page[models.Event], error) {
	args := m.Called(page, size, sortBy)
	return args.Get(0).(models.Page[models.Event]), args.Error(1)
}

func (m *MockEventService) Search(ctx context.Context, q models.SearchQuery) ([]models.Event, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventService) GetAttendees(ctx context.Context, id int64, requester *models.User) ([]models.Attendee, error) {
	args := m.Called(id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attendee), args.Error(1)
}

func (m *MockEventService) Register(ctx context.Context, id int64, user *models.User) (models.RegistrationResult, error) {
	args := m.Called(id, user)
	return args.Get(0).(models.RegistrationResult), args.Error(1)
}

func (m *MockEventService) Pass(ctx context.Context, id int64, user *models.User) ([]byte, error) {
	args := m.Called(id, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockEventService) CheckIn(ctx context.Context, id int64, token string, requester *models.User) (*models.CheckIn, error) {
	args := m.Called(id, token, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckIn), args.Error(1)
}

var alice = &models.User{Email: "alice@example.com", Username: "alice"}

// fakeAuth authenticates every request as alice.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), alice)))
	})
}

func setupRouter(svc EventService) http.Handler {
	h := NewHandler(svc, logger.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/events", h.Routes(fakeAuth))
	return r
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestCreateEventHandler(t *testing.T) {
	svc := new(MockEventService)
	fields := models.EventFields{Name: "Go Meetup", Date: "2099-01-01", Time: "18:00", Location: "Berlin"}
	svc.On("Create", fields, alice).Return(&models.Event{ID: 1, Name: "Go Meetup", CreatorEmail: alice.Email}, nil)

	rec, body := do(t, setupRouter(svc), http.MethodPost, "/api/events",
		`{"name":"Go Meetup","date":"2099-01-01","time":"18:00","location":"Berlin"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["id"])
	assert.Equal(t, alice.Email, data["creatorEmail"])
}

func TestCreateEventValidationEnvelope(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Create", mock.Anything, alice).Return(nil, apperrors.Validation(map[string]string{"name": "Name is required"}))

	rec, body := do(t, setupRouter(svc), http.MethodPost, "/api/events", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(400), body["statusCode"])
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, map[string]interface{}{"name": "Name is required"}, body["data"])
}

func TestBadEventID(t *testing.T) {
	svc := new(MockEventService)
	router := setupRouter(svc)

	for _, path := range []string{"/api/events/abc", "/api/events/0", "/api/events/-3"} {
		rec, _ := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	svc.AssertNotCalled(t, "Get", mock.Anything)
}

func TestErrorStatuses(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Get", int64(404)).Return(nil, apperrors.NotFound("Event not found with id: 404"))
	svc.On("Update", int64(1), mock.Anything, alice).Return(nil, apperrors.Forbidden("You are not the owner of this event"))
	svc.On("Delete", int64(2), alice).Return(apperrors.Internal("Failed to delete the event due to a database error.", assert.AnError))
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodGet, "/api/events/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found with id: 404", body["message"])

	rec, _ = do(t, router, http.MethodPut, "/api/events/1", `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = do(t, router, http.MethodDelete, "/api/events/2", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body["message"], assert.AnError.Error())
}

func TestListEventsDefaults(t *testing.T) {
	svc := new(MockEventService)
	svc.On("List", 0, 10, "id").Return(models.NewPage([]models.Event{{ID: 1}}, 0, 10, 1), nil)
	svc.On("List", 2, 5, "name").Return(models.NewPage[models.Event](nil, 2, 5, 3), nil)
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["totalElements"])
	assert.Len(t, data["content"], 1)

	rec, body = do(t, router, http.MethodGet, "/api/events?page=2&size=5&sortBy=name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["data"].(map[string]interface{})["content"])

	rec, _ = do(t, router, http.MethodGet, "/api/events?page=two", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEventsMessages(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Search", models.SearchQuery{Name: "conference"}).Return([]models.Event{{ID: 1, Name: "Go Conference"}}, nil)
	svc.On("Search", models.SearchQuery{Location: "Mars"}).Return([]models.Event{}, nil)
	router := setupRouter(svc)

	_, body := do(t, router, http.MethodGet, "/api/events/search?name=conference", "")
	assert.Equal(t, "Events fetched successfully", body["message"])

	rec, body := do(t, router, http.MethodGet, "/api/events/search?location=Mars", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No events found matching the criteria", body["message"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestRegisterAttendeeHandler(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Register", int64(3), alice).Return(models.RegistrationResult{EventID: 3}, nil).Once()
	svc.On("Register", int64(3), alice).Return(models.RegistrationResult{EventID: 3, AlreadyRegistered: true}, nil).Once()
	router := setupRouter(svc)

	_, body := do(t, router, http.MethodPost, "/api/events/3/register", "")
	assert.Equal(t, "Attendee successfully added to event", body["message"])

	_, body = do(t, router, http.MethodPost, "/api/events/3/register", "")
	assert.Equal(t, "Attendee already registered for event", body["message"])
	assert.Equal(t, true, body["data"].(map[string]interface{})["alreadyRegistered"])
}

func TestGetPassServesPNG(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Pass", int64(3), alice).Return([]byte("\x89PNG"), nil)

	rec, _ := do(t, setupRouter(svc), http.MethodGet, "/api/events/3/pass", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String())
}

func TestCheckInHandler(t *testing.T) {
	svc := new(MockEventService)
	svc.On("CheckIn", int64(3), "sealed-pass", alice).Return(&models.CheckIn{EventID: 3, Email: "bob@example.com"}, nil)
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodPost, "/api/events/3/checkin", `{"pass":"sealed-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Attendee checked in successfully", body["message"])
	assert.Equal(t, "bob@example.com", body["data"].(map[string]interface{})["email"])

	rec, body = do(t, router, http.MethodPost, "/api/events/3/checkin", `{"pass":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["data"].(map[string]interface{})["body"])
	svc.AssertNumberOfCalls(t, "CheckIn", 1)
}
