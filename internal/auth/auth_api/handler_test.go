package auth_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
	"ms-events/internal/validation"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func doLogin(h *Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestLogin(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Login", mock.Anything, "alice@example.com", "password1").Return("jwt-token", nil)
	svc.On("Login", mock.Anything, "alice@example.com", "nope-nope").Return("", apperrors.ErrInvalidCredentials)
	h := NewHandler(svc, validation.New(), logger.NewNop())

	rec, body := doLogin(h, `{"email":"alice@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "jwt-token", body["data"])

	rec, body = doLogin(h, `{"email":"alice@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", body["message"])
}

func TestLoginBadInput(t *testing.T) {
	svc := new(MockAuthService)
	h := NewHandler(svc, validation.New(), logger.NewNop())

	rec, _ := doLogin(h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := doLogin(h, `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["data"], "password")

	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}
