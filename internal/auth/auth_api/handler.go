package auth_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type Validator interface {
	Struct(s any) error
}

type Handler struct {
	AuthService AuthService
	Validator   Validator
	Logger      *logger.Logger
}

func NewHandler(svc AuthService, v Validator, l *logger.Logger) *Handler {
	return &Handler{AuthService: svc, Validator: v, Logger: l}
}

// Login handles POST /api/auth/login and returns the token as data.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, h.Logger, apperrors.Validation(map[string]string{"body": "Invalid request body"}))
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "Login successful", token)
}
