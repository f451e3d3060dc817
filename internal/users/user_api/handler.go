package user_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) error
}

type Handler struct {
	UserService UserService
	Logger      *logger.Logger
}

func NewHandler(svc UserService, l *logger.Logger) *Handler {
	return &Handler{UserService: svc, Logger: l}
}

// Register handles POST /api/users/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, h.Logger, apperrors.Validation(map[string]string{"body": "Invalid request body"}))
		return
	}

	if err := h.UserService.Register(r.Context(), req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	utils.WriteSuccess(w, "User created successfully", nil)
}
