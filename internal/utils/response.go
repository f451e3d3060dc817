package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
}

func SuccessResponse(status int, message string, data interface{}) APIResponse {
	return APIResponse{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	}
}

func ErrorResponse(status int, message string, data interface{}) APIResponse {
	return APIResponse{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Data:       data,
	}
}

func WriteJSON(w http.ResponseWriter, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	json.NewEncoder(w).Encode(resp)
}

func WriteSuccess(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, SuccessResponse(http.StatusOK, message, data))
}

// WriteError renders err with its mapped status. Server faults are logged
// with their hidden cause; the client only sees the public message.
func WriteError(w http.ResponseWriter, l *logger.Logger, err error) {
	status := apperrors.Status(err)
	if status >= http.StatusInternalServerError {
		l.Error("API", apperrors.CauseOf(err).Error())
	}

	var data interface{}
	if fields := apperrors.FieldErrors(err); fields != nil {
		data = fields
	}
	WriteJSON(w, ErrorResponse(status, PublicMessage(err), data))
}

// PublicMessage capitalizes the sentinel text for the errors that carry no
// message of their own.
func PublicMessage(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.ErrValidation {
		return apperrors.PublicMessage(err)
	}
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, apperrors.ErrValidation):
		return "Validation failed"
	}
	return apperrors.PublicMessage(err)
}
