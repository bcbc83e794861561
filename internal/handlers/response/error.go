package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, ErrorMessage{Message: message, StatusCode: http.StatusBadRequest})
}

// FromError maps service errors onto HTTP status codes. Unknown errors hide
// their text behind a generic message.
func FromError(err error) ErrorMessage {
	switch {
	case errors.Is(err, errs.NotFound):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusNotFound}
	case errors.Is(err, errs.Conflict), errors.Is(err, errs.ReportTerminated):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusConflict}
	case errors.Is(err, errs.InvalidArgument):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, errs.QueueFull), errors.Is(err, errs.EngineStopped):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusServiceUnavailable}
	default:
		return ErrorMessage{Message: errs.InternalError.Error(), StatusCode: http.StatusInternalServerError}
	}
}

// Fail writes err and logs it when it is a server side failure.
func Fail(w http.ResponseWriter, logger primary.Logger, action string, err error) {
	msg := FromError(err)
	if msg.StatusCode >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, "error", err)
	}
	WriteError(w, msg)
}
