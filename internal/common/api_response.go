package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/dtos/responses"
)

// RespondSuccess writes data wrapped in the success envelope.
func RespondSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	writeJSON(w, statusCode, responses.APIResponse[T]{
		Status:    string(constants.APIStatusOk),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// RespondMessage writes an error envelope with an explicit status.
func RespondMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, responses.APIResponse[any]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
	})
}

// RespondError maps err to its HTTP status. Internal errors are logged and
// never echoed to the client.
func RespondError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.Error("Request failed", "error", err)
		msg = constants.MsgInternal
	}
	RespondMessage(w, code, msg)
}

// StatusFor returns the HTTP status code of a service error.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrSafeMode):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("JSON encode failed", "error", err)
	}
}
