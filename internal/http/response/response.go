// Package response writes JSON bodies for handlers that bypass huma, such as
// multipart uploads. Errors use the same {code, message, details} shape as
// the huma endpoints.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/store"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    domainerrors.Code `json:"code"`
	Message string            `json:"message"`
	Details any               `json:"details,omitempty"`
}

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes a 200 OK response.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes err with the status its code maps to. Domain and store
// errors keep their message; anything else is logged and reported as a
// generic 500.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "status", status, "error", err)
	}
	JSON(w, status, body, logger)
}

// Classify maps err to a status code and response body.
func Classify(err error) (int, ErrorBody) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus(), ErrorBody{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		code := domainerrors.CodeBackend
		switch {
		case errors.Is(storeErr, store.ErrNotFound):
			code = domainerrors.CodeNotFound
		case errors.Is(storeErr, store.ErrAlreadyExists):
			code = domainerrors.CodeConflict
		}
		return code.HTTPStatus(), ErrorBody{Code: code, Message: storeErr.Message}
	}

	return http.StatusInternalServerError, ErrorBody{
		Code:    domainerrors.CodeInternal,
		Message: "Internal server error.",
	}
}
