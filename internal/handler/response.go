package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// success shape per route and one error shape everywhere:
//
//	{"error": "validation_error", "message": "name is required", "details": ["name is required"]}
//
// "error" is machine-readable, "message" is for humans, "details" only appears
// for validation failures (one entry per violated field).

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/user-service/internal/apperror"
)

// maxBodyBytes caps request bodies; user payloads are tiny.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string   `json:"error"`             // Machine-readable error type (e.g., "not_found")
	Message string   `json:"message"`           // Human-readable description
	Details []string `json:"details,omitempty"` // Per-field messages for validation errors
}

// MessageResponse is the body of DELETE.
type MessageResponse struct {
	Message string `json:"message"`
}

// fallback is how an error that is not an apperror kind gets reported.
// Most routes answer 500; a few answer 400 "store_error".
type fallback struct {
	status  int
	kind    string
	message string
}

var internalError = fallback{
	status:  http.StatusInternalServerError,
	kind:    "internal_error",
	message: "An internal error occurred",
}

func storeError(message string) fallback {
	return fallback{status: http.StatusBadRequest, kind: "store_error", message: message}
}

// writeJSON sends a JSON response with the given status code.
// Headers and status go out before the body; after Encode starts writing,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it. Errors that
// carry no apperror kind are reported with fb and their text is never sent.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/user: updating user 5: %w", apperror.DuplicateEmail(...))
//
// still maps to duplicate_email.
func writeError(w http.ResponseWriter, err error, fb fallback) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, fb.status, ErrorResponse{Error: fb.kind, Message: fb.message})
		return
	}

	resp := ErrorResponse{Message: appErr.Message}
	status := fb.status

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		resp.Error = "validation_error"
		resp.Details = appErr.Details
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusBadRequest
		resp.Error = "duplicate_email"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		status = http.StatusBadRequest
		resp.Error = "invalid_credentials"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		resp.Error = "not_found"
	default:
		resp.Error = fb.kind
		resp.Message = fb.message
	}

	writeJSON(w, status, resp)
}

// isDomainError reports whether err is one of ours (and so safe to skip logging).
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}

// decodeJSON reads the request body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// userID reads {id} from the route. Ids are positive integers; anything else
// cannot name a user and is reported as not found.
func userID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("user", raw)
	}
	return id, nil
}
