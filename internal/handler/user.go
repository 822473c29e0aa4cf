package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/service"
	"github.com/sakif/user-service/internal/validate"
)

// UserResponse is the body of create, update and patch.
type UserResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// UserHandler serves the /users routes and /me.
//
// HANDLER RESPONSIBILITIES:
//   - decode JSON / path / query input
//   - call UserService
//   - map the result to a status code and body
//
// Validation, hashing and store access all live in the service.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleCreate creates a user.
//
// HTTP: POST /users
// Body: {"name": "...", "email": "...", "password": "..."}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in validate.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, internalError)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, storeError("could not create user"))
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{Message: "User created", User: user})
}

// HandleList returns one page of users.
//
// HTTP: GET /users?page=2&limit=5&name=ana
//
// Unparseable page/limit values count as absent and get the defaults.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, err := h.users.List(r.Context(), service.ListQuery{
		Page:  page,
		Limit: limit,
		Name:  q.Get("name"),
	})
	if err != nil {
		h.fail(w, r, err, storeError("could not list users"))
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err, internalError)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, internalError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate replaces name and email.
//
// HTTP: PUT /users/{id}
// Body: {"name": "...", "email": "..."} (a password field is ignored)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err, internalError)
		return
	}

	var in validate.Profile
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, internalError)
		return
	}

	user, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, internalError)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Message: "User updated", User: user})
}

// HandlePatch applies the supplied subset of name, email and password.
//
// HTTP: PATCH /users/{id}
// Body: any subset, e.g. {"name": "NewName"}
func (h *UserHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err, internalError)
		return
	}

	var in validate.Changes
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, internalError)
		return
	}

	user, err := h.users.Patch(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, storeError("could not update user"))
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Message: "User partially updated", User: user})
}

// HandleDelete removes a user.
//
// HTTP: DELETE /users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err, internalError)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, internalError)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted"})
}

// HandleMe returns the user the bearer token was issued to.
//
// HTTP: GET /me
// Auth: Required (RequireBearer puts the claims in the context)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireBearer.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "no token provided"})
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, err, internalError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// fail logs errors that are not domain errors (their text never reaches the
// client) and writes the response.
func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error, fb fallback) {
	logUnexpected(h.logger, r, err)
	writeError(w, err, fb)
}

func logUnexpected(logger *slog.Logger, r *http.Request, err error) {
	if isDomainError(err) {
		return
	}
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
}
