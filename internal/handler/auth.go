package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/user-service/internal/service"
	"github.com/sakif/user-service/internal/validate"
)

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// AuthHandler manages self-registration and credential login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account (same rules as POST /users)
//   - HandleLogin    → exchange email + password for a bearer token
//
// The token is returned in the body; clients send it back as
// "Authorization: Bearer <token>".
type AuthHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /register
// Body: {"name": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in validate.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, internalError)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		logUnexpected(h.logger, r, err)
		writeError(w, err, internalError)
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{Message: "User registered", User: user})
}

// HandleLogin verifies credentials and issues a token.
//
// HTTP: POST /login
// Body: {"email": "...", "password": "..."}
//
// Unknown email and wrong password are both 400 invalid_credentials.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in validate.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err, internalError)
		return
	}

	res, err := h.users.Login(r.Context(), in)
	if err != nil {
		logUnexpected(h.logger, r, err)
		writeError(w, err, internalError)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: res.Token})
}
