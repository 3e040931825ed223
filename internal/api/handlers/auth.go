package handlers

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/api/middleware"
	"github.com/felixgeelhaar/finplan/internal/api/respond"
	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/domain"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.Service
	sessions    *middleware.Sessions
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, sessions *middleware.Sessions) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type userEnvelope struct {
	User *UserResponse `json:"user"`
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respond.InvalidBody(w, r, err)
		return
	case errors.Is(err, auth.ErrEmailExists):
		respond.Conflict(w, r, "Email already registered")
		return
	case err != nil:
		respond.Internal(w, r, "Register failed (server)", err)
		return
	}

	h.sessions.Issue(w, result.Token())
	respond.JSON(w, http.StatusOK, userEnvelope{User: &UserResponse{
		ID:    result.User.ID,
		Email: result.User.Email,
		Name:  result.User.Name,
	}})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respond.InvalidBody(w, r, err)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respond.Unauthorized(w, r, "Invalid credentials", nil)
		return
	case err != nil:
		respond.Internal(w, r, "Login failed (server)", err)
		return
	}

	h.sessions.Issue(w, result.Token())
	respond.JSON(w, http.StatusOK, userEnvelope{User: &UserResponse{
		ID:    result.User.ID,
		Email: result.User.Email,
		Name:  result.User.Name,
	}})
}

// Logout deletes the caller's session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.SessionIDFrom(r.Context())); err != nil {
		respond.Internal(w, r, "Logout failed (server)", err)
		return
	}

	h.sessions.Clear(w)
	respond.JSON(w, http.StatusOK, respond.OK)
}

// Me returns the current user, or null for anonymous callers
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.JSON(w, http.StatusOK, userEnvelope{})
		return
	}
	respond.JSON(w, http.StatusOK, userEnvelope{User: &UserResponse{
		ID:    id.UserID,
		Email: id.Email,
		Name:  id.Name,
	}})
}
