package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/auth"
)

// AuthHandler handles first-run setup, login and the current account.
type AuthHandler struct {
	rbac    *auth.RBACService
	present presenter
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(rbac *auth.RBACService, codec IDCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		rbac:    rbac,
		present: presenter{codec: codec},
		logger:  logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// SessionResponse is returned by setup and login.
type SessionResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// SetupCheck handles GET /auth/setup.
func (h *AuthHandler) SetupCheck(w http.ResponseWriter, r *http.Request) {
	open, err := h.rbac.CanSetup(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to check setup status")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"setup_required": open})
}

// Setup handles POST /auth/setup, creating the first admin.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.rbac.Setup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to create initial admin")
		return
	}

	token, _, err := h.rbac.Login(r.Context(), user.Email, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to issue token", "user_id", user.ID)
		return
	}
	WriteJSON(w, http.StatusCreated, SessionResponse{Token: token, User: h.present.user(user)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, r, "email", "email and password are required")
		return
	}

	token, user, err := h.rbac.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err, "login failed")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	WriteJSON(w, http.StatusOK, SessionResponse{Token: token, User: h.present.user(user)})
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.rbac.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to load current user")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.user(user))
}
