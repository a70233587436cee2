package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
)

// SubadminHandler lets admins manage subadmin accounts and their grants.
type SubadminHandler struct {
	rbac    *auth.RBACService
	present presenter
	logger  *slog.Logger
}

// NewSubadminHandler creates a new subadmin handler.
func NewSubadminHandler(rbac *auth.RBACService, codec IDCodec, logger *slog.Logger) *SubadminHandler {
	return &SubadminHandler{
		rbac:    rbac,
		present: presenter{codec: codec},
		logger:  logger,
	}
}

// CreateSubadminRequest is the body of POST /v1/subadmins.
type CreateSubadminRequest struct {
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	Password    string               `json:"password"`
	Permissions models.PermissionSet `json:"permissions"`
}

// Catalog handles GET /v1/permissions/catalog.
func (h *SubadminHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.rbac.Catalog())
}

// List handles GET /v1/subadmins.
func (h *SubadminHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.rbac.ListSubadmins(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list subadmins")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(users, h.present.user))
}

// Create handles POST /v1/subadmins.
func (h *SubadminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubadminRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	createdBy := middleware.GetUserID(r.Context())
	user, err := h.rbac.CreateSubadmin(r.Context(), createdBy, req.Email, req.Name, req.Password, req.Permissions)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to create subadmin")
		return
	}
	WriteJSON(w, http.StatusCreated, h.present.user(user))
}

// Get handles GET /v1/subadmins/{userID}.
func (h *SubadminHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.rbac.GetUser(r.Context(), middleware.PathID(r.Context(), "userID"))
	if err == nil && user.Role != models.RoleSubadmin {
		err = auth.ErrUserNotFound
	}
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get subadmin")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.user(user))
}

// UpdatePermissions handles PUT /v1/subadmins/{userID}/permissions.
func (h *SubadminHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions models.PermissionSet `json:"permissions"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	userID := middleware.PathID(r.Context(), "userID")
	user, err := h.rbac.UpdatePermissions(r.Context(), userID, req.Permissions)
	if err != nil {
		h.writeSubadminError(w, r, err, "failed to update permissions", userID)
		return
	}
	h.logger.Info("subadmin permissions updated", "user_id", userID, "permissions", user.Permissions.Strings())
	WriteJSON(w, http.StatusOK, h.present.user(user))
}

// Update handles PATCH /v1/subadmins/{userID}, toggling the active flag.
func (h *SubadminHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		WriteBadRequest(w, r, "active", "active is required")
		return
	}

	userID := middleware.PathID(r.Context(), "userID")
	user, err := h.rbac.SetActive(r.Context(), userID, *req.Active)
	if err != nil {
		h.writeSubadminError(w, r, err, "failed to update subadmin", userID)
		return
	}
	h.logger.Info("subadmin updated", "user_id", userID, "active", user.Active)
	WriteJSON(w, http.StatusOK, h.present.user(user))
}

// Delete handles DELETE /v1/subadmins/{userID}.
func (h *SubadminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.PathID(r.Context(), "userID")
	if err := h.rbac.RemoveSubadmin(r.Context(), userID); err != nil {
		WriteError(w, r, h.logger, err, "failed to remove subadmin", "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSubadminError hides admin accounts behind 404 on subadmin routes.
func (h *SubadminHandler) writeSubadminError(w http.ResponseWriter, r *http.Request, err error, msg string, userID int64) {
	if errors.Is(err, auth.ErrNotSubadmin) {
		err = auth.ErrUserNotFound
	}
	WriteError(w, r, h.logger, err, msg, "user_id", userID)
}
