package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// RegistrationHandler handles conference registrations.
type RegistrationHandler struct {
	store     store.Store
	codec     IDCodec
	present   presenter
	publisher Publisher
	logger    *slog.Logger
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(st store.Store, codec IDCodec, pub Publisher, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		store:     st,
		codec:     codec,
		present:   presenter{codec: codec},
		publisher: pub,
		logger:    logger,
	}
}

// RegisterRequest is the public conference registration form.
type RegisterRequest struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Affiliation    string `json:"affiliation"`
	Country        string `json:"country"`
	Category       string `json:"category"`
	AttendanceMode string `json:"attendance_mode"`
}

// List handles GET /v1/registrations?conference=<token>.
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	conferenceID, err := decodeRef(h.codec, r.URL.Query().Get("conference"))
	if err != nil {
		WriteError(w, r, h.logger, err, "invalid conference filter")
		return
	}

	registrations, err := h.store.Registrations().List(r.Context(), conferenceID)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list registrations")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(registrations, h.present.registration))
}

// Get handles GET /v1/registrations/{registrationID}.
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.store.Registrations().Get(r.Context(), middleware.PathID(r.Context(), "registrationID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get registration")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.registration(reg))
}

// Update handles PATCH /v1/registrations/{registrationID}. Only the status is editable.
func (h *RegistrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	reg, err := h.store.Registrations().Get(r.Context(), middleware.PathID(r.Context(), "registrationID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get registration")
		return
	}
	setString(&reg.Status, req.Status)

	if err := h.store.Registrations().Update(r.Context(), reg); err != nil {
		WriteError(w, r, h.logger, err, "failed to update registration", "registration_id", reg.ID)
		return
	}
	h.logger.Info("registration updated", "registration_id", reg.ID, "status", reg.Status)
	WriteJSON(w, http.StatusOK, h.present.registration(reg))
}

// Delete handles DELETE /v1/registrations/{registrationID}.
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "registrationID")
	if err := h.store.Registrations().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete registration", "registration_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /public/conferences/{conferenceID}/registrations.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	c, err := publicConference(r.Context(), h.store, middleware.PathID(r.Context(), "conferenceID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}

	reg := &models.Registration{
		ConferenceID:   c.ID,
		FullName:       req.FullName,
		Email:          req.Email,
		Affiliation:    req.Affiliation,
		Country:        req.Country,
		Category:       req.Category,
		AttendanceMode: req.AttendanceMode,
		Status:         models.StatusPending,
	}
	if err := reg.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid registration")
		return
	}

	err = createWithReference(models.ReferencePrefixRegistration,
		func(ref string) { reg.Reference = ref },
		func() error { return h.store.Registrations().Create(r.Context(), reg) },
	)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to store registration", "conference_id", c.ID)
		return
	}

	view := h.present.registration(reg)
	h.logger.Info("registration received", "registration_id", reg.ID, "conference_id", c.ID, "reference", reg.Reference)
	h.publisher.Publish(&feed.Event{
		Kind:      models.ModuleRegistrations,
		ID:        view.ID,
		Reference: reg.Reference,
		Title:     reg.FullName,
		At:        reg.CreatedAt,
	})
	WriteJSON(w, http.StatusCreated, view)
}
