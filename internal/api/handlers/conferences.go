package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// ConferenceHandler handles conference endpoints, admin and public.
type ConferenceHandler struct {
	store   store.Store
	codec   IDCodec
	present presenter
	logger  *slog.Logger
}

// NewConferenceHandler creates a new conference handler.
func NewConferenceHandler(st store.Store, codec IDCodec, logger *slog.Logger) *ConferenceHandler {
	return &ConferenceHandler{
		store:   st,
		codec:   codec,
		present: presenter{codec: codec},
		logger:  logger,
	}
}

// ConferenceRequest carries conference fields. Nil fields are left unchanged
// on update; an empty journal_id detaches the proceedings journal.
type ConferenceRequest struct {
	JournalID          *string    `json:"journal_id"`
	Name               *string    `json:"name"`
	ShortName          *string    `json:"short_name"`
	Description        *string    `json:"description"`
	Venue              *string    `json:"venue"`
	StartsOn           *time.Time `json:"starts_on"`
	EndsOn             *time.Time `json:"ends_on"`
	SubmissionDeadline *time.Time `json:"submission_deadline"`
	Status             *string    `json:"status"`
}

func (req *ConferenceRequest) apply(codec IDCodec, c *models.Conference) error {
	if req.JournalID != nil {
		id, err := decodeRef(codec, *req.JournalID)
		if err != nil {
			return err
		}
		c.JournalID = id
	}
	setString(&c.Name, req.Name)
	setString(&c.ShortName, req.ShortName)
	setString(&c.Description, req.Description)
	setString(&c.Venue, req.Venue)
	setString(&c.Status, req.Status)
	if req.StartsOn != nil {
		c.StartsOn = req.StartsOn
	}
	if req.EndsOn != nil {
		c.EndsOn = req.EndsOn
	}
	if req.SubmissionDeadline != nil {
		c.SubmissionDeadline = req.SubmissionDeadline
	}
	return nil
}

// List handles GET /v1/conferences.
func (h *ConferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	conferences, err := h.store.Conferences().List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list conferences")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(conferences, h.present.conference))
}

// Create handles POST /v1/conferences.
func (h *ConferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ConferenceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	c := &models.Conference{}
	if err := req.apply(h.codec, c); err != nil {
		WriteError(w, r, h.logger, err, "invalid conference")
		return
	}
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	if err := c.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid conference")
		return
	}

	if err := h.store.Conferences().Create(r.Context(), c); err != nil {
		WriteError(w, r, h.logger, err, "failed to create conference")
		return
	}
	h.logger.Info("conference created", "conference_id", c.ID, "name", c.Name)
	WriteJSON(w, http.StatusCreated, h.present.conference(c))
}

// Get handles GET /v1/conferences/{conferenceID}.
func (h *ConferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Conferences().Get(r.Context(), middleware.PathID(r.Context(), "conferenceID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.conference(c))
}

// Update handles PATCH and PUT /v1/conferences/{conferenceID}.
func (h *ConferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ConferenceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	c, err := h.store.Conferences().Get(r.Context(), middleware.PathID(r.Context(), "conferenceID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}
	if err := req.apply(h.codec, c); err != nil {
		WriteError(w, r, h.logger, err, "invalid conference")
		return
	}
	if err := c.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid conference")
		return
	}

	if err := h.store.Conferences().Update(r.Context(), c); err != nil {
		WriteError(w, r, h.logger, err, "failed to update conference", "conference_id", c.ID)
		return
	}
	WriteJSON(w, http.StatusOK, h.present.conference(c))
}

// Delete handles DELETE /v1/conferences/{conferenceID}. Templates, abstracts
// and registrations go with it.
func (h *ConferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "conferenceID")
	if err := h.store.Conferences().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete conference", "conference_id", id)
		return
	}
	h.logger.Info("conference deleted", "conference_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// PublicList handles GET /public/conferences.
func (h *ConferenceHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	conferences, err := h.store.Conferences().List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list conferences")
		return
	}
	visible := conferences[:0]
	for _, c := range conferences {
		if publiclyVisible(c.Status) {
			visible = append(visible, c)
		}
	}
	WriteJSON(w, http.StatusOK, mapViews(visible, h.present.conference))
}

// PublicGet handles GET /public/conferences/{conferenceID}.
func (h *ConferenceHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	c, err := publicConference(r.Context(), h.store, middleware.PathID(r.Context(), "conferenceID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.conference(c))
}
