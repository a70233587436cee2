package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// TemplateHandler handles conference landing-page templates.
type TemplateHandler struct {
	store   store.Store
	codec   IDCodec
	present presenter
	logger  *slog.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(st store.Store, codec IDCodec, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		store:   st,
		codec:   codec,
		present: presenter{codec: codec},
		logger:  logger,
	}
}

// TemplateRequest carries template fields. Nil fields are left unchanged on update.
type TemplateRequest struct {
	ConferenceID *string `json:"conference_id"`
	Title        *string `json:"title"`
	Headline     *string `json:"headline"`
	Body         *string `json:"body"`
	Theme        *string `json:"theme"`
	Published    *bool   `json:"published"`
}

func (req *TemplateRequest) apply(codec IDCodec, t *models.ConferenceTemplate) error {
	if req.ConferenceID != nil {
		id, err := decodeRef(codec, *req.ConferenceID)
		if err != nil {
			return err
		}
		t.ConferenceID = id
	}
	setString(&t.Title, req.Title)
	setString(&t.Headline, req.Headline)
	setString(&t.Body, req.Body)
	setString(&t.Theme, req.Theme)
	if req.Published != nil {
		t.Published = *req.Published
	}
	return nil
}

// List handles GET /v1/templates?conference=<token>.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	conferenceID, err := decodeRef(h.codec, r.URL.Query().Get("conference"))
	if err != nil {
		WriteError(w, r, h.logger, err, "invalid conference filter")
		return
	}

	templates, err := h.store.Templates().List(r.Context(), store.TemplateFilter{ConferenceID: conferenceID})
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list templates")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(templates, h.present.template))
}

// Create handles POST /v1/templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	t := &models.ConferenceTemplate{}
	if err := req.apply(h.codec, t); err != nil {
		WriteError(w, r, h.logger, err, "invalid template")
		return
	}
	if err := t.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid template")
		return
	}

	if err := h.store.Templates().Create(r.Context(), t); err != nil {
		WriteError(w, r, h.logger, err, "failed to create template")
		return
	}
	h.logger.Info("template created", "template_id", t.ID, "conference_id", t.ConferenceID)
	WriteJSON(w, http.StatusCreated, h.present.template(t))
}

// Get handles GET /v1/templates/{templateID}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Templates().Get(r.Context(), middleware.PathID(r.Context(), "templateID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get template")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.template(t))
}

// Update handles PATCH and PUT /v1/templates/{templateID}.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	t, err := h.store.Templates().Get(r.Context(), middleware.PathID(r.Context(), "templateID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get template")
		return
	}
	if err := req.apply(h.codec, t); err != nil {
		WriteError(w, r, h.logger, err, "invalid template")
		return
	}
	if err := t.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid template")
		return
	}

	if err := h.store.Templates().Update(r.Context(), t); err != nil {
		WriteError(w, r, h.logger, err, "failed to update template", "template_id", t.ID)
		return
	}
	WriteJSON(w, http.StatusOK, h.present.template(t))
}

// Delete handles DELETE /v1/templates/{templateID}.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "templateID")
	if err := h.store.Templates().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete template", "template_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublicList handles GET /public/conferences/{conferenceID}/templates.
func (h *TemplateHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	conferenceID := middleware.PathID(r.Context(), "conferenceID")
	if _, err := publicConference(r.Context(), h.store, conferenceID); err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}

	templates, err := h.store.Templates().List(r.Context(), store.TemplateFilter{
		ConferenceID:  conferenceID,
		PublishedOnly: true,
	})
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list templates")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(templates, h.present.template))
}

// PublicGet handles GET /public/templates/{templateID}. Unpublished templates
// and templates of draft conferences are not found.
func (h *TemplateHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Templates().Get(r.Context(), middleware.PathID(r.Context(), "templateID"))
	if err == nil && !t.Published {
		err = store.ErrNotFound
	}
	if err == nil {
		_, err = publicConference(r.Context(), h.store, t.ConferenceID)
	}
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get template")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.template(t))
}
