package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// AbstractHandler handles conference abstract submissions.
type AbstractHandler struct {
	store     store.Store
	codec     IDCodec
	present   presenter
	publisher Publisher
	logger    *slog.Logger
}

// NewAbstractHandler creates a new abstract handler.
func NewAbstractHandler(st store.Store, codec IDCodec, pub Publisher, logger *slog.Logger) *AbstractHandler {
	return &AbstractHandler{
		store:     st,
		codec:     codec,
		present:   presenter{codec: codec},
		publisher: pub,
		logger:    logger,
	}
}

// SubmitAbstractRequest is the public abstract submission form.
type SubmitAbstractRequest struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Keywords         []string `json:"keywords"`
	PresenterName    string   `json:"presenter_name"`
	PresenterEmail   string   `json:"presenter_email"`
	Affiliation      string   `json:"affiliation"`
	PresentationType string   `json:"presentation_type"`
}

// List handles GET /v1/abstracts?conference=<token>.
func (h *AbstractHandler) List(w http.ResponseWriter, r *http.Request) {
	conferenceID, err := decodeRef(h.codec, r.URL.Query().Get("conference"))
	if err != nil {
		WriteError(w, r, h.logger, err, "invalid conference filter")
		return
	}

	abstracts, err := h.store.Abstracts().List(r.Context(), conferenceID)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list abstracts")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(abstracts, h.present.abstract))
}

// Get handles GET /v1/abstracts/{abstractID}.
func (h *AbstractHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Abstracts().Get(r.Context(), middleware.PathID(r.Context(), "abstractID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get abstract")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.abstract(a))
}

// Update handles PATCH /v1/abstracts/{abstractID}. Only the status is editable.
func (h *AbstractHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	a, err := h.store.Abstracts().Get(r.Context(), middleware.PathID(r.Context(), "abstractID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get abstract")
		return
	}
	setString(&a.Status, req.Status)

	if err := h.store.Abstracts().Update(r.Context(), a); err != nil {
		WriteError(w, r, h.logger, err, "failed to update abstract", "abstract_id", a.ID)
		return
	}
	h.logger.Info("abstract updated", "abstract_id", a.ID, "status", a.Status)
	WriteJSON(w, http.StatusOK, h.present.abstract(a))
}

// Delete handles DELETE /v1/abstracts/{abstractID}.
func (h *AbstractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "abstractID")
	if err := h.store.Abstracts().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete abstract", "abstract_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /public/conferences/{conferenceID}/abstracts.
func (h *AbstractHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitAbstractRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	c, err := publicConference(r.Context(), h.store, middleware.PathID(r.Context(), "conferenceID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get conference")
		return
	}

	a := &models.Abstract{
		ConferenceID:     c.ID,
		Title:            req.Title,
		Body:             req.Body,
		Keywords:         models.CleanList(req.Keywords),
		PresenterName:    req.PresenterName,
		PresenterEmail:   req.PresenterEmail,
		Affiliation:      req.Affiliation,
		PresentationType: req.PresentationType,
		Status:           models.StatusSubmitted,
	}
	if err := a.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid abstract")
		return
	}

	err = createWithReference(models.ReferencePrefixAbstract,
		func(ref string) { a.Reference = ref },
		func() error { return h.store.Abstracts().Create(r.Context(), a) },
	)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to store abstract", "conference_id", c.ID)
		return
	}

	view := h.present.abstract(a)
	h.logger.Info("abstract submitted", "abstract_id", a.ID, "conference_id", c.ID, "reference", a.Reference)
	h.publisher.Publish(&feed.Event{
		Kind:      models.ModuleAbstracts,
		ID:        view.ID,
		Reference: a.Reference,
		Title:     a.Title,
		At:        a.CreatedAt,
	})
	WriteJSON(w, http.StatusCreated, view)
}
