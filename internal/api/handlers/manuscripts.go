package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// ManuscriptHandler handles manuscript submissions and their review listing.
type ManuscriptHandler struct {
	store     store.Store
	codec     IDCodec
	present   presenter
	publisher Publisher
	logger    *slog.Logger
}

// NewManuscriptHandler creates a new manuscript handler.
func NewManuscriptHandler(st store.Store, codec IDCodec, pub Publisher, logger *slog.Logger) *ManuscriptHandler {
	return &ManuscriptHandler{
		store:     st,
		codec:     codec,
		present:   presenter{codec: codec},
		publisher: pub,
		logger:    logger,
	}
}

// SubmitManuscriptRequest is the public manuscript submission form.
type SubmitManuscriptRequest struct {
	Title              string   `json:"title"`
	Abstract           string   `json:"abstract"`
	Keywords           []string `json:"keywords"`
	Authors            string   `json:"authors"`
	CorrespondingName  string   `json:"corresponding_name"`
	CorrespondingEmail string   `json:"corresponding_email"`
	ManuscriptURL      string   `json:"manuscript_url"`
}

// List handles GET /v1/manuscripts?journal=<token>.
func (h *ManuscriptHandler) List(w http.ResponseWriter, r *http.Request) {
	journalID, err := decodeRef(h.codec, r.URL.Query().Get("journal"))
	if err != nil {
		WriteError(w, r, h.logger, err, "invalid journal filter")
		return
	}

	manuscripts, err := h.store.Manuscripts().List(r.Context(), journalID)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list manuscripts")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(manuscripts, h.present.manuscript))
}

// Get handles GET /v1/manuscripts/{manuscriptID}.
func (h *ManuscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.Manuscripts().Get(r.Context(), middleware.PathID(r.Context(), "manuscriptID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get manuscript")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.manuscript(m))
}

// Update handles PATCH /v1/manuscripts/{manuscriptID}.
func (h *ManuscriptHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	m, err := h.store.Manuscripts().Get(r.Context(), middleware.PathID(r.Context(), "manuscriptID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get manuscript")
		return
	}
	setString(&m.Status, req.Status)
	setString(&m.Notes, req.Notes)

	if err := h.store.Manuscripts().Update(r.Context(), m); err != nil {
		WriteError(w, r, h.logger, err, "failed to update manuscript", "manuscript_id", m.ID)
		return
	}
	h.logger.Info("manuscript updated", "manuscript_id", m.ID, "status", m.Status)
	WriteJSON(w, http.StatusOK, h.present.manuscript(m))
}

// Delete handles DELETE /v1/manuscripts/{manuscriptID}.
func (h *ManuscriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "manuscriptID")
	if err := h.store.Manuscripts().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete manuscript", "manuscript_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /public/journals/{journalID}/manuscripts.
func (h *ManuscriptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitManuscriptRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	j, err := publicJournal(r.Context(), h.store, middleware.PathID(r.Context(), "journalID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get journal")
		return
	}

	m := &models.Manuscript{
		JournalID:          j.ID,
		Title:              req.Title,
		Abstract:           req.Abstract,
		Keywords:           models.CleanList(req.Keywords),
		Authors:            req.Authors,
		CorrespondingName:  req.CorrespondingName,
		CorrespondingEmail: req.CorrespondingEmail,
		ManuscriptURL:      req.ManuscriptURL,
		Status:             models.StatusSubmitted,
	}
	if err := m.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid manuscript")
		return
	}

	err = createWithReference(models.ReferencePrefixManuscript,
		func(ref string) { m.Reference = ref },
		func() error { return h.store.Manuscripts().Create(r.Context(), m) },
	)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to store manuscript", "journal_id", j.ID)
		return
	}

	view := h.present.manuscript(m)
	h.logger.Info("manuscript submitted", "manuscript_id", m.ID, "journal_id", j.ID, "reference", m.Reference)
	h.publisher.Publish(&feed.Event{
		Kind:      models.ModuleManuscripts,
		ID:        view.ID,
		Reference: m.Reference,
		Title:     m.Title,
		At:        m.CreatedAt,
	})
	WriteJSON(w, http.StatusCreated, view)
}
