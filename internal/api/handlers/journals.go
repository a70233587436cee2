package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// JournalHandler handles journal endpoints, admin and public.
type JournalHandler struct {
	store   store.Store
	present presenter
	logger  *slog.Logger
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(st store.Store, codec IDCodec, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{
		store:   st,
		present: presenter{codec: codec},
		logger:  logger,
	}
}

// JournalRequest carries journal fields. Nil fields are left unchanged on update.
type JournalRequest struct {
	Title        *string `json:"title"`
	Abbreviation *string `json:"abbreviation"`
	ISSN         *string `json:"issn"`
	EISSN        *string `json:"eissn"`
	Description  *string `json:"description"`
	Scope        *string `json:"scope"`
	Status       *string `json:"status"`
}

func (req *JournalRequest) apply(j *models.Journal) {
	setString(&j.Title, req.Title)
	setString(&j.Abbreviation, req.Abbreviation)
	setString(&j.ISSN, req.ISSN)
	setString(&j.EISSN, req.EISSN)
	setString(&j.Description, req.Description)
	setString(&j.Scope, req.Scope)
	setString(&j.Status, req.Status)
}

// List handles GET /v1/journals.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	journals, err := h.store.Journals().List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list journals")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(journals, h.present.journal))
}

// Create handles POST /v1/journals.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req JournalRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	j := &models.Journal{}
	req.apply(j)
	if j.Status == "" {
		j.Status = models.StatusDraft
	}
	if err := j.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid journal")
		return
	}

	if err := h.store.Journals().Create(r.Context(), j); err != nil {
		WriteError(w, r, h.logger, err, "failed to create journal")
		return
	}
	h.logger.Info("journal created", "journal_id", j.ID, "title", j.Title)
	WriteJSON(w, http.StatusCreated, h.present.journal(j))
}

// Get handles GET /v1/journals/{journalID}.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Journals().Get(r.Context(), middleware.PathID(r.Context(), "journalID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get journal")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.journal(j))
}

// Update handles PATCH and PUT /v1/journals/{journalID}.
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req JournalRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	j, err := h.store.Journals().Get(r.Context(), middleware.PathID(r.Context(), "journalID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get journal")
		return
	}
	req.apply(j)
	if err := j.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid journal")
		return
	}

	if err := h.store.Journals().Update(r.Context(), j); err != nil {
		WriteError(w, r, h.logger, err, "failed to update journal", "journal_id", j.ID)
		return
	}
	WriteJSON(w, http.StatusOK, h.present.journal(j))
}

// Delete handles DELETE /v1/journals/{journalID}. Manuscripts go with it.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "journalID")
	if err := h.store.Journals().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete journal", "journal_id", id)
		return
	}
	h.logger.Info("journal deleted", "journal_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// PublicList handles GET /public/journals.
func (h *JournalHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	journals, err := h.store.Journals().List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list journals")
		return
	}
	visible := journals[:0]
	for _, j := range journals {
		if publiclyVisible(j.Status) {
			visible = append(visible, j)
		}
	}
	WriteJSON(w, http.StatusOK, mapViews(visible, h.present.journal))
}

// PublicGet handles GET /public/journals/{journalID}.
func (h *JournalHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	j, err := publicJournal(r.Context(), h.store, middleware.PathID(r.Context(), "journalID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get journal")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.journal(j))
}

// publiclyVisible hides drafts from the public site.
func publiclyVisible(status string) bool {
	return status != models.StatusDraft
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
