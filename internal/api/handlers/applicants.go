package handlers

import (
	"log/slog"
	"net/http"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// ApplicantHandler handles editor and author sign-ups.
type ApplicantHandler struct {
	store     store.Store
	codec     IDCodec
	present   presenter
	publisher Publisher
	logger    *slog.Logger
}

// NewApplicantHandler creates a new applicant handler.
func NewApplicantHandler(st store.Store, codec IDCodec, pub Publisher, logger *slog.Logger) *ApplicantHandler {
	return &ApplicantHandler{
		store:     st,
		codec:     codec,
		present:   presenter{codec: codec},
		publisher: pub,
		logger:    logger,
	}
}

// ApplyRequest is the public editor/author sign-up form.
type ApplyRequest struct {
	Kind        models.ApplicantKind `json:"kind"`
	FullName    string               `json:"full_name"`
	Email       string               `json:"email"`
	Affiliation string               `json:"affiliation"`
	Expertise   []string             `json:"expertise"`
	JournalID   string               `json:"journal_id"`
}

// List handles GET /v1/applicants?kind=editor|author.
func (h *ApplicantHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := models.ApplicantKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		WriteBadRequest(w, r, "kind", "kind must be editor or author")
		return
	}

	applicants, err := h.store.Applicants().List(r.Context(), kind)
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to list applicants")
		return
	}
	WriteJSON(w, http.StatusOK, mapViews(applicants, h.present.applicant))
}

// Get handles GET /v1/applicants/{applicantID}.
func (h *ApplicantHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Applicants().Get(r.Context(), middleware.PathID(r.Context(), "applicantID"))
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get applicant")
		return
	}
	WriteJSON(w, http.StatusOK, h.present.applicant(a))
}

// Delete handles DELETE /v1/applicants/{applicantID}.
func (h *ApplicantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.PathID(r.Context(), "applicantID")
	if err := h.store.Applicants().Delete(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err, "failed to delete applicant", "applicant_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /public/applicants.
func (h *ApplicantHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	journalID, err := decodeRef(h.codec, req.JournalID)
	if err == nil && journalID != 0 {
		_, err = publicJournal(r.Context(), h.store, journalID)
	}
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to get journal")
		return
	}

	a := &models.Applicant{
		Kind:        req.Kind,
		FullName:    req.FullName,
		Email:       req.Email,
		Affiliation: req.Affiliation,
		Expertise:   models.CleanList(req.Expertise),
		JournalID:   journalID,
		Status:      models.StatusPending,
	}
	if err := a.Validate(); err != nil {
		WriteError(w, r, h.logger, err, "invalid application")
		return
	}

	if err := h.store.Applicants().Create(r.Context(), a); err != nil {
		WriteError(w, r, h.logger, err, "failed to store application")
		return
	}

	view := h.present.applicant(a)
	h.logger.Info("application received", "applicant_id", a.ID, "kind", a.Kind)
	h.publisher.Publish(&feed.Event{
		Kind:  models.ModuleApplicants,
		ID:    view.ID,
		Title: a.FullName + " (" + string(a.Kind) + ")",
		At:    a.CreatedAt,
	})
	WriteJSON(w, http.StatusCreated, view)
}
