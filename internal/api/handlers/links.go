package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// linkTarget describes a resource kind that can be shared publicly. visible
// reports whether the record resolves on the public site right now.
type linkTarget struct {
	module  models.Module
	path    string
	visible func(ctx context.Context, st store.Store, id int64) (bool, error)
}

var linkTargets = map[string]linkTarget{
	"conference": {
		module: models.ModuleConferences,
		path:   "/conferences/",
		visible: func(ctx context.Context, st store.Store, id int64) (bool, error) {
			c, err := st.Conferences().Get(ctx, id)
			if err != nil {
				return false, err
			}
			return publiclyVisible(c.Status), nil
		},
	},
	"journal": {
		module: models.ModuleJournals,
		path:   "/journals/",
		visible: func(ctx context.Context, st store.Store, id int64) (bool, error) {
			j, err := st.Journals().Get(ctx, id)
			if err != nil {
				return false, err
			}
			return publiclyVisible(j.Status), nil
		},
	},
	"template": {
		module: models.ModuleTemplates,
		path:   "/templates/",
		visible: func(ctx context.Context, st store.Store, id int64) (bool, error) {
			t, err := st.Templates().Get(ctx, id)
			if err != nil {
				return false, err
			}
			if !t.Published {
				return false, nil
			}
			c, err := st.Conferences().Get(ctx, t.ConferenceID)
			if err != nil {
				return false, err
			}
			return publiclyVisible(c.Status), nil
		},
	},
}

// LinkHandler issues shareable public URLs for back-office records.
type LinkHandler struct {
	store   store.Store
	codec   IDCodec
	checker middleware.PermissionChecker
	baseURL string
	logger  *slog.Logger
}

// NewLinkHandler creates a new link handler. baseURL prefixes every issued link.
func NewLinkHandler(st store.Store, codec IDCodec, checker middleware.PermissionChecker, baseURL string, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		store:   st,
		codec:   codec,
		checker: checker,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// LinkRequest is the body of POST /v1/links.
type LinkRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// LinkResponse carries the issued link. Public is false while the record is a
// draft or unpublished, in which case the URL answers 404 until it goes live.
type LinkResponse struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Public bool   `json:"public"`
}

// Create handles POST /v1/links. The link carries a freshly issued token, so
// a link is only produced for a token that decodes to an existing record the
// caller may view.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	target, ok := linkTargets[req.Kind]
	if !ok {
		WriteBadRequest(w, r, "kind", "kind must be conference, journal or template")
		return
	}
	if req.ID == "" {
		WriteBadRequest(w, r, "id", "id is required")
		return
	}

	if err := h.checker.CheckPermission(r.Context(), middleware.GetUserID(r.Context()), target.module, models.ActionView); err != nil {
		WriteError(w, r, h.logger, err, "failed to check permissions")
		return
	}

	var public bool
	id, err := decodeRef(h.codec, req.ID)
	if err == nil {
		public, err = target.visible(r.Context(), h.store, id)
	}
	if err != nil {
		WriteError(w, r, h.logger, err, "failed to resolve link target", "kind", req.Kind)
		return
	}

	token := h.codec.EncodeInt(id)
	WriteJSON(w, http.StatusOK, LinkResponse{
		URL:    h.baseURL + target.path + token,
		Token:  token,
		Public: public,
	})
}
