// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
)

// PublicHandler serves published content to the site without auth.
type PublicHandler struct {
	store *content.Store
}

func NewPublicHandler(store *content.Store) *PublicHandler {
	return &PublicHandler{store: store}
}

// List handles GET /api/public/{kind}
func (h *PublicHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := publicKind(w, r)
	if !ok {
		return
	}

	query, err := listQuery(kind, r)
	if err != nil {
		writeError(w, err, "list "+kind.Name)
		return
	}
	query.Status = models.StatusPublished

	records, total, err := h.store.List(r.Context(), kind, query)
	if err != nil {
		writeError(w, err, "list "+kind.Name)
		return
	}

	middleware.Paginated(w, orEmpty(records), models.NewPagination(query.Page, query.Limit, total))
}

// Random handles GET /api/public/{kind}/random
func (h *PublicHandler) Random(w http.ResponseWriter, r *http.Request) {
	kind, ok := publicKind(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Random(r.Context(), kind)
	if err != nil {
		writeError(w, err, "load "+kind.Name)
		return
	}
	middleware.Success(w, http.StatusOK, rec)
}

// publicKind only exposes kinds with a publish lifecycle.
func publicKind(w http.ResponseWriter, r *http.Request) (*content.Kind, bool) {
	kind, ok := content.Lookup(r.PathValue("kind"))
	if !ok || !kind.Lifecycle {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown content type")
		return nil, false
	}
	return kind, true
}
