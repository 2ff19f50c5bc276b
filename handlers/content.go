// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
)

// Bulk requests larger than this are rejected.
const maxBulkItems = 500

// ContentHandler serves the CMS endpoints for every registered kind.
type ContentHandler struct {
	store *content.Store
}

func NewContentHandler(store *content.Store) *ContentHandler {
	return &ContentHandler{store: store}
}

// Kinds handles GET /api/kinds
func (h *ContentHandler) Kinds(w http.ResponseWriter, r *http.Request) {
	kinds := content.Kinds()
	infos := make([]models.KindInfo, 0, len(kinds))
	for _, k := range kinds {
		infos = append(infos, k.Info())
	}
	middleware.Success(w, http.StatusOK, infos)
}

// List handles GET /api/content/{kind}
//
// Query parameters: page, limit, status, q (substring search) and any
// filterable field of the kind by name.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	query, err := listQuery(kind, r)
	if err != nil {
		writeError(w, err, "list "+kind.Name)
		return
	}

	records, total, err := h.store.List(r.Context(), kind, query)
	if err != nil {
		writeError(w, err, "list "+kind.Name)
		return
	}

	middleware.Paginated(w, orEmpty(records), models.NewPagination(query.Page, query.Limit, total))
}

// Get handles GET /api/content/{kind}/{id}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "load "+kind.Name)
		return
	}
	middleware.Success(w, http.StatusOK, rec)
}

// Create handles POST /api/content/{kind}
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var input map[string]interface{}
	if err := middleware.ParseJSONBody(r, &input); err != nil || input == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rec, err := h.store.Create(r.Context(), kind, input)
	if err != nil {
		writeError(w, err, "create "+kind.Name)
		return
	}

	slog.Info("content created", "kind", kind.Name, "id", rec.ID())
	middleware.Success(w, http.StatusCreated, rec)
}

// BulkCreate handles POST /api/content/{kind}/bulk
func (h *ContentHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var req models.BulkCreateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "items must not be empty")
		return
	}
	if len(req.Items) > maxBulkItems {
		middleware.ErrorResponse(w, http.StatusBadRequest, "too many items in one request")
		return
	}

	created, skipped, err := h.store.CreateMany(r.Context(), kind, req.Items, req.SkipDuplicates)
	if err != nil {
		writeError(w, err, "create "+kind.Name)
		return
	}

	slog.Info("content bulk created", "kind", kind.Name, "inserted", len(created), "skipped", skipped)

	items := make([]interface{}, 0, len(created))
	for _, rec := range created {
		items = append(items, rec)
	}
	middleware.Success(w, http.StatusCreated, models.BulkCreateResponse{
		Inserted: len(created),
		Skipped:  skipped,
		Items:    items,
	})
}

// Replace handles PUT /api/content/{kind}/{id}
func (h *ContentHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles PATCH /api/content/{kind}/{id}
func (h *ContentHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *ContentHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var input map[string]interface{}
	if err := middleware.ParseJSONBody(r, &input); err != nil || input == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rec, err := h.store.Update(r.Context(), kind, r.PathValue("id"), input, partial)
	if err != nil {
		writeError(w, err, "update "+kind.Name)
		return
	}

	slog.Info("content updated", "kind", kind.Name, "id", rec.ID())
	middleware.Success(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/content/{kind}/{id}
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), kind, id); err != nil {
		writeError(w, err, "delete "+kind.Name)
		return
	}

	slog.Info("content deleted", "kind", kind.Name, "id", id)
	middleware.Success(w, http.StatusOK, map[string]string{"id": id})
}

// SetStatus handles POST /api/content/{kind}/{id}/status
func (h *ContentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.transition(w, r, req.Status)
}

// Publish handles POST /api/content/{kind}/{id}/publish
func (h *ContentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusPublished)
}

// Archive handles POST /api/content/{kind}/{id}/archive
func (h *ContentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusArchived)
}

func (h *ContentHandler) transition(w http.ResponseWriter, r *http.Request, status string) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}
	if !content.ValidStatus(status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of draft, published, archived")
		return
	}

	rec, err := h.store.SetStatus(r.Context(), kind, r.PathValue("id"), status)
	if err != nil {
		writeError(w, err, "change status of "+kind.Name)
		return
	}

	slog.Info("content status changed", "kind", kind.Name, "id", rec.ID(), "status", status)
	middleware.Success(w, http.StatusOK, rec)
}

// BulkStatus handles POST /api/content/{kind}/bulk-status
func (h *ContentHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var req models.BulkStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !content.ValidStatus(req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of draft, published, archived")
		return
	}
	if len(req.IDs) > maxBulkItems {
		middleware.ErrorResponse(w, http.StatusBadRequest, "too many ids in one request")
		return
	}

	n, err := h.store.SetStatusMany(r.Context(), kind, req.IDs, req.Status)
	if err != nil {
		writeError(w, err, "change status of "+kind.Name)
		return
	}

	slog.Info("content bulk status changed", "kind", kind.Name, "updated", n, "status", req.Status)
	middleware.Success(w, http.StatusOK, models.BulkStatusResponse{Updated: n, Status: req.Status})
}

func listQuery(kind *content.Kind, r *http.Request) (content.ListQuery, error) {
	page, limit, err := pageParams(r)
	if err != nil {
		return content.ListQuery{}, err
	}

	q := r.URL.Query()
	query := content.ListQuery{
		Status: q.Get("status"),
		Search: q.Get("q"),
		Page:   page,
		Limit:  limit,
	}
	if query.Status != "" && !content.ValidStatus(query.Status) {
		return content.ListQuery{}, content.Invalid("status", "must be one of draft, published, archived")
	}

	for _, f := range kind.Fields {
		if v := q.Get(f.Name); v != "" && f.Filter {
			if query.Filters == nil {
				query.Filters = map[string]string{}
			}
			query.Filters[f.Name] = v
		}
	}

	// Defaults applied here so the pagination block echoes them.
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = content.DefaultLimit
	}
	if query.Limit > content.MaxLimit {
		query.Limit = content.MaxLimit
	}
	return query, nil
}

func orEmpty(records []content.Record) []content.Record {
	if records == nil {
		return []content.Record{}
	}
	return records
}
