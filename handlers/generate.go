// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
)

type GenerateHandler struct {
	store *content.Store
	gen   *generation.Service
}

func NewGenerateHandler(store *content.Store, gen *generation.Service) *GenerateHandler {
	return &GenerateHandler{store: store, gen: gen}
}

// Generate handles POST /api/generate
//
// Drafts are returned for review. With "save": true they are also stored
// as drafts, linked to the source content when one is given.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Kind == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind is required")
		return
	}
	kind, ok := content.Lookup(req.Kind)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown content type")
		return
	}
	if !h.gen.Enabled() {
		writeError(w, generation.ErrDisabled, "generate "+kind.Name)
		return
	}

	in := generation.Input{
		Prompt:   req.Prompt,
		Template: req.Template,
		Topic:    strings.TrimSpace(req.Topic),
		Count:    req.Count,
	}
	if req.SourceContentID != "" {
		source, _ := content.Lookup(content.SourceKind)
		rec, err := h.store.Get(r.Context(), source, req.SourceContentID)
		if err != nil {
			writeError(w, err, "load source content")
			return
		}
		in.SourceText = strings.TrimSpace(rec.String("title") + "\n\n" + rec.String("content_text"))
	}

	res, err := h.gen.Generate(r.Context(), kind, in)
	if err != nil {
		writeError(w, err, "generate "+kind.Name)
		return
	}

	resp := models.GenerateResponse{
		Kind:    kind.Name,
		Dropped: res.Dropped,
	}
	if r.URL.Query().Get("raw") == "true" {
		resp.Raw = res.Raw
	}

	items := res.Items
	if req.Save {
		created, skipped, err := h.store.SaveGenerated(r.Context(), kind, req.SourceContentID, res.Items)
		if err != nil {
			writeError(w, err, "save generated "+kind.Name)
			return
		}
		slog.Info("generated content saved", "kind", kind.Name, "saved", len(created), "duplicates", skipped)
		items = created
		resp.Saved = len(created)
	}

	resp.Items = make([]interface{}, 0, len(items))
	for _, rec := range items {
		resp.Items = append(resp.Items, rec)
	}
	middleware.Success(w, http.StatusOK, resp)
}
