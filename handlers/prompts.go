// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
	"github.com/danielhkuo/rinkside/prompts"
)

// PromptHandler edits the generation prompt templates and topic list.
type PromptHandler struct {
	lib *prompts.Library
}

func NewPromptHandler(lib *prompts.Library) *PromptHandler {
	return &PromptHandler{lib: lib}
}

// List handles GET /api/prompts
func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.lib.List()
	if err != nil {
		writeError(w, err, "list prompts")
		return
	}
	middleware.Success(w, http.StatusOK, list)
}

// Get handles GET /api/prompts/{name}
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.lib.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err, "load prompt")
		return
	}
	middleware.Success(w, http.StatusOK, tmpl)
}

// Save handles PUT /api/prompts/{name}
func (h *PromptHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.PromptRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := r.PathValue("name")
	tmpl, err := h.lib.Save(name, req.Body)
	if err != nil {
		writeError(w, err, "save prompt")
		return
	}

	slog.Info("prompt saved", "name", name)
	middleware.Success(w, http.StatusOK, tmpl)
}

// Topics handles GET /api/topics
func (h *PromptHandler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.lib.ListTopics()
	if err != nil {
		writeError(w, err, "load topics")
		return
	}
	middleware.Success(w, http.StatusOK, models.TopicList{Topics: topics})
}

// SaveTopics handles PUT /api/topics
func (h *PromptHandler) SaveTopics(w http.ResponseWriter, r *http.Request) {
	var req models.TopicList
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	topics, err := h.lib.SaveTopics(req.Topics)
	if err != nil {
		writeError(w, err, "save topics")
		return
	}

	slog.Info("topics saved", "count", len(topics))
	middleware.Success(w, http.StatusOK, models.TopicList{Topics: topics})
}
