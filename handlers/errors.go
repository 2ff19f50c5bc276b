// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/jobs"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/prompts"
)

// writeError maps a service error to its status code and envelope.
// Anything unrecognised is logged and reported as a 500 using action to
// describe what failed.
func writeError(w http.ResponseWriter, err error, action string) {
	var verr *content.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.ErrorDetails(w, http.StatusBadRequest, verr.Error(), verr.Fields)
	case errors.Is(err, content.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Record not found")
	case errors.Is(err, jobs.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, prompts.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Prompt not found")
	case errors.Is(err, content.ErrConflict):
		middleware.ErrorResponse(w, http.StatusConflict, "A record with the same unique value already exists")
	case errors.Is(err, jobs.ErrInvalidState):
		middleware.ErrorResponse(w, http.StatusConflict, "Job is not in a state that allows this")
	case errors.Is(err, content.ErrInvalidReference):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Record references a row that does not exist")
	case errors.Is(err, content.ErrNoLifecycle):
		middleware.ErrorResponse(w, http.StatusBadRequest, "This content type has no publish status")
	case errors.Is(err, prompts.ErrInvalidName):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Prompt names use lowercase letters, digits, '-' and '_'")
	case errors.Is(err, prompts.ErrInvalidTemplate), errors.Is(err, prompts.ErrInvalidTopic):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, generation.ErrDisabled):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Generation is not configured")
	case errors.Is(err, generation.ErrEmptyResult):
		middleware.ErrorResponse(w, http.StatusBadGateway, "The model returned no usable items")
	default:
		slog.Error("failed to "+action, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// kindFromPath resolves the {kind} path value, writing a 404 when it is
// not registered.
func kindFromPath(w http.ResponseWriter, r *http.Request) (*content.Kind, bool) {
	kind, ok := content.Lookup(r.PathValue("kind"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown content type")
		return nil, false
	}
	return kind, true
}

// pageParams reads ?page= and ?limit=. Missing values are zero and left
// to the store's defaults.
func pageParams(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	if page, err = intParam(q.Get("page"), "page"); err != nil {
		return 0, 0, err
	}
	if limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, content.Invalid(name, fmt.Sprintf("must be a positive integer, got %q", raw))
	}
	return n, nil
}
