// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/jobs"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
)

// Upper bound for ?limit= on POST /api/process-jobs.
const maxProcessBatch = 10

type JobHandler struct {
	store *jobs.Store
	proc  *jobs.Processor
}

func NewJobHandler(store *jobs.Store, proc *jobs.Processor) *JobHandler {
	return &JobHandler{store: store, proc: proc}
}

// BulkGenerate handles POST /api/bulk-generate
//
// Queues one job per requested kind for the source content. Kinds that
// already have a job for this source are reported as skipped.
func (h *JobHandler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.BulkGenerateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SourceContentID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "source_content_id is required")
		return
	}

	created, skipped, err := h.store.Enqueue(r.Context(), req.SourceContentID, req.Kinds)
	if err != nil {
		writeError(w, err, "queue generation jobs")
		return
	}

	resp := models.BulkGenerateResponse{
		Jobs:    make([]interface{}, 0, len(created)),
		Skipped: skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	for _, job := range created {
		resp.Jobs = append(resp.Jobs, job)
	}
	middleware.Success(w, http.StatusAccepted, resp)
}

// ProcessJobs handles POST /api/process-jobs
//
// Runs up to ?limit= due jobs (default 1) in the request.
func (h *JobHandler) ProcessJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, err, "process jobs")
		return
	}
	if limit == 0 {
		limit = 1
	}
	if limit > maxProcessBatch {
		limit = maxProcessBatch
	}

	ran, err := h.proc.ProcessBatch(r.Context(), limit)
	if err != nil {
		writeError(w, err, "process jobs")
		return
	}
	if ran == nil {
		ran = []jobs.Job{}
	}

	middleware.Success(w, http.StatusOK, map[string]interface{}{
		"processed": len(ran),
		"jobs":      ran,
	})
}

// List handles GET /api/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err, "list jobs")
		return
	}

	q := r.URL.Query()
	query := jobs.ListQuery{
		Status:          q.Get("status"),
		Kind:            q.Get("kind"),
		SourceContentID: q.Get("source_content_id"),
		Page:            page,
		Limit:           limit,
	}
	switch query.Status {
	case "", models.JobPending, models.JobInProgress, models.JobCompleted, models.JobFailed:
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of pending, in_progress, completed, failed")
		return
	}

	list, total, err := h.store.List(r.Context(), query)
	if err != nil {
		writeError(w, err, "list jobs")
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = content.DefaultLimit
	}
	middleware.Paginated(w, list, models.NewPagination(query.Page, min(query.Limit, content.MaxLimit), total))
}

// Stats handles GET /api/jobs/stats
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, err, "load job stats")
		return
	}
	middleware.Success(w, http.StatusOK, stats)
}

// Get handles GET /api/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "load job")
		return
	}
	middleware.Success(w, http.StatusOK, job)
}

// Retry handles POST /api/jobs/{id}/retry
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "retry job")
		return
	}
	middleware.Success(w, http.StatusOK, job)
}
