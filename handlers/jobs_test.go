// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/jobs"
	"github.com/danielhkuo/rinkside/models"
	"github.com/danielhkuo/rinkside/prompts"
	"github.com/danielhkuo/rinkside/testutil"
)

func newJobHandler(t *testing.T, client generation.Client) (*JobHandler, *sql.DB) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	store := jobs.NewStore(conn, db.SQLite, 2)
	gen := generation.NewService(client, prompts.NewLibrary(t.TempDir()))
	proc := jobs.NewProcessor(store, content.NewStore(conn, db.SQLite), gen, time.Minute)
	return NewJobHandler(store, proc), conn
}

func bulkGenerate(t *testing.T, handler *JobHandler, sourceID string, kinds ...string) models.BulkGenerateResponse {
	t.Helper()
	w := httptest.NewRecorder()
	handler.BulkGenerate(w, testutil.MakeRequest("POST", "/api/bulk-generate",
		models.BulkGenerateRequest{SourceContentID: sourceID, Kinds: kinds}, nil))
	testutil.AssertStatus(t, w, http.StatusAccepted)

	var resp models.BulkGenerateResponse
	decodeData(t, decode(t, w), &resp)
	return resp
}

func TestBulkGenerate(t *testing.T) {
	handler, conn := newJobHandler(t, &fakeModel{reply: greetingsReply})
	sourceID := testutil.CreateTestSource(t, conn, "Trade deadline", "Three deals went through.")

	resp := bulkGenerate(t, handler, sourceID, "greetings", "stats")
	if len(resp.Jobs) != 2 || len(resp.Skipped) != 0 {
		t.Errorf("Expected 2 jobs and nothing skipped, got %+v", resp)
	}

	resp = bulkGenerate(t, handler, sourceID, "greetings", "wisdom")
	if len(resp.Jobs) != 1 || len(resp.Skipped) != 1 || resp.Skipped[0] != "greetings" {
		t.Errorf("Expected greetings to be skipped, got %+v", resp)
	}

	resp = bulkGenerate(t, handler, sourceID)
	if want := len(content.GeneratableKinds()) - 3; len(resp.Jobs) != want {
		t.Errorf("Expected %d remaining kinds queued, got %d", want, len(resp.Jobs))
	}

	testCases := []struct {
		name           string
		body           models.BulkGenerateRequest
		expectedStatus int
	}{
		{"source missing", models.BulkGenerateRequest{}, http.StatusBadRequest},
		{"unknown source", models.BulkGenerateRequest{SourceContentID: "missing"}, http.StatusNotFound},
		{"unknown kind", models.BulkGenerateRequest{SourceContentID: sourceID, Kinds: []string{"polls"}}, http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.BulkGenerate(w, testutil.MakeRequest("POST", "/api/bulk-generate", tc.body, nil))
			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}
}

func TestProcessJobs(t *testing.T) {
	handler, conn := newJobHandler(t, &fakeModel{reply: greetingsReply})
	sourceID := testutil.CreateTestSource(t, conn, "Home opener", "Banner night at the arena.")
	bulkGenerate(t, handler, sourceID, "greetings")

	w := httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs?limit=5", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp struct {
		Processed int        `json:"processed"`
		Jobs      []jobs.Job `json:"jobs"`
	}
	decodeData(t, decode(t, w), &resp)
	if resp.Processed != 1 || len(resp.Jobs) != 1 {
		t.Fatalf("Expected one job processed, got %+v", resp)
	}
	job := resp.Jobs[0]
	if job.Status != models.JobCompleted || job.ResultCount != 2 {
		t.Errorf("Expected completed job with 2 results, got %+v", job)
	}

	var drafts int
	if err := conn.QueryRow("SELECT COUNT(*) FROM greetings WHERE status = 'draft' AND source_content_id = $1", sourceID).Scan(&drafts); err != nil {
		t.Fatalf("Failed to count drafts: %v", err)
	}
	if drafts != 2 {
		t.Errorf("Expected 2 drafts linked to the source, got %d", drafts)
	}

	// Queue is empty now.
	w = httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	decodeData(t, decode(t, w), &resp)
	if resp.Processed != 0 || resp.Jobs == nil {
		t.Errorf("Expected an empty run with a jobs array, got %+v", resp)
	}

	w = httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs?limit=-1", nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestProcessJobsDisabled(t *testing.T) {
	handler, conn := newJobHandler(t, nil)
	sourceID := testutil.CreateTestSource(t, conn, "Recap", "Text")
	bulkGenerate(t, handler, sourceID, "greetings")

	w := httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs", nil))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)

	var pending int
	if err := conn.QueryRow("SELECT COUNT(*) FROM generation_jobs WHERE status = 'pending'").Scan(&pending); err != nil {
		t.Fatalf("Failed to count jobs: %v", err)
	}
	if pending != 1 {
		t.Errorf("Expected the job to stay pending, got %d pending", pending)
	}
}

func TestProcessJobsReclaimsStaleJobs(t *testing.T) {
	handler, conn := newJobHandler(t, &fakeModel{reply: greetingsReply})
	sourceID := testutil.CreateTestSource(t, conn, "Outdoor classic", "Snow fell in the second period.")
	queued := bulkGenerate(t, handler, sourceID, "greetings", "stats")

	// Both jobs were claimed by a process that died before finishing.
	// The stats job has no attempts left.
	longAgo := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range queued.Jobs {
		job := raw.(map[string]interface{})
		attempts := 1
		if job["content_kind"] == "stats" {
			attempts = 2
		}
		if _, err := conn.Exec("UPDATE generation_jobs SET status = 'in_progress', attempts = $1, started_at = $2 WHERE id = $3",
			attempts, longAgo, job["id"]); err != nil {
			t.Fatalf("Failed to seed stale job: %v", err)
		}
	}

	w := httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs?limit=5", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp struct {
		Processed int        `json:"processed"`
		Jobs      []jobs.Job `json:"jobs"`
	}
	decodeData(t, decode(t, w), &resp)
	if resp.Processed != 1 || len(resp.Jobs) != 1 {
		t.Fatalf("Expected the reclaimed job to run, got %+v", resp)
	}
	if job := resp.Jobs[0]; job.Kind != "greetings" || job.Status != models.JobCompleted || job.Attempts != 2 {
		t.Errorf("Expected greetings completed on its second attempt, got %+v", job)
	}

	var status string
	if err := conn.QueryRow("SELECT status FROM generation_jobs WHERE content_kind = 'stats'").Scan(&status); err != nil {
		t.Fatalf("Failed to read stats job: %v", err)
	}
	if status != models.JobFailed {
		t.Errorf("Expected the exhausted stale job to fail, got %s", status)
	}
}

func TestConcurrentProcessJobs(t *testing.T) {
	model := &fakeModel{reply: greetingsReply}
	handler, conn := newJobHandler(t, model)
	sourceID := testutil.CreateTestSource(t, conn, "Outdoor game", "Played in a football stadium.")
	bulkGenerate(t, handler, sourceID, "greetings", "stats", "wisdom")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs", nil))
			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
				return
			}
			var env struct {
				Data struct {
					Jobs []jobs.Job `json:"jobs"`
				} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Errorf("Failed to decode response: %v", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, job := range env.Data.Jobs {
				seen[job.ID]++
			}
		}()
	}
	wg.Wait()

	if len(seen) != 3 {
		t.Errorf("Expected all 3 jobs to run, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Job %s ran %d times", id, n)
		}
	}
	if len(model.prompts) != 3 {
		t.Errorf("Expected 3 model calls, got %d", len(model.prompts))
	}
}

func TestJobEndpoints(t *testing.T) {
	handler, conn := newJobHandler(t, &fakeModel{err: errors.New("model unavailable")})
	sourceID := testutil.CreateTestSource(t, conn, "Recap", "Text")
	queued := bulkGenerate(t, handler, sourceID, "greetings", "stats")

	// Two attempts with a max of two exhaust both jobs.
	w := httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs?limit=10", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if _, err := conn.Exec("UPDATE generation_jobs SET next_attempt_at = NULL"); err != nil {
		t.Fatalf("Failed to clear backoff: %v", err)
	}
	w = httptest.NewRecorder()
	handler.ProcessJobs(w, httptest.NewRequest("POST", "/api/process-jobs?limit=10", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	t.Run("stats", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Stats(w, httptest.NewRequest("GET", "/api/jobs/stats", nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		var stats map[string]int
		decodeData(t, decode(t, w), &stats)
		if stats[models.JobFailed] != 2 || stats[models.JobPending] != 0 {
			t.Errorf("Expected 2 failed jobs, got %v", stats)
		}
	})

	t.Run("list", func(t *testing.T) {
		testCases := []struct {
			query          string
			expectedStatus int
			expectedCount  int
		}{
			{"", http.StatusOK, 2},
			{"?status=failed&kind=stats", http.StatusOK, 1},
			{"?status=completed", http.StatusOK, 0},
			{"?source_content_id=" + sourceID, http.StatusOK, 2},
			{"?status=stuck", http.StatusBadRequest, 0},
		}
		for _, tc := range testCases {
			w := httptest.NewRecorder()
			handler.List(w, httptest.NewRequest("GET", "/api/jobs"+tc.query, nil))
			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus != http.StatusOK {
				continue
			}
			env := decode(t, w)
			var list []jobs.Job
			decodeData(t, env, &list)
			if len(list) != tc.expectedCount || env.Pagination == nil {
				t.Errorf("%q: expected %d jobs, got %d", tc.query, tc.expectedCount, len(list))
			}
		}
	})

	first := queued.Jobs[0].(map[string]interface{})["id"].(string)

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/jobs/"+first, nil)
		req.SetPathValue("id", first)
		w := httptest.NewRecorder()
		handler.Get(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var job jobs.Job
		decodeData(t, decode(t, w), &job)
		if job.Status != models.JobFailed || job.LastError == nil || job.Attempts != 2 {
			t.Errorf("Expected failed job with its last error, got %+v", job)
		}

		req = httptest.NewRequest("GET", "/api/jobs/missing", nil)
		req.SetPathValue("id", "missing")
		w = httptest.NewRecorder()
		handler.Get(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("retry", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/jobs/"+first+"/retry", nil)
		req.SetPathValue("id", first)
		w := httptest.NewRecorder()
		handler.Retry(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var job jobs.Job
		decodeData(t, decode(t, w), &job)
		if job.Status != models.JobPending || job.Attempts != 0 {
			t.Errorf("Expected job back in pending, got %+v", job)
		}

		// Only failed jobs can be retried.
		w = httptest.NewRecorder()
		handler.Retry(w, req)
		testutil.AssertStatus(t, w, http.StatusConflict)
	})
}
