// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/rinkside/cliparse"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/testutil"
)

type cannedClient struct{ reply string }

func (c cannedClient) Generate(context.Context, generation.Request) (string, error) {
	return c.reply, nil
}

func newTestRouter(t *testing.T, client generation.Client) (http.Handler, cliparse.Config) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t)
	svc, err := NewServices(conn, db.SQLite, cfg, client)
	if err != nil {
		t.Fatalf("Failed to build services: %v", err)
	}
	return NewRouter(svc, cfg), cfg
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "rinkside API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	// One routed request so the HTTP collectors have a sample.
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/public/greetings", nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("Expected http_requests_total in metrics output")
	}
}

func TestAuthRequired(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/me"},
		{"GET", "/api/kinds"},
		{"GET", "/api/content/greetings"},
		{"POST", "/api/content/greetings"},
		{"PATCH", "/api/content/greetings/some-id"},
		{"POST", "/api/content/greetings/some-id/publish"},
		{"POST", "/api/generate"},
		{"POST", "/api/bulk-generate"},
		{"POST", "/api/process-jobs"},
		{"GET", "/api/jobs"},
		{"GET", "/api/jobs/stats"},
		{"GET", "/api/prompts"},
		{"PUT", "/api/topics"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 without a token, got %d", w.Code)
			}

			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer wrong-token")
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 with a bad token, got %d", w.Code)
			}
		})
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	routes := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"GET", "/health", true},
		{"GET", "/metrics", true},
		{"GET", "/api/public/greetings", true},
		{"GET", "/api/public/greetings/random", true},
		{"GET", "/api/me", true},
		{"GET", "/api/kinds", true},
		{"GET", "/api/content/greetings", true},
		{"POST", "/api/content/greetings/bulk", true},
		{"POST", "/api/content/greetings/bulk-status", true},
		{"GET", "/api/content/greetings/some-id", true},
		{"PUT", "/api/content/greetings/some-id", true},
		{"DELETE", "/api/content/greetings/some-id", true},
		{"POST", "/api/content/greetings/some-id/status", true},
		{"POST", "/api/content/greetings/some-id/archive", true},
		{"GET", "/api/jobs/some-id", true},
		{"POST", "/api/jobs/some-id/retry", true},
		{"GET", "/api/prompts/greetings", true},
		{"PUT", "/api/prompts/greetings", true},
		{"GET", "/api/topics", true},
		{"GET", "/nonexistent", false},
		{"POST", "/api/nonexistent", false},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if route.shouldExist && (w.Code == http.StatusNotFound && !strings.Contains(w.Body.String(), "success")) {
				t.Errorf("Route %s %s should exist but got 404", route.method, route.path)
			}
			if !route.shouldExist && w.Code != http.StatusNotFound {
				t.Errorf("Route %s %s should not exist but got %d", route.method, route.path, w.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/api/kinds"},
		{"PATCH", "/api/jobs/stats"},
		{"POST", "/api/content/greetings/some-id"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	mux, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/content/greetings", nil)
	req.Header.Set("Origin", "https://cms.example.com")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://cms.example.com" {
		t.Errorf("Expected origin to be echoed, got %q", got)
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func call(t *testing.T, mux http.Handler, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest(method, path, body, testutil.AuthHeaders()))

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: failed to decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func TestContentWorkflow(t *testing.T) {
	reply := `[{"title":"Fastest hat trick","stat_value":"21 seconds","description":"Bill Mosienko, 1952."}]`
	mux, _ := newTestRouter(t, cannedClient{reply: reply})

	code, resp := call(t, mux, "GET", "/api/me", nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), "token:editor") {
		t.Fatalf("Expected the static token user, got %d %s", code, resp.Data)
	}

	code, resp = call(t, mux, "POST", "/api/content/source-content", map[string]interface{}{
		"title":        "Record book",
		"content_text": "Bill Mosienko scored three goals in 21 seconds.",
	})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201 creating source, got %d: %s", code, resp.Error)
	}
	var source struct {
		ID string `json:"id"`
	}
	json.Unmarshal(resp.Data, &source)

	code, resp = call(t, mux, "POST", "/api/bulk-generate", map[string]interface{}{
		"source_content_id": source.ID,
		"kinds":             []string{"stats"},
	})
	if code != http.StatusAccepted {
		t.Fatalf("Expected 202 queueing jobs, got %d: %s", code, resp.Error)
	}

	code, resp = call(t, mux, "POST", "/api/process-jobs", nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"status":"completed"`) {
		t.Fatalf("Expected a completed job, got %d %s", code, resp.Data)
	}

	code, resp = call(t, mux, "GET", "/api/content/stats?status=draft", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 listing drafts, got %d", code)
	}
	var drafts []map[string]interface{}
	json.Unmarshal(resp.Data, &drafts)
	if len(drafts) != 1 || drafts[0]["source_content_id"] != source.ID {
		t.Fatalf("Expected one draft linked to the source, got %s", resp.Data)
	}
	id := drafts[0]["id"].(string)

	// Drafts stay off the public site until published.
	code, resp = call(t, mux, "GET", "/api/public/stats/random", nil)
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 before publishing, got %d", code)
	}

	code, _ = call(t, mux, "POST", "/api/content/stats/"+id+"/publish", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 publishing, got %d", code)
	}

	code, resp = call(t, mux, "GET", "/api/public/stats/random", nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), "21 seconds") {
		t.Errorf("Expected the published stat, got %d %s", code, resp.Data)
	}

	code, resp = call(t, mux, "GET", "/api/content/source-content/"+source.ID, nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"stats"`) {
		t.Errorf("Expected the source to record stats use, got %d %s", code, resp.Data)
	}
}

func TestNewServicesRequiresAuth(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t)
	cfg.APITokens = nil

	if _, err := NewServices(conn, db.SQLite, cfg, nil); err == nil {
		t.Error("Expected an error with no authentication configured")
	}
}
