// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/rinkside/cliparse"
	"github.com/danielhkuo/rinkside/db"
)

// TestToken is the bearer token GetTestConfig accepts
const TestToken = "test-editor-token"

// SetupTestDB creates a fresh in-memory database with the full schema.
// The connection is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig(t *testing.T) cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       ":memory:",
		DatabaseType:      "sqlite",
		APITokens:         map[string]string{"editor": TestToken},
		GeminiModel:       cliparse.DefaultGeminiModel,
		PromptsDir:        t.TempDir(),
		WorkerInterval:    time.Second,
		WorkerConcurrency: 1,
		JobMaxAttempts:    cliparse.DefaultJobMaxAttempts,
		JobStaleAfter:     cliparse.DefaultJobStaleAfter,
	}
}

// CreateTestSource inserts an ingested source record and returns its ID
func CreateTestSource(t *testing.T, conn *sql.DB, title, text string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := conn.Exec(`
		INSERT INTO source_content (id, title, content_text, used_for_kinds, created_at, updated_at)
		VALUES ($1, $2, $3, '[]', $4, $5)
	`, id, title, text, now, now)
	if err != nil {
		t.Fatalf("Failed to create test source: %v", err)
	}

	return id
}

// CreateTestGreeting inserts a greeting with the given status and returns its ID
func CreateTestGreeting(t *testing.T, conn *sql.DB, text, status string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	var publishedAt any
	if status == "published" {
		publishedAt = now
	}
	_, err := conn.Exec(`
		INSERT INTO greetings (id, greeting_text, status, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, text, status, publishedAt, now, now)
	if err != nil {
		t.Fatalf("Failed to create test greeting: %v", err)
	}

	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AuthHeaders returns headers carrying the test bearer token
func AuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + TestToken}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
