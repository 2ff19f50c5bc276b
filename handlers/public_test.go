// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/models"
	"github.com/danielhkuo/rinkside/testutil"
)

func publicRequest(kind, suffix string) *http.Request {
	req := httptest.NewRequest("GET", "/api/public/"+kind+suffix, nil)
	req.SetPathValue("kind", kind)
	return req
}

func TestPublicList(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewPublicHandler(content.NewStore(conn, db.SQLite))

	testutil.CreateTestGreeting(t, conn, "Published one", models.StatusPublished)
	testutil.CreateTestGreeting(t, conn, "Published two", models.StatusPublished)
	testutil.CreateTestGreeting(t, conn, "Still a draft", models.StatusDraft)

	testCases := []struct {
		name           string
		kind           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"only published", "greetings", "", http.StatusOK, 2},
		{"status cannot be widened", "greetings", "?status=draft", http.StatusOK, 2},
		{"search", "greetings", "?q=two", http.StatusOK, 1},
		{"no lifecycle", "categories", "", http.StatusNotFound, 0},
		{"source content is private", content.SourceKind, "", http.StatusNotFound, 0},
		{"unknown kind", "polls", "", http.StatusNotFound, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.List(w, publicRequest(tc.kind, tc.query))

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus != http.StatusOK {
				return
			}
			var recs []map[string]interface{}
			decodeData(t, decode(t, w), &recs)
			if len(recs) != tc.expectedCount {
				t.Errorf("Expected %d records, got %d", tc.expectedCount, len(recs))
			}
			for _, rec := range recs {
				if rec["status"] != models.StatusPublished {
					t.Errorf("Expected only published records, got %v", rec["status"])
				}
			}
		})
	}
}

func TestPublicRandom(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewPublicHandler(content.NewStore(conn, db.SQLite))

	w := httptest.NewRecorder()
	handler.Random(w, publicRequest("greetings", "/random"))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	testutil.CreateTestGreeting(t, conn, "Draft only", models.StatusDraft)
	id := testutil.CreateTestGreeting(t, conn, "The one", models.StatusPublished)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.Random(w, publicRequest("greetings", "/random"))
		testutil.AssertStatus(t, w, http.StatusOK)

		var rec map[string]interface{}
		decodeData(t, decode(t, w), &rec)
		if rec["id"] != id {
			t.Errorf("Expected the only published greeting %s, got %v", id, rec["id"])
		}
	}
}
