// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc123", "abc123", false},
		{"lowercase scheme", "bearer abc123", "abc123", false},
		{"extra spaces", "  Bearer   abc123  ", "abc123", false},
		{"missing", "", "", true},
		{"basic auth", "Basic dXNlcjpwYXNz", "", true},
		{"scheme only", "Bearer", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := BearerToken(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BearerToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticVerifier(t *testing.T) {
	v, err := NewStaticVerifier(map[string]string{"editor": "secret-1", "admin": "secret-2"})
	if err != nil {
		t.Fatal(err)
	}

	user, err := v.Verify(context.Background(), "secret-2")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != "token:admin" {
		t.Errorf("expected token:admin, got %s", user.ID)
	}

	if _, err := v.Verify(context.Background(), "secret-3"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSupabaseVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "coach@example.com"})
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	v := NewSupabaseVerifier(server.URL+"/", "anon-key", server.Client())

	user, err := v.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != "user-1" || user.Email != "coach@example.com" {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	_, err = v.Verify(context.Background(), "broken")
	if err == nil || errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected provider error, got %v", err)
	}
}

type stubVerifier struct {
	user User
	err  error
}

func (s stubVerifier) Verify(context.Context, string) (User, error) { return s.user, s.err }

func TestChainVerifier(t *testing.T) {
	providerDown := errors.New("provider down")

	tests := []struct {
		name    string
		chain   ChainVerifier
		wantID  string
		wantErr error
	}{
		{"first accepts", ChainVerifier{stubVerifier{user: User{ID: "a"}}, stubVerifier{err: ErrUnauthorized}}, "a", nil},
		{"second accepts", ChainVerifier{stubVerifier{err: ErrUnauthorized}, stubVerifier{user: User{ID: "b"}}}, "b", nil},
		{"all reject", ChainVerifier{stubVerifier{err: ErrUnauthorized}, stubVerifier{err: ErrUnauthorized}}, "", ErrUnauthorized},
		{"provider error surfaces", ChainVerifier{stubVerifier{err: providerDown}, stubVerifier{err: ErrUnauthorized}}, "", providerDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := tt.chain.Verify(context.Background(), "tok")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if user.ID != tt.wantID {
				t.Errorf("Verify() user = %s, want %s", user.ID, tt.wantID)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	v, _ := NewStaticVerifier(map[string]string{"editor": "tok"})

	var seen User
	handler := RequireUser(v, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer tok", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusUnauthorized {
				var body map[string]interface{}
				json.NewDecoder(w.Body).Decode(&body)
				if body["success"] != false {
					t.Errorf("expected envelope with success=false, got %v", body)
				}
			}
		})
	}

	if seen.ID != "token:editor" {
		t.Errorf("expected user in context, got %+v", seen)
	}
}
