// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrUnauthorized = errors.New("invalid or expired token")
)

// User is the authenticated caller. Any valid user may use the CMS.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// StaticVerifier accepts a fixed set of named tokens.
// Tokens are compared as HMAC digests so comparison time does not depend
// on where the first differing byte is.
type StaticVerifier struct {
	key     []byte
	digests map[string][]byte // name -> digest
}

func NewStaticVerifier(tokens map[string]string) (*StaticVerifier, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate verifier key: %w", err)
	}
	v := &StaticVerifier{key: key, digests: make(map[string][]byte, len(tokens))}
	for name, token := range tokens {
		v.digests[name] = v.digest(token)
	}
	return v, nil
}

func (v *StaticVerifier) digest(token string) []byte {
	h := hmac.New(sha256.New, v.key)
	h.Write([]byte(token))
	return h.Sum(nil)
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (User, error) {
	sum := v.digest(token)
	for name, expected := range v.digests {
		if hmac.Equal(sum, expected) {
			return User{ID: "token:" + name}, nil
		}
	}
	return User{}, ErrUnauthorized
}

// SupabaseVerifier passes the token through to a Supabase-compatible
// auth server's GET /auth/v1/user endpoint.
type SupabaseVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseVerifier(baseURL, apiKey string, client *http.Client) *SupabaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("auth provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return User{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return User{}, fmt.Errorf("auth provider returned %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode auth user: %w", err)
	}
	if user.ID == "" {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// ChainVerifier tries each verifier in order. A provider error is kept
// and returned only if no later verifier accepts the token.
type ChainVerifier []Verifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (User, error) {
	lastErr := ErrUnauthorized
	for _, v := range c {
		user, err := v.Verify(ctx, token)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			lastErr = err
		}
	}
	return User{}, lastErr
}

type contextKey struct{}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user RequireUser stored, if any
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	return user, ok
}
