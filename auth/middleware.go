// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/rinkside/middleware"
)

// RequireUser rejects requests without a valid bearer token and stores
// the verified user in the request context.
func RequireUser(v Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		user, err := v.Verify(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				slog.Error("token verification failed", "error", err)
			}
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}
