// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rinkside/auth"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/models"
)

// Me handles GET /api/me
func Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	middleware.Success(w, http.StatusOK, models.UserInfo{ID: user.ID, Email: user.Email})
}
