// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms), and records http_requests_total and
http_request_duration_seconds labelled with the matched route pattern.

# CORS Middleware

Enable cross-origin requests for the CMS frontend:

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigin, mux),
	}

Allows methods GET, POST, PUT, PATCH, DELETE, OPTIONS with headers
Content-Type and Authorization.

# JSON Helpers

Every response uses the envelope from models:

	middleware.Success(w, http.StatusOK, data)
	middleware.Paginated(w, records, models.NewPagination(page, limit, total))
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies (capped at 1 MiB, numbers as json.Number):

	var req models.GenerateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)
*/
package middleware
