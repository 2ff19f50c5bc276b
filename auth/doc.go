// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies bearer tokens for the CMS endpoints.

# Tokens

Callers send the token their auth provider issued:

	Authorization: Bearer <token>

Authorization is "is there a valid user"; there are no roles.

# Verifiers

  - SupabaseVerifier passes the token to GET {AUTH_URL}/auth/v1/user with
    the project API key and trusts the user it returns.
  - StaticVerifier accepts configured API tokens (API_TOKENS), compared as
    HMAC-SHA256 digests with hmac.Equal.
  - ChainVerifier tries several verifiers in order.

# Middleware

	mux.HandleFunc("GET /api/me", auth.RequireUser(verifier, handler))

RequireUser answers 401 with the standard envelope and otherwise puts the
User in the request context:

	user, ok := auth.UserFromContext(r.Context())
*/
package auth
