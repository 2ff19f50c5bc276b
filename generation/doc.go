// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package generation turns prompt templates into draft content through a
// language model. Gemini is the production Client; tests use a fake.
package generation
