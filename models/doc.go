// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response and envelope types for the API.

# Envelope

Every response is wrapped:

	{"success": true, "data": ..., "pagination": {...}}
	{"success": false, "error": "question is required", "details": {...}}

# Request Types

  - StatusRequest, BulkStatusRequest: lifecycle transitions
  - BulkCreateRequest: items for one content kind
  - GenerateRequest: ad hoc generation, optionally saved as drafts
  - BulkGenerateRequest: fan a source record out into jobs
  - PromptRequest, TopicList: prompt library files

# Constants

Content status values:

	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"

Generation job status values:

	JobPending    = "pending"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
*/
package models
