package models

// Content lifecycle status constants
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Generation job status constants
const (
	JobPending    = "pending"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Envelope wraps every API response
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes total pages for an offset/limit listing
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Request types

type StatusRequest struct {
	Status string `json:"status"`
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// Records are decoded lazily so each kind can validate its own fields
type BulkCreateRequest struct {
	Items          []map[string]interface{} `json:"items"`
	SkipDuplicates bool                     `json:"skip_duplicates"`
}

type GenerateRequest struct {
	Kind            string `json:"kind"`
	Prompt          string `json:"prompt"`
	Template        string `json:"template"`
	SourceContentID string `json:"source_content_id"`
	Topic           string `json:"topic"`
	Count           int    `json:"count"`
	Save            bool   `json:"save"`
}

type BulkGenerateRequest struct {
	SourceContentID string   `json:"source_content_id"`
	Kinds           []string `json:"kinds"`
}

type PromptRequest struct {
	Body string `json:"body"`
}

type TopicList struct {
	Topics []string `json:"topics"`
}

// Response types

type BulkCreateResponse struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Items    []interface{} `json:"items"`
}

type BulkStatusResponse struct {
	Updated int64  `json:"updated"`
	Status  string `json:"status"`
}

type GenerateResponse struct {
	Kind    string        `json:"kind"`
	Items   []interface{} `json:"items"`
	Dropped int           `json:"dropped"`
	Saved   int           `json:"saved"`
	Raw     string        `json:"raw,omitempty"`
}

type BulkGenerateResponse struct {
	Jobs    []interface{} `json:"jobs"`
	Skipped []string      `json:"skipped"`
}

type KindField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Rules    string `json:"rules,omitempty"`
}

type KindInfo struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Lifecycle   bool        `json:"lifecycle"`
	Generatable bool        `json:"generatable"`
	Fields      []KindField `json:"fields"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
