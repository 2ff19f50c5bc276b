// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/metrics"
	"github.com/danielhkuo/rinkside/prompts"
)

const (
	DefaultCount = 10
	MaxCount     = 50
)

var (
	// ErrDisabled is returned when no model client is configured.
	ErrDisabled = errors.New("generation is disabled")
	// ErrEmptyResult means the model answered but no item survived
	// validation.
	ErrEmptyResult = errors.New("generation produced no valid items")
)

// Fields a model never fills in.
var assignedFields = map[string]bool{
	"category_id":       true,
	"source_content_id": true,
	"used_for_kinds":    true,
}

// Input selects the prompt and what it is filled with.
type Input struct {
	Prompt     string // inline template body, overrides Template
	Template   string // template name, defaults to the kind name
	SourceText string
	Topic      string
	Count      int
}

// Result holds the validated drafts of one generation call.
type Result struct {
	Items   []content.Record
	Dropped int
	Raw     string
}

// Service renders prompts, calls the model and validates what comes back.
type Service struct {
	client  Client
	prompts *prompts.Library
}

// NewService creates a Service. A nil client disables generation.
func NewService(client Client, library *prompts.Library) *Service {
	return &Service{client: client, prompts: library}
}

// Enabled reports whether a model client is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Generate produces up to Count draft records of kind.
func (s *Service) Generate(ctx context.Context, kind *content.Kind, in Input) (Result, error) {
	if s.client == nil {
		return Result{}, ErrDisabled
	}
	if !kind.Generatable {
		return Result{}, content.Invalid("kind", kind.Name+" cannot be generated")
	}

	tmpl, err := s.template(kind, in)
	if err != nil {
		return Result{}, err
	}

	count := in.Count
	if count <= 0 {
		count = tmpl.Count
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		return Result{}, content.Invalid("count", fmt.Sprintf("must be at most %d", MaxCount))
	}

	prompt, err := prompts.Render(tmpl, prompts.Data{
		Count:    count,
		Source:   in.SourceText,
		Topic:    in.Topic,
		Kind:     kind.Name,
		Describe: kind.Describe,
		Fields:   generatedFields(kind),
	})
	if err != nil {
		return Result{}, content.Invalid("prompt", err.Error())
	}

	raw, err := s.client.Generate(ctx, Request{
		Prompt:      prompt,
		System:      tmpl.System,
		Temperature: tmpl.Temperature,
		JSON:        true,
	})
	if err != nil {
		metrics.Generations.WithLabelValues(kind.Name, "error").Inc()
		return Result{}, fmt.Errorf("generate %s: %w", kind.Name, err)
	}

	res := Result{Raw: raw}
	items, err := ParseItems(raw, kind)
	if err != nil {
		metrics.Generations.WithLabelValues(kind.Name, "unparseable").Inc()
		slog.Warn("generated output could not be parsed", "kind", kind.Name, "length", len(raw))
		return res, fmt.Errorf("generate %s: %w", kind.Name, ErrEmptyResult)
	}

	for _, item := range items {
		if len(res.Items) == count {
			break
		}
		rec, err := kind.Normalize(generatedOnly(kind, item), false)
		if err != nil {
			res.Dropped++
			slog.Debug("dropped generated item", "kind", kind.Name, "error", err)
			continue
		}
		delete(rec, "status")
		res.Items = append(res.Items, rec)
	}

	if len(res.Items) == 0 {
		metrics.Generations.WithLabelValues(kind.Name, "empty").Inc()
		return res, fmt.Errorf("generate %s: %w", kind.Name, ErrEmptyResult)
	}

	metrics.Generations.WithLabelValues(kind.Name, "ok").Inc()
	slog.Info("generated content", "kind", kind.Name, "items", len(res.Items), "dropped", res.Dropped)
	return res, nil
}

func (s *Service) template(kind *content.Kind, in Input) (prompts.Template, error) {
	if in.Prompt != "" {
		tmpl, err := prompts.Parse("inline", in.Prompt)
		if err != nil {
			return prompts.Template{}, content.Invalid("prompt", err.Error())
		}
		return tmpl, nil
	}

	name := in.Template
	if name == "" {
		name = kind.Name
	}
	tmpl, err := s.prompts.Get(name)
	if errors.Is(err, prompts.ErrNotFound) || errors.Is(err, prompts.ErrInvalidName) {
		return prompts.Template{}, content.Invalid("template", fmt.Sprintf("%q does not exist", name))
	}
	if err != nil {
		return prompts.Template{}, err
	}
	if tmpl.Kind != "" && tmpl.Kind != kind.Name {
		return prompts.Template{}, content.Invalid("template", fmt.Sprintf("%q is for %s", name, tmpl.Kind))
	}
	return tmpl, nil
}

// generatedFields lists the fields a prompt asks the model for.
func generatedFields(kind *content.Kind) []string {
	var out []string
	for _, f := range kind.Fields {
		if !assignedFields[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// generatedOnly drops keys the kind does not have or the server assigns.
func generatedOnly(kind *content.Kind, item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for key, v := range item {
		if assignedFields[key] {
			continue
		}
		if _, ok := kind.Field(key); ok {
			out[key] = v
		}
	}
	return out
}
