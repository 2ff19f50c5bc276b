// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/prompts"
)

// ErrUnparseable means the model output held no usable items.
var ErrUnparseable = errors.New("could not parse generated items")

// ParseItems turns model output into raw items for kind. It accepts a JSON
// array, an object wrapping the array in "items", or a single object, with
// or without a markdown code fence. Anything else is read as a bullet list,
// one item per line, mapped onto the kind's primary field.
func ParseItems(text string, kind *content.Kind) ([]map[string]any, error) {
	text = stripFences(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrUnparseable
	}

	if v, ok := decodeJSON(text); ok {
		items := collect(v, kind)
		if len(items) == 0 {
			return nil, ErrUnparseable
		}
		return items, nil
	}

	// Prose around a JSON array.
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		if v, ok := decodeJSON(text[start : end+1]); ok {
			if items := collect(v, kind); len(items) > 0 {
				return items, nil
			}
		}
	}

	if kind.Primary == "" {
		return nil, ErrUnparseable
	}
	var items []map[string]any
	for _, line := range prompts.ParseList(text) {
		items = append(items, map[string]any{kind.Primary: line})
	}
	if len(items) == 0 {
		return nil, ErrUnparseable
	}
	return items, nil
}

func decodeJSON(text string) (any, bool) {
	if text[0] != '[' && text[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func collect(v any, kind *content.Kind) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if inner, ok := t["items"].([]any); ok {
			return collect(inner, kind)
		}
		return []map[string]any{t}
	case []any:
		var items []map[string]any
		for _, el := range t {
			switch e := el.(type) {
			case map[string]any:
				items = append(items, e)
			case string:
				if kind.Primary != "" && strings.TrimSpace(e) != "" {
					items = append(items, map[string]any{kind.Primary: e})
				}
			}
		}
		return items
	}
	return nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		return ""
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
