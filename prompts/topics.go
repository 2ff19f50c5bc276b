// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListTopics returns the topic list, or the built-in one when the
// directory has no topics file.
func (l *Library) ListTopics() ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(l.dir, topicsName+ext))
	if errors.Is(err, os.ErrNotExist) {
		raw, err = defaults.ReadFile("defaults/" + topicsName + ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	return ParseList(string(raw)), nil
}

// SaveTopics replaces the topic list. Blank entries are dropped and
// duplicates collapsed.
func (l *Library) SaveTopics(topics []string) ([]string, error) {
	seen := map[string]bool{}
	clean := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" || seen[topic] {
			continue
		}
		if strings.ContainsAny(topic, "\r\n") {
			return nil, fmt.Errorf("%w: %q spans more than one line", ErrInvalidTopic, topic)
		}
		seen[topic] = true
		clean = append(clean, topic)
	}

	var b strings.Builder
	b.WriteString("# Topics\n\n")
	for _, topic := range clean {
		b.WriteString("- ")
		b.WriteString(topic)
		b.WriteString("\n")
	}
	if err := l.write(topicsName+ext, []byte(b.String())); err != nil {
		return nil, err
	}
	return clean, nil
}

// ParseList reads a markdown list. Bullets ("-", "*", "+") and numbered
// items ("1." or "1)") are unwrapped, bold markers removed, and headings
// and blank lines skipped. Plain lines are kept as they are.
func ParseList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || line == "---" || line == "```" || strings.HasPrefix(line, "```") {
			continue
		}
		line = stripMarker(line)
		line = strings.ReplaceAll(line, "**", "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func stripMarker(line string) string {
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if rest, ok := strings.CutPrefix(line, bullet); ok {
			return rest
		}
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits+1 >= len(line) {
		return line
	}
	if (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' ' {
		return line[digits+2:]
	}
	return line
}
