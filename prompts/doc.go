// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package prompts manages the generation prompt templates and topic list.

Templates live as markdown files in the prompts directory:

	---
	kind: greetings
	temperature: 0.9
	count: 10
	system: Reply with JSON only.
	---
	Write {{.Count}} greetings.{{if .Topic}} Theme: {{.Topic}}.{{end}}

Every generatable kind has a built-in default named after it, so a fresh
install works without any files. Saving a template with the same name
overrides the default.

The topic list is topics.md in the same directory, one bullet per topic.
ParseList is also used to read bullet lists returned by the model.
*/
package prompts
