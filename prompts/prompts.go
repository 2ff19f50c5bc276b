// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.md
var defaults embed.FS

const (
	ext        = ".md"
	topicsName = "topics"
)

var (
	ErrInvalidName     = errors.New("invalid prompt name")
	ErrNotFound        = errors.New("prompt not found")
	ErrInvalidTemplate = errors.New("invalid prompt template")
	ErrInvalidTopic    = errors.New("invalid topic")
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Template is a prompt file: YAML front matter followed by a
// text/template body.
type Template struct {
	Name        string     `json:"name" yaml:"-"`
	Kind        string     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Temperature *float32   `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Count       int        `json:"count,omitempty" yaml:"count,omitempty"`
	System      string     `json:"system,omitempty" yaml:"system,omitempty"`
	Body        string     `json:"body" yaml:"-"`
	BuiltIn     bool       `json:"built_in" yaml:"-"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Data is what a template body can reference.
type Data struct {
	Count    int
	Source   string
	Topic    string
	Kind     string
	Describe string
	Fields   []string
}

// Library reads and writes templates under a directory, falling back to
// the built-in defaults for names that have no file.
type Library struct {
	dir string
	mu  sync.Mutex
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the directory templates are written to.
func (l *Library) Dir() string {
	return l.dir
}

// List returns every template, built-in or on disk, sorted by name.
func (l *Library) List() ([]Template, error) {
	names := map[string]bool{}

	builtIn, err := fs.Glob(defaults, "defaults/*"+ext)
	if err != nil {
		return nil, err
	}
	for _, p := range builtIn {
		names[strings.TrimSuffix(filepath.Base(p), ext)] = true
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read prompts dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if validName.MatchString(name) {
			names[name] = true
		}
	}
	delete(names, topicsName)

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	out := make([]Template, 0, len(sorted))
	for _, name := range sorted {
		t, err := l.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Get loads the named template. A file in the directory overrides the
// built-in default of the same name.
func (l *Library) Get(name string) (Template, error) {
	if !validName.MatchString(name) || name == topicsName {
		return Template{}, ErrInvalidName
	}

	path := filepath.Join(l.dir, name+ext)
	raw, err := os.ReadFile(path)
	if err == nil {
		t, err := Parse(name, string(raw))
		if err != nil {
			return Template{}, err
		}
		if info, statErr := os.Stat(path); statErr == nil {
			mod := info.ModTime().UTC()
			t.UpdatedAt = &mod
		}
		return t, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Template{}, fmt.Errorf("read prompt %s: %w", name, err)
	}

	raw, err = defaults.ReadFile("defaults/" + name + ext)
	if err != nil {
		return Template{}, ErrNotFound
	}
	t, err := Parse(name, string(raw))
	if err != nil {
		return Template{}, err
	}
	t.BuiltIn = true
	return t, nil
}

// Save validates raw as a template and writes it to the directory.
func (l *Library) Save(name, raw string) (Template, error) {
	if !validName.MatchString(name) || name == topicsName {
		return Template{}, ErrInvalidName
	}
	t, err := Parse(name, raw)
	if err != nil {
		return Template{}, err
	}
	if _, err := compile(t); err != nil {
		return Template{}, err
	}

	if err := l.write(name+ext, []byte(raw)); err != nil {
		return Template{}, err
	}
	return l.Get(name)
}

// Render executes the template body against data.
func Render(t Template, data Data) (string, error) {
	tmpl, err := compile(t)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Parse splits raw into front matter and body.
func Parse(name, raw string) (Template, error) {
	t := Template{Name: name}
	body := strings.ReplaceAll(raw, "\r\n", "\n")

	if rest, ok := strings.CutPrefix(body, "---\n"); ok {
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return Template{}, fmt.Errorf("%w: %s: unterminated front matter", ErrInvalidTemplate, name)
		}
		if err := yaml.Unmarshal([]byte(rest[:end]), &t); err != nil {
			return Template{}, fmt.Errorf("%w: %s: front matter: %v", ErrInvalidTemplate, name, err)
		}
		body = rest[end+len("\n---"):]
		body = strings.TrimPrefix(body, "\n")
	}

	t.Name = name
	t.Body = strings.TrimSpace(body)
	if t.Body == "" {
		return Template{}, fmt.Errorf("%w: %s: body is empty", ErrInvalidTemplate, name)
	}
	if t.Count < 0 {
		return Template{}, fmt.Errorf("%w: %s: count must not be negative", ErrInvalidTemplate, name)
	}
	if t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > 2) {
		return Template{}, fmt.Errorf("%w: %s: temperature must be between 0 and 2", ErrInvalidTemplate, name)
	}
	return t, nil
}

func compile(t Template) (*template.Template, error) {
	tmpl, err := template.New(t.Name).
		Funcs(template.FuncMap{"join": strings.Join}).
		Option("missingkey=zero").
		Parse(t.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, t.Name, err)
	}
	return tmpl, nil
}

// write replaces file atomically: a temp file in the same directory is
// renamed over the target.
func (l *Library) write(file string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create prompts dir: %w", err)
	}
	tmp, err := os.CreateTemp(l.dir, "."+file+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, file)); err != nil {
		return fmt.Errorf("replace %s: %w", file, err)
	}
	return nil
}
