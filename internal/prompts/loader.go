// Package prompts holds the model prompts used by the intake classifier.
package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var files embed.FS

// Set is one prompt file parsed into templates keyed by name.
type Set struct {
	name      string
	templates map[string]*template.Template
}

var (
	setsMu sync.Mutex
	sets   = map[string]*Set{}
)

// Load parses an embedded prompt file once and returns the cached set.
func Load(filename string) (*Set, error) {
	setsMu.Lock()
	defer setsMu.Unlock()
	if s, ok := sets[filename]; ok {
		return s, nil
	}

	data, err := files.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	s := &Set{name: filename, templates: make(map[string]*template.Template, len(raw))}
	for key, text := range raw {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %q in %s: %w", key, filename, err)
		}
		s.templates[key] = tmpl
	}
	sets[filename] = s
	return s, nil
}

// Render executes one prompt with data. Every placeholder must be present.
func (s *Set) Render(key string, data map[string]string) (string, error) {
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, s.name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", key, err)
	}
	return b.String(), nil
}

// Keys lists the prompt names in the set, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render loads filename and renders key in one step.
func Render(filename, key string, data map[string]string) (string, error) {
	s, err := Load(filename)
	if err != nil {
		return "", err
	}
	return s.Render(key, data)
}
