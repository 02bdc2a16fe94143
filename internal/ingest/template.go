package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joss/seccompare/internal/domain"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// LoadTemplate reads a prompt template from a YAML (or JSON) file.
// A missing id gets a UUID and a missing name the file's base name.
// When no variables are listed they are collected from {{name}}
// placeholders in the content.
func LoadTemplate(path string) (*domain.PromptTemplate, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return ParseTemplate(path, content, time.Now())
}

// ParseTemplate decodes a template from content.
func ParseTemplate(path string, content []byte, now time.Time) (*domain.PromptTemplate, error) {
	var tmpl domain.PromptTemplate
	if err := yaml.Unmarshal(content, &tmpl); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if strings.TrimSpace(tmpl.Content) == "" {
		return nil, fmt.Errorf("parse template %s: content is empty", path)
	}

	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.Name == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(tmpl.Variables) == 0 {
		tmpl.Variables = Placeholders(tmpl.Content)
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	if tmpl.UpdatedAt.IsZero() {
		tmpl.UpdatedAt = tmpl.CreatedAt
	}
	return &tmpl, nil
}

// Placeholders returns the distinct {{name}} placeholders in content, in
// order of first appearance.
func Placeholders(content string) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}
