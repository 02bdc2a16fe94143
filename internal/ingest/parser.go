// Package ingest loads model findings and prompt templates from files
// into review sessions.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joss/seccompare/internal/domain"
)

// Parser decodes findings from one file format.
type Parser interface {
	// Extensions returns file extensions this parser handles.
	Extensions() []string
	// Parse decodes the findings in content.
	Parse(path string, content []byte) ([]domain.Finding, error)
}

// envelope is the object form of a findings file.
type envelope struct {
	Findings []domain.Finding `json:"findings" yaml:"findings"`
}

// JSONParser reads a JSON array of findings or {"findings": [...]}.
type JSONParser struct{}

// NewJSONParser creates a JSON findings parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Extensions() []string {
	return []string{".json"}
}

func (p *JSONParser) Parse(path string, content []byte) ([]domain.Finding, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return []domain.Finding{}, nil
	}
	if trimmed[0] == '[' {
		var findings []domain.Finding
		if err := json.Unmarshal(trimmed, &findings); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return findings, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return env.Findings, nil
}

// YAMLParser reads a YAML sequence of findings or a mapping with a
// findings key.
type YAMLParser struct{}

// NewYAMLParser creates a YAML findings parser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

func (p *YAMLParser) Extensions() []string {
	return []string{".yaml", ".yml"}
}

func (p *YAMLParser) Parse(path string, content []byte) ([]domain.Finding, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return []domain.Finding{}, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var findings []domain.Finding
		if err := root.Decode(&findings); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return findings, nil
	case yaml.MappingNode:
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return env.Findings, nil
	}
	return nil, fmt.Errorf("parse %s: expected a list of findings or a findings key", path)
}

// Registry manages multiple parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a parser registry.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}
	r.Register(NewJSONParser())
	r.Register(NewYAMLParser())
	return r
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.parsers[ext] = p
	}
}

// GetParser returns a parser for the given file extension.
func (r *Registry) GetParser(ext string) Parser {
	return r.parsers[strings.ToLower(ext)]
}

// CanParse returns true if the registry can parse the file.
func (r *Registry) CanParse(path string) bool {
	return r.GetParser(filepath.Ext(path)) != nil
}

// ParseFile parses a file using the appropriate parser.
func (r *Registry) ParseFile(path string) ([]domain.Finding, error) {
	p := r.GetParser(filepath.Ext(path))
	if p == nil {
		return nil, fmt.Errorf("parse %s: unsupported file type", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read findings: %w", err)
	}

	return p.Parse(path, content)
}
