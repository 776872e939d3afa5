package definition

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/garyjia/content-workflow/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/content.yaml
var defaultContentWorkflow []byte

// Document is a set of workflow definitions, one per workflow type
type Document struct {
	Workflows []Workflow `yaml:"workflows"`
}

// Workflow declares the states and transitions of one workflow type
type Workflow struct {
	Type        entity.WorkflowType `yaml:"type"`
	States      []StateSpec         `yaml:"states"`
	Transitions []TransitionSpec    `yaml:"transitions"`
}

// StateSpec declares a state
type StateSpec struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Initial     bool   `yaml:"initial"`
	Final       bool   `yaml:"final"`
	Active      *bool  `yaml:"active"`
	Order       int    `yaml:"order"`
	Color       string `yaml:"color"`
}

// TransitionSpec declares a transition between two states of the same workflow
type TransitionSpec struct {
	Name             string   `yaml:"name"`
	From             string   `yaml:"from"`
	To               string   `yaml:"to"`
	Roles            []string `yaml:"roles"`
	RequiresApproval bool     `yaml:"requires_approval"`
	ApprovalCount    int      `yaml:"approval_count"`
	NotifyRoles      []string `yaml:"notify_roles"`
	NotifyAuthor     bool     `yaml:"notify_author"`
	Active           *bool    `yaml:"active"`
}

// Parse decodes a definition document from YAML bytes
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("definition payload is empty")
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads a definition document from disk
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Default returns the built-in content workflow
func Default() *Document {
	doc, err := Parse(defaultContentWorkflow)
	if err != nil {
		panic(fmt.Sprintf("embedded content workflow is invalid: %v", err))
	}
	return doc
}

// validate checks document structure. Field rules are left to the registry and graph.
func (d *Document) validate() error {
	seen := make(map[entity.WorkflowType]bool, len(d.Workflows))
	for _, wf := range d.Workflows {
		if !wf.Type.IsValid() {
			return fmt.Errorf("unknown workflow type %q", wf.Type)
		}
		if seen[wf.Type] {
			return fmt.Errorf("workflow type %s declared more than once", wf.Type)
		}
		seen[wf.Type] = true

		initial := 0
		for _, s := range wf.States {
			if s.Initial {
				initial++
			}
		}
		if initial > 1 {
			return fmt.Errorf("workflow %s declares %d initial states", wf.Type, initial)
		}
	}
	return nil
}
