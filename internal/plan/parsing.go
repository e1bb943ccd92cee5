package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// flexibleStep handles alternative field names that planning models
// commonly generate in plan files.
type flexibleStep struct {
	Number     int    `json:"step" yaml:"step"`
	ID         int    `json:"id" yaml:"id"` // Alternative name
	Agent      string `json:"agent" yaml:"agent"`
	Capability string `json:"capability" yaml:"capability"` // Alternative name
	Task       string `json:"task" yaml:"task"`
	DependsOn  []int  `json:"depends_on" yaml:"depends_on"`
	Depends    []int  `json:"depends" yaml:"depends"` // Alternative name
}

type flexibleDocument struct {
	Summary string         `json:"summary" yaml:"summary"`
	Context string         `json:"context" yaml:"context"`
	Steps   []flexibleStep `json:"steps" yaml:"steps"`
	Plan    []flexibleStep `json:"plan" yaml:"plan"` // Alternative name
}

// ParseFile reads and parses a plan document from a YAML or JSON file.
// The format is chosen by extension: .json parses as JSON, everything else
// as YAML. Alternative field names ("id" for "step", "capability" for
// "agent", "depends" for "depends_on", a top-level "plan" list instead of
// "steps") are accepted and normalized.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON parses a plan document from JSON bytes.
func ParseJSON(data []byte) (*Document, error) {
	var raw flexibleDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return normalizeDocument(raw)
}

// ParseYAML parses a plan document from YAML bytes.
func ParseYAML(data []byte) (*Document, error) {
	var raw flexibleDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	return normalizeDocument(raw)
}

func normalizeDocument(raw flexibleDocument) (*Document, error) {
	rawSteps := raw.Steps
	if len(rawSteps) == 0 {
		rawSteps = raw.Plan
	}
	if len(rawSteps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}

	doc := &Document{
		Summary: raw.Summary,
		Context: raw.Context,
		Steps:   make([]Step, 0, len(rawSteps)),
	}

	for _, rs := range rawSteps {
		step := Step{
			Number:    rs.Number,
			Agent:     rs.Agent,
			Task:      rs.Task,
			DependsOn: rs.DependsOn,
		}
		if step.Number == 0 {
			step.Number = rs.ID
		}
		if step.Agent == "" {
			step.Agent = rs.Capability
		}
		if len(step.DependsOn) == 0 {
			step.DependsOn = rs.Depends
		}
		doc.Steps = append(doc.Steps, step)
	}

	return doc, nil
}
