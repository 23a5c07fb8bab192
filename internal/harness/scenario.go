package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vtree/internal/diff"
)

// Scenario is one diff case.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Path is the logical page path; it determines the page seed.
	Path string `yaml:"path,omitempty"`

	// Fragment parses Old and New as body fragments instead of documents.
	Fragment bool `yaml:"fragment,omitempty"`

	// Process runs the default family pipeline over both versions before
	// diffing them.
	Process bool `yaml:"process,omitempty"`

	// Families is a CUE file of custom families. Resolved relative to the
	// scenario file by LoadScenario.
	Families string `yaml:"families,omitempty"`

	Options *Options `yaml:"options,omitempty"`

	Old string `yaml:"old"`
	New string `yaml:"new"`

	Assertions []Assertion `yaml:"assertions"`
}

// Options overrides diff tuning. Unset fields keep the defaults.
type Options struct {
	ReloadThreshold *float64 `yaml:"reload_threshold,omitempty"`
	MaxOps          *int     `yaml:"max_ops,omitempty"`
}

func (o *Options) diffOptions() diff.Options {
	out := diff.DefaultOptions()
	if o == nil {
		return out
	}
	if o.ReloadThreshold != nil {
		out.ReloadThreshold = *o.ReloadThreshold
	}
	if o.MaxOps != nil {
		out.MaxOps = *o.MaxOps
	}
	return out
}

// Assertion checks one property of a scenario's result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Reload is the expected reload decision (reload).
	Reload *bool `yaml:"reload,omitempty"`

	// Reason must appear in the reload reason (reload, optional).
	Reason string `yaml:"reason,omitempty"`

	// Count is the expected number of operations (op_count).
	Count *int `yaml:"count,omitempty"`

	// Kinds is the expected sequence of operation kinds (op_kinds).
	Kinds []string `yaml:"kinds,omitempty"`

	// Op is a formatted operation that must appear in the patch
	// (contains_op).
	Op string `yaml:"op,omitempty"`
}

// Assertion type constants.
const (
	AssertReload     = "reload"
	AssertOpCount    = "op_count"
	AssertOpKinds    = "op_kinds"
	AssertContainsOp = "contains_op"
)

// LoadScenario reads a scenario file. Unknown fields are rejected, and
// Families is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Families != "" && !filepath.IsAbs(s.Families) {
		s.Families = filepath.Join(filepath.Dir(path), s.Families)
	}
	if s.Families != "" {
		if _, err := os.Stat(s.Families); err != nil {
			return nil, fmt.Errorf("%s: invalid scenario: families file: %w", path, err)
		}
	}
	return s, nil
}

// LoadScenarios loads every *.yaml file in dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.Path == "" {
		s.Path = "/"
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Old == "" || s.New == "" {
		return fmt.Errorf("old and new are required")
	}
	if o := s.Options; o != nil {
		if o.ReloadThreshold != nil && (*o.ReloadThreshold < 0 || *o.ReloadThreshold > 1) {
			return fmt.Errorf("options.reload_threshold must be within [0, 1]")
		}
		if o.MaxOps != nil && *o.MaxOps < 0 {
			return fmt.Errorf("options.max_ops must be non-negative")
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertReload:
		if a.Reload == nil {
			return fmt.Errorf("assertions[%d]: reload is required for reload", index)
		}
	case AssertOpCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for op_count", index)
		}
	case AssertOpKinds:
		if a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: kinds is required for op_kinds", index)
		}
	case AssertContainsOp:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for contains_op", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
