package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: a set of Slice definitions and the
// cases that exercise their encoding and dispatch semantics.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists the CUE files holding the Slice definitions.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Cases are executed in order against a codec over the validated
	// definitions.
	Cases []Case `yaml:"cases"`
}

// Case kinds.
const (
	// KindRoundtrip encodes a value, decodes it and re-encodes it.
	KindRoundtrip = "roundtrip"
	// KindSlicing relays a class or exception through a peer that does not
	// know the derived types listed in Hide.
	KindSlicing = "slicing"
	// KindEnum decodes a raw integer as an enum.
	KindEnum = "enum"
	// KindDispatch invokes an operation through a proxy and a dispatcher.
	KindDispatch = "dispatch"
)

// Case is one step of a scenario.
type Case struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Type is the Slice type of Value (roundtrip, slicing) or the enum
	// (enum).
	Type string `yaml:"type,omitempty"`

	// Value is the plain value to encode. Classes and exceptions name their
	// concrete type under "$type".
	Value any `yaml:"value,omitempty"`

	// Hide lists the identifiers the receiving peer does not know (slicing).
	Hide []string `yaml:"hide,omitempty"`

	// Raw is the integer decoded as the enum (enum).
	Raw *int64 `yaml:"raw,omitempty"`

	// Interface and Operation select the operation to invoke (dispatch).
	Interface string         `yaml:"interface,omitempty"`
	Operation string         `yaml:"operation,omitempty"`
	Args      map[string]any `yaml:"args,omitempty"`

	// Handler configures how the service answers (dispatch).
	Handler *HandlerClause `yaml:"handler,omitempty"`

	// Expect holds the expected outcome. A nil Expect only requires the case
	// to run without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// HandlerClause is the scripted behavior of the dispatched operation.
// At most one of Returns, Raise and Fail is set; none means an empty reply.
type HandlerClause struct {
	// Returns are the results, keyed by out-parameter name and
	// "returnValue".
	Returns map[string]any `yaml:"returns,omitempty"`
	// Raise is an exception value the handler throws.
	Raise map[string]any `yaml:"raise,omitempty"`
	// Fail is an error message the handler returns.
	Fail string `yaml:"fail,omitempty"`
}

// ExpectClause specifies the expected outcome of a case. Only the set
// fields are checked; maps use subset semantics.
type ExpectClause struct {
	// Encoded is the expected payload in hex (roundtrip).
	Encoded string `yaml:"encoded,omitempty"`
	// TypeID is the type the receiver decoded (slicing).
	TypeID string `yaml:"type_id,omitempty"`
	// UnknownSlices is the number of slices the receiver preserved (slicing).
	UnknownSlices *int `yaml:"unknown_slices,omitempty"`
	// Fields are the decoded fields (slicing).
	Fields map[string]any `yaml:"fields,omitempty"`
	// Enumerator is the decoded enumerator name (enum).
	Enumerator string `yaml:"enumerator,omitempty"`
	// Error is the expected failure class, one of the Error* constants.
	Error string `yaml:"error,omitempty"`
	// Status is the reply status name, as printed by codec.Status (dispatch).
	Status string `yaml:"status,omitempty"`
	// Results are the decoded results (dispatch).
	Results map[string]any `yaml:"results,omitempty"`
	// Exception is the type ID of the exception received (dispatch).
	Exception string `yaml:"exception,omitempty"`
}

// Expected error classes.
const (
	ErrorInvalidEnumValue = "invalid_enum_value"
	ErrorInvalidData      = "invalid_data"
	ErrorOutOfRange       = "out_of_range"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	base := filepath.Dir(path)
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) {
			scenario.Specs[i] = filepath.Join(base, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml or .yml file directly under dir, sorted
// by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario directory")
	}
	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, errors.Newf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string)
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", filepath.Base(path))
		}
		if prev, ok := names[s.Name]; ok {
			return nil, errors.Newf("%s: scenario name %q already used by %s", filepath.Base(path), s.Name, prev)
		}
		names[s.Name] = filepath.Base(path)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i := range s.Cases {
		if err := validateCase(i, &s.Cases[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateCase validates a single case based on its kind.
func validateCase(index int, c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("cases[%d]: name is required", index)
	}

	switch c.Kind {
	case KindRoundtrip:
		if c.Type == "" || c.Value == nil {
			return fmt.Errorf("cases[%d]: type and value are required for roundtrip", index)
		}
	case KindSlicing:
		if c.Type == "" || c.Value == nil {
			return fmt.Errorf("cases[%d]: type and value are required for slicing", index)
		}
		if len(c.Hide) == 0 {
			return fmt.Errorf("cases[%d]: hide list is required for slicing", index)
		}
	case KindEnum:
		if c.Type == "" || c.Raw == nil {
			return fmt.Errorf("cases[%d]: type and raw are required for enum", index)
		}
	case KindDispatch:
		if c.Interface == "" || c.Operation == "" {
			return fmt.Errorf("cases[%d]: interface and operation are required for dispatch", index)
		}
		if h := c.Handler; h != nil {
			set := 0
			for _, b := range []bool{h.Returns != nil, h.Raise != nil, h.Fail != ""} {
				if b {
					set++
				}
			}
			if set > 1 {
				return fmt.Errorf("cases[%d]: handler sets more than one of returns, raise and fail", index)
			}
		}
	case "":
		return fmt.Errorf("cases[%d]: kind is required", index)
	default:
		return fmt.Errorf("cases[%d]: unknown case kind %q", index, c.Kind)
	}

	if e := c.Expect; e != nil && e.Error != "" {
		switch e.Error {
		case ErrorInvalidEnumValue, ErrorInvalidData, ErrorOutOfRange:
		default:
			return fmt.Errorf("cases[%d]: unknown expected error %q", index, e.Error)
		}
	}
	return nil
}
