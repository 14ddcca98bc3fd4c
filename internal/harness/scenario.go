package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh graph.System.
type Scenario struct {
	// Name uniquely identifies the scenario. It names the golden file and
	// prefixes commit IDs.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description" json:"description"`

	// Steps run in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step is one operation. Which fields apply depends on Op; see the package
// documentation.
type Step struct {
	Op        string      `yaml:"op" json:"op"`
	Context   string      `yaml:"context,omitempty" json:"context,omitempty"`
	Name      string      `yaml:"name,omitempty" json:"name,omitempty"`
	Label     string      `yaml:"label,omitempty" json:"label,omitempty"`
	Node      string      `yaml:"node,omitempty" json:"node,omitempty"`
	Child     string      `yaml:"child,omitempty" json:"child,omitempty"`
	Attribute string      `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Value     any         `yaml:"value,omitempty" json:"value,omitempty"`
	Target    string      `yaml:"target,omitempty" json:"target,omitempty"`
	Commit    string      `yaml:"commit,omitempty" json:"commit,omitempty"`
	Expect    *StepExpect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// StepExpect checks a step's outcome. Unset fields are not checked.
type StepExpect struct {
	// Changed is the boolean returned by insert or erase.
	Changed *bool `yaml:"changed,omitempty" json:"changed,omitempty"`

	// Changes is the length of a commit.
	Changes *int `yaml:"changes,omitempty" json:"changes,omitempty"`

	// Applied and Skipped check an apply's result.
	Applied *int `yaml:"applied,omitempty" json:"applied,omitempty"`
	Skipped *int `yaml:"skipped,omitempty" json:"skipped,omitempty"`

	// Error is the context error code a map must fail with.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Step operation names.
const (
	OpContext   = "context"
	OpNode      = "node"
	OpAttribute = "attribute"
	OpInsert    = "insert"
	OpErase     = "erase"
	OpSet       = "set"
	OpMap       = "map"
	OpUnmap     = "unmap"
	OpCommit    = "commit"
	OpApply     = "apply"
	OpDiscard   = "discard"
	OpClose     = "close"
	OpRelease   = "release"
)

// Assertion checks final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Context defaults to "main".
	Context string `yaml:"context,omitempty" json:"context,omitempty"`

	Node      string `yaml:"node,omitempty" json:"node,omitempty"`
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	// Nodes lists expected children or parents by name.
	Nodes []string `yaml:"nodes,omitempty" json:"nodes,omitempty"`

	// Value is the expected attribute value.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Count is the expected pending or slot count.
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`

	// Mapped is the expected mapping state.
	Mapped *bool `yaml:"mapped,omitempty" json:"mapped,omitempty"`
}

// Assertion type constants.
const (
	AssertChildren = "children"
	AssertParents  = "parents"
	AssertValue    = "value"
	AssertPending  = "pending"
	AssertMapped   = "mapped"
	AssertSlots    = "slots"
)

// mainContext is the reserved name of the system's main context.
const mainContext = "main"

// LoadScenario reads a scenario file, choosing the decoder by extension.
// Returns an error if the file is missing, malformed, has unknown fields
// (YAML) or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// parseCUE evaluates a CUE file and decodes its top-level value.
// CUE reports fields the struct does not declare as errors only when the
// file closes its structs; open files are decoded leniently.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	var scenario Scenario
	if err := v.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields per step op and assertion type.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	require := func(field, val string) error {
		if val == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, st.Op)
		}
		return nil
	}
	oneOf := func() error {
		if (st.Child == "") == (st.Attribute == "") {
			return fmt.Errorf("steps[%d]: exactly one of child or attribute is required for %s", index, st.Op)
		}
		return nil
	}
	nodeOrAttr := func() error {
		if (st.Node == "") == (st.Attribute == "") {
			return fmt.Errorf("steps[%d]: exactly one of node or attribute is required for %s", index, st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpContext:
		if err := require("name", st.Name); err != nil {
			return err
		}
		if st.Name == mainContext {
			return fmt.Errorf("steps[%d]: context name %q is reserved", index, mainContext)
		}
		return nil
	case OpNode, OpAttribute:
		return require("name", st.Name)
	case OpInsert, OpErase:
		if err := require("node", st.Node); err != nil {
			return err
		}
		return oneOf()
	case OpSet:
		return require("attribute", st.Attribute)
	case OpMap:
		if err := require("target", st.Target); err != nil {
			return err
		}
		return nodeOrAttr()
	case OpUnmap:
		return require("node", st.Node)
	case OpCommit:
		return require("name", st.Name)
	case OpApply:
		return require("commit", st.Commit)
	case OpDiscard:
		return nil
	case OpClose:
		if err := require("context", st.Context); err != nil {
			return err
		}
		if st.Context == mainContext {
			return fmt.Errorf("steps[%d]: the main context closes with the system", index)
		}
		return nil
	case OpRelease:
		return nodeOrAttr()
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertChildren, AssertParents:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertValue:
		if a.Attribute == "" {
			return fmt.Errorf("assertions[%d]: attribute is required for value", index)
		}
	case AssertPending, AssertSlots:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertMapped:
		if (a.Node == "") == (a.Attribute == "") {
			return fmt.Errorf("assertions[%d]: exactly one of node or attribute is required for mapped", index)
		}
		if a.Mapped == nil {
			return fmt.Errorf("assertions[%d]: mapped is required for mapped", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
