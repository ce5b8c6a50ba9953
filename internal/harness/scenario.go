package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a workflow test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains operations executed before the main flow. Setup
	// operations must succeed; a failing setup aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main operations with expected outcomes.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single operation against the records facade.
type Step struct {
	// Op names the operation, e.g. "session.add" or "patient.update".
	Op string `yaml:"op"`

	// Ref names the record a create operation produces, so later steps
	// and assertions can refer to it without knowing the generated id.
	Ref string `yaml:"ref,omitempty"`

	// Actor is recorded on audit rows this step writes. Empty means the
	// system sentinel.
	Actor string `yaml:"actor,omitempty"`

	// Args contains the operation arguments. String values of the form
	// "$ref" resolve to the id of the record created under that ref.
	Args map[string]interface{} `yaml:"args"`

	// Expect specifies the expected outcome. If nil the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies a step's expected outcome.
type ExpectClause struct {
	// Error is the expected error code (e.g. "VALIDATION", "NOT_FOUND").
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Fields contains expected values on the resulting record. Subset
	// match; only listed fields are checked.
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// Changes is the expected number of audit rows the step appends.
	// Nil means "don't check".
	Changes *int `yaml:"changes,omitempty"`
}

// Assertion validates the trace or the final state after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an op appears in the trace with matching args
	// - "trace_order": ops appear in the given relative order
	// - "trace_count": an op appears exactly N times
	// - "final_state": a record's fields hold the expected values
	// - "history_count": a session's audit trail has exactly N rows
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are expected operation arguments (trace_contains). Subset
	// match.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (trace_count,
	// history_count).
	Count int `yaml:"count,omitempty"`

	// Entity is the record kind for final_state: "patient" or "session".
	Entity string `yaml:"entity,omitempty"`

	// Ref names the record to inspect (final_state, history_count).
	Ref string `yaml:"ref,omitempty"`

	// Expect contains expected field values (final_state). Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertHistoryCount  = "history_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Op == "" {
			return fmt.Errorf("setup[%d]: op is required", i)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect clauses", i)
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Entity != "patient" && a.Entity != "session" {
			return fmt.Errorf("assertions[%d]: entity must be patient or session for final_state", index)
		}
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertHistoryCount:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for history_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
