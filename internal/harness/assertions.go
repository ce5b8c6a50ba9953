package harness

import (
	"context"
	"fmt"

	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/records"
)

// AssertionContext carries what final-state assertions need to query the
// records service.
type AssertionContext struct {
	Ctx  context.Context
	Svc  *records.Service
	Refs map[string]string
}

// EvaluateAssertions checks all assertions against the result and final
// state, returning one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(actx, a)
		case AssertHistoryCount:
			err = assertHistoryCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type != "op" || event.Op != a.Op {
			continue
		}
		if matchArgs(event.Args, a.Args) {
			return nil
		}
	}
	return fmt.Errorf("trace_contains: no %s op with matching args", a.Op)
}

func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if event.Type != "op" {
			continue
		}
		if next < len(a.Ops) && event.Op == a.Ops[next] {
			next++
		}
	}
	if next != len(a.Ops) {
		return fmt.Errorf("trace_order: expected %v, matched only first %d", a.Ops, next)
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "op" && event.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("trace_count: %s appeared %d times, expected %d", a.Op, count, a.Count)
	}
	return nil
}

func assertFinalState(actx *AssertionContext, a Assertion) error {
	id, ok := actx.Refs[a.Ref]
	if !ok {
		return fmt.Errorf("final_state: unknown ref %q", a.Ref)
	}

	switch a.Entity {
	case "session":
		sess, err := actx.Svc.GetSessionByID(actx.Ctx, id)
		if err != nil {
			return fmt.Errorf("final_state: fetch session %s: %w", a.Ref, err)
		}
		for name, want := range a.Expect {
			got := sessionField(sess, name)
			if !valuesEqual(want, got) {
				return fmt.Errorf("final_state: session %s field %s = %v, expected %v", a.Ref, name, got, want)
			}
		}
	case "patient":
		p, err := actx.Svc.GetPatientByID(actx.Ctx, id)
		if err != nil {
			return fmt.Errorf("final_state: fetch patient %s: %w", a.Ref, err)
		}
		for name, want := range a.Expect {
			got := patientField(p, name)
			if !valuesEqual(want, got) {
				return fmt.Errorf("final_state: patient %s field %s = %v, expected %v", a.Ref, name, got, want)
			}
		}
	default:
		return fmt.Errorf("final_state: unknown entity %q", a.Entity)
	}
	return nil
}

func assertHistoryCount(actx *AssertionContext, a Assertion) error {
	id, ok := actx.Refs[a.Ref]
	if !ok {
		return fmt.Errorf("history_count: unknown ref %q", a.Ref)
	}
	entries, err := actx.Svc.GetHistoryBySession(actx.Ctx, id)
	if err != nil {
		return fmt.Errorf("history_count: fetch history for %s: %w", a.Ref, err)
	}
	if len(entries) != a.Count {
		return fmt.Errorf("history_count: session %s has %d audit rows, expected %d", a.Ref, len(entries), a.Count)
	}
	return nil
}

func patientField(p model.Patient, name string) interface{} {
	switch name {
	case "public_id":
		return p.PublicID
	case "full_name":
		return strVal(p.FullName)
	case "gender":
		return p.Gender
	case "birth_date":
		return p.BirthDate
	case "notes":
		return p.Notes
	}
	return nil
}

// matchArgs performs a subset match of expected args against actual ones.
// Refs in the expected args stay symbolic; the trace stores them symbolic
// too, so comparison is literal.
func matchArgs(actual interface{}, expected map[string]interface{}) bool {
	if len(expected) == 0 {
		return true
	}
	actualMap, ok := actual.(map[string]interface{})
	if !ok {
		return false
	}
	for key, want := range expected {
		got, ok := actualMap[key]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares scenario values with record values, tolerating the
// int widths YAML decoding produces.
func valuesEqual(want, got interface{}) bool {
	if wi, ok := toInt64(want); ok {
		if gi, ok := toInt64(got); ok {
			return wi == gi
		}
		return false
	}
	return want == got
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
