package harness

// TraceEvent records one operation or its outcome.
type TraceEvent struct {
	Type    string      `json:"type"` // "op" or "result"
	Op      string      `json:"op,omitempty"`
	Ref     string      `json:"ref,omitempty"`
	Args    interface{} `json:"args,omitempty"`
	Error   string      `json:"error,omitempty"`   // error code on failure
	Changes int         `json:"changes,omitempty"` // audit rows appended
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Trace contains every operation and its outcome in order. Refs and
	// scenario-supplied args only, never generated ids or timestamps, so
	// the trace is stable across runs.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures. Empty if Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOpTrace adds an operation event to the trace.
func (r *Result) AddOpTrace(op, ref string, args interface{}) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: "op",
		Op:   op,
		Ref:  ref,
		Args: args,
	})
}

// AddResultTrace adds an outcome event to the trace.
func (r *Result) AddResultTrace(op, errCode string, changes int) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    "result",
		Op:      op,
		Error:   errCode,
		Changes: changes,
	})
}
