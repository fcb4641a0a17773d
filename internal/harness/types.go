package harness

// Error categories matched by Step.ExpectError.
const (
	ErrorDiverged = "diverged"
	ErrorParse    = "parse"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step  int    `json:"step"`
	Kind  string `json:"kind"` // "infer" or "query"
	Query string `json:"query,omitempty"`

	// Added holds the quads an infer step added, in insertion order.
	Added []string `json:"added,omitempty"`

	// Rows holds the solutions of a query step, one map per binding.
	Rows []map[string]string `json:"rows,omitempty"`

	// Error is the error category of a failed step. ErrorMessage holds the
	// full text and is left out of golden snapshots.
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// StoreSize is the final number of quads.
	StoreSize int `json:"store_size"`

	// Derived is the final number of derived quads.
	Derived int `json:"derived"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
