package harness

// TraceEvent is one journaled change event as seen by assertions and
// golden snapshots.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Token     string `json:"token"`
	Kind      string `json:"kind"`
	ElementID int64  `json:"element_id"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace is the journal read back after the last step.
	Trace []TraceEvent `json:"trace"`

	// Dump is the final database rendering.
	Dump string `json:"dump"`

	// Errors holds step and assertion failures.
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
