package harness

// TraceEvent is one state reached by rank 0.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	State string `json:"state"`
}

// SliceSummary describes one slice of the merged beam.
type SliceSummary struct {
	Index     int     `json:"index"`
	Particles int     `json:"particles"`
	Current   float64 `json:"current"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace is rank 0's trace, including states reached before a failure.
	Trace []TraceEvent `json:"trace"`

	// Slices are gathered from every rank in global slice order.
	Slices []SliceSummary `json:"slices"`

	// ErrorCode is rank 0's error code; empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// Conversions counts converter calls across all ranks.
	Conversions int `json:"conversions"`

	// RunID names the run in the analysis file; empty without output.
	RunID string `json:"run_id,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Slices: []SliceSummary{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// States returns the traced state names in order.
func (r *Result) States() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.State
	}
	return out
}
