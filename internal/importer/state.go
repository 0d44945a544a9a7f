package importer

// State is a step of the import pipeline.
type State string

const (
	StateConfigured        State = "Configured"
	StateFileConverted     State = "FileConverted"
	StateIngested          State = "Ingested"
	StateAnalyzed          State = "Analyzed"
	StateCentered          State = "Centered"
	StateMatched           State = "Matched"
	StateReAnalyzed        State = "ReAnalyzed"
	StateRedistributed     State = "Redistributed"
	StateSliced            State = "Sliced"
	StatePersistedAnalysis State = "PersistedAnalysis"
	StateDone              State = "Done"
)

// TraceStep records that a state was reached.
type TraceStep struct {
	Seq   int64 `json:"seq"`
	State State `json:"state"`
}

// States returns the state names of a trace in order.
func States(trace []TraceStep) []State {
	out := make([]State, len(trace))
	for i, s := range trace {
		out[i] = s.State
	}
	return out
}
