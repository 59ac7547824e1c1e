package jobs

import (
	"time"
)

// State represents the lifecycle of a render job.
type State string

const (
	StateCreated      State = "created"
	StateValidating   State = "validating"
	StateSubstituting State = "substituting"
	StateResolving    State = "resolving"
	StateCompiling    State = "compiling"
	StateRendering    State = "rendering"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

var allStates = []State{
	StateCreated,
	StateValidating,
	StateSubstituting,
	StateResolving,
	StateCompiling,
	StateRendering,
	StateCompleted,
	StateFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// forwardTransitions lists the single legal successor of each working state.
// Failed is reachable from any non-terminal state.
var forwardTransitions = map[State]State{
	StateCreated:      StateValidating,
	StateValidating:   StateSubstituting,
	StateSubstituting: StateResolving,
	StateResolving:    StateCompiling,
	StateCompiling:    StateRendering,
	StateRendering:    StateCompleted,
}

// ValidState reports whether the state is a known lifecycle state.
func ValidState(state State) bool {
	_, ok := stateSet[state]
	return ok
}

// Terminal reports whether a job in this state will never change again.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether moving from the receiver to next is legal.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return forwardTransitions[s] == next
}

// Result describes the output file of a completed render.
type Result struct {
	Path     string  `json:"path"`
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
	Format   string  `json:"format"`
}

// Job is a snapshot of a render job row. Callers receive copies and
// never observe in-place mutation.
type Job struct {
	ID           string
	State        State
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Progress     float64
	OutputPath   string
	ErrorKind    string
	ErrorMessage string
	StderrTail   string
	RenderTimeMs int64
	Result       *Result
}

// Failed reports whether the job terminated with an error.
func (j *Job) Failed() bool {
	return j != nil && j.State == StateFailed
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j != nil && j.State.Terminal()
}

// Stats aggregates render outcomes across the lifetime of the database.
// Rejected submissions (validation, configuration, spawn failures) are
// tracked separately and never influence the render averages.
type Stats struct {
	Processed   int64
	Errors      int64
	Rejected    int64
	AvgRenderMs float64
	SuccessRate float64
}
