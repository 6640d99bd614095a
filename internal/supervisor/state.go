package supervisor

// State is a run's position in the pipeline lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateVerifying State = "verifying"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// validNext encodes the run state graph. Failed is reachable only from
// Planning; execution and verification problems are recorded as outcome
// data instead of aborting the run.
var validNext = map[State][]State{
	StateIdle:      {StatePlanning},
	StatePlanning:  {StateExecuting, StateFailed},
	StateExecuting: {StateVerifying},
	StateVerifying: {StateCompleted},
}

// CanTransition reports whether moving from st to next is allowed by
// the run state graph. Completed and Failed are terminal.
func (st State) CanTransition(next State) bool {
	for _, allowed := range validNext[st] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Terminal reports whether st ends a run.
func (st State) Terminal() bool {
	return st == StateCompleted || st == StateFailed
}
