// Package task defines the shared data model for uipilot pipeline runs.
//
// A run turns one natural-language goal into a Result: the planned steps,
// one outcome per step, the keyword verification verdict, and the
// supervisor's summary. Values here are plain data; behavior lives in the
// planner, executor, verifier, and supervisor packages.
package task

import "time"

// Step is a single planned instruction within a task.
type Step struct {
	// Index is the 1-based position of the step within its plan.
	// Indexes are contiguous: a plan of n steps carries indexes 1..n.
	Index int `json:"index"`

	// Text is the trimmed, non-empty instruction to dispatch.
	Text string `json:"text"`
}

// StepStatus represents the terminal status of one executed step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepOutcome records what happened when a step was dispatched.
//
// Outcomes are index-aligned with their steps: outcome i always describes
// step i, and both carry index i+1. Every executed plan produces exactly
// one outcome per step, failures included.
type StepOutcome struct {
	Index   int        `json:"index"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message"`

	// Artifact is the filesystem path of a captured screenshot, empty
	// when the dispatch produced none.
	Artifact string `json:"artifact,omitempty"`

	// Attempts is the number of dispatch attempts the step consumed.
	Attempts int `json:"attempts"`
}

// Succeeded reports whether the step completed successfully.
func (o StepOutcome) Succeeded() bool { return o.Status == StepSucceeded }

// VerificationResult is the deterministic keyword verdict for a run.
type VerificationResult struct {
	// MatchedKeywords lists the goal keywords found in the outcome
	// messages, in goal order.
	MatchedKeywords []string `json:"matched_keywords"`

	// Success is true when enough keywords matched.
	Success bool `json:"success"`
}

// Result is the auditable record of one completed pipeline run.
//
// A Result is complete or absent: callers either receive a fatal error
// before any step ran, or a Result whose outcome list covers every step.
type Result struct {
	ID           string             `json:"id"`
	Goal         string             `json:"goal"`
	Steps        []Step             `json:"steps"`
	Outcomes     []StepOutcome      `json:"outcomes"`
	Verification VerificationResult `json:"verification"`

	// Summary is the single final line composed by the supervisor.
	Summary string `json:"summary"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
