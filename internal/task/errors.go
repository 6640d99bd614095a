package task

import "errors"

// Fatal pipeline errors. A run aborts only for one of these; every other
// problem is recorded in the Result as outcome data.
var (
	// ErrInvalidGoal indicates the goal was empty or whitespace-only.
	// Raised before planning starts.
	ErrInvalidGoal = errors.New("invalid goal: must be non-empty")

	// ErrPlanningFailed indicates the generation service call failed or
	// produced no usable steps. No Result exists for the run.
	ErrPlanningFailed = errors.New("planning failed")
)
