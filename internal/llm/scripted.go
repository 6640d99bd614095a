package llm

import (
	"context"
	"fmt"
	"strings"
)

// Scripted is a deterministic generator for development, demos, and
// tests. It reads the goal from the prompt's "Goal:" header and returns
// a fixed five-step numbered plan that embeds the goal text, so
// simulator runs verify end to end. No network, no randomness.
type Scripted struct{}

// NewScripted creates a scripted generator.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Generate returns a canned numbered plan for the goal in the prompt.
func (s *Scripted) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	goal := extractGoal(prompt)

	steps := []string{
		fmt.Sprintf("Open the screen needed for: %s", goal),
		fmt.Sprintf("Locate the control for: %s", goal),
		fmt.Sprintf("Perform the action: %s", goal),
		fmt.Sprintf("Confirm the result of: %s", goal),
		"Return to the home screen",
	}

	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String(), nil
}

// extractGoal pulls the goal text from the prompt's trailing "Goal:"
// line. Falls back to the whole trimmed prompt when the header is
// absent.
func extractGoal(prompt string) string {
	var goal string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Goal:"); ok {
			goal = strings.TrimSpace(rest)
		}
	}
	if goal == "" {
		goal = strings.TrimSpace(prompt)
	}
	return goal
}
