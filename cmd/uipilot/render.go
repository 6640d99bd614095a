package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/uipilot/internal/store"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// Lipgloss styles shared by the run, show, and history renderers.
var (
	// Goal banner: bright cyan text inside a dim rounded border
	goalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	// Section title style - bold dim cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Dim style - for ids, timestamps, and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))
)

// renderResult writes the styled text view of one task result.
func renderResult(w io.Writer, result *task.Result) {
	fmt.Fprintln(w, bannerStyle.Render(goalStyle.Render(result.Goal)))
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("task"), result.ID)
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("took"),
		result.CompletedAt.Sub(result.StartedAt).Round(10*time.Millisecond))

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Steps"))
	for i, step := range result.Steps {
		outcome := result.Outcomes[i]

		glyph := okStyle.Render("✓")
		if !outcome.Succeeded() {
			glyph = failStyle.Render("✗")
		}
		fmt.Fprintf(w, "  %s %d. %s\n", glyph, step.Index, step.Text)

		detail := outcome.Message
		if outcome.Attempts > 1 {
			detail = fmt.Sprintf("%s (attempts: %d)", detail, outcome.Attempts)
		}
		fmt.Fprintf(w, "      %s\n", dimStyle.Render(detail))

		if outcome.Artifact != "" {
			fmt.Fprintf(w, "      %s\n", dimStyle.Render("artifact: "+outcome.Artifact))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Verification"))
	if len(result.Verification.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "  matched: %s\n",
			keywordStyle.Render(strings.Join(result.Verification.MatchedKeywords, ", ")))
	} else {
		fmt.Fprintf(w, "  matched: %s\n", dimStyle.Render("none"))
	}

	fmt.Fprintln(w)
	summaryStyle := okStyle
	if !result.Verification.Success {
		summaryStyle = failStyle
	}
	fmt.Fprintln(w, summaryStyle.Render(result.Summary))
}

// renderEntries writes one line per stored task, newest first.
func renderEntries(w io.Writer, entries []store.Entry) {
	for _, e := range entries {
		glyph := okStyle.Render("✓")
		if !e.Success {
			glyph = failStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n",
			glyph,
			dimStyle.Render(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			dimStyle.Render(shortID(e.ID)),
			e.Goal)
	}
}

// shortID truncates a task UUID to its first block for list display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// writeJSON writes v as indented JSON with a trailing newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
