package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/tui/components"
)

func supportsUnicode(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func statusGlyph(status domain.StepStatus, useUnicode bool) string {
	if useUnicode {
		switch status {
		case domain.StatusValid:
			return "✓"
		case domain.StatusInvalid:
			return "✗"
		case domain.StatusSkipped:
			return "⊘"
		default:
			return "…"
		}
	}
	switch status {
	case domain.StatusValid:
		return "[ok]"
	case domain.StatusInvalid:
		return "[!!]"
	case domain.StatusSkipped:
		return "[--]"
	default:
		return "[  ]"
	}
}

func formatRelativeTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}

	delta := time.Since(ts)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(delta.Hours()))
	}

	return fmt.Sprintf("%d days ago", int(delta.Hours()/24))
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// renderStepEntries prints one line per applicable step with its status and
// a marker on the current step.
func renderStepEntries(w io.Writer, steps domain.ApplicableSteps, state domain.State) {
	useUnicode := supportsUnicode(w)
	for _, entry := range components.NewStepList(steps, state).Entries() {
		marker := " "
		if entry.Current {
			marker = ">"
		}
		fmt.Fprintf(w, "  %s %s %-20s %s\n", marker, statusGlyph(entry.Status, useUnicode), entry.ID, entry.Label)
	}
}

// renderValidation prints field errors sorted by path.
func renderValidation(w io.Writer, result domain.ValidationResult) {
	if result.Valid {
		fmt.Fprintln(w, "Validation passed.")
		return
	}
	fmt.Fprintln(w, "Validation failed:")
	for _, path := range result.ErrorPaths() {
		for _, msg := range result.FieldErrors[path] {
			fmt.Fprintf(w, "  - %s: %s\n", path, msg)
		}
	}
}
