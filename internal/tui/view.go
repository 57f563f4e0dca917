package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("Stepwise • %s", m.titleText()))
	sections = append(sections, title)

	sections = append(sections, components.NewProgress(m.progress).View())

	if !m.finished {
		sections = append(sections, sectionStyle.Render(m.step.Label()))
		sections = append(sections, m.renderFields())
	}

	entries := components.NewStepList(m.steps, m.state).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"))
		sections = append(sections, renderStepEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Flow:      m.titleText(),
		Total:     m.progress.Total,
		Counts:    m.progress.Counts,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Message:   m.message,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, summaryStyle.Render(summary))
	}

	if !m.finished {
		sections = append(sections, helpStyle.Render("enter next • esc back • tab move • ctrl+c quit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFields() string {
	if len(m.fields) == 0 {
		return skippedStyle.Render(" Nothing to fill in here. Press enter to continue.")
	}
	var lines []string
	for i, f := range m.fields {
		label := labelStyle.Render(f.label)
		if i == m.focus {
			label = focusedLabelStyle.Render(f.label)
		}
		lines = append(lines, label, f.input.View())
		for _, msg := range m.fieldErrors[f.path] {
			lines = append(lines, failureStyle.Render("  ✗ "+msg))
		}
	}
	return strings.Join(lines, "\n")
}

func renderStepEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		marker := " "
		if entry.Current {
			marker = currentStyle.Render("›")
		}
		line := fmt.Sprintf("%s %s %s", marker, StatusIcon(entry.Status), entry.Label)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) titleText() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "Wizard"
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status domain.StepStatus) string {
	switch status {
	case domain.StatusValid:
		return successStyle.Render("✓")
	case domain.StatusInvalid:
		return failureStyle.Render("✗")
	case domain.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
